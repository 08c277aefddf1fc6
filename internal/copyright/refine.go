package copyright

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// nonHolderTags are excluded when deriving a Holder from a Copyright node's
// leaves (spec §4.3 step 7): "Copyright (c) 2007 Free Software Foundation,
// Inc." becomes the holder "Free Software Foundation, Inc." by dropping
// the Copy and Yr tokens. Mirrors NON_HOLDER_POS_TAGS in detector.rs.
var nonHolderTags = map[PosTag]bool{
	Copy: true, Yr: true, YrPlus: true, BareYr: true,
}

// nonAuthorTags mirrors NON_AUTHOR_POS_TAGS: anchor/date/holder tokens are
// never part of the emitted author name.
var nonAuthorTags = map[PosTag]bool{
	Copy: true, Yr: true, YrPlus: true, BareYr: true,
	Auth: true, AuthDot: true, Contributors: true, Holder: true,
}

// trailingPunct trims leading/trailing punctuation left over once markers
// are removed, per spec §4.3 step 6.
var trailingPunct = regexp.MustCompile(`^[\s.,;:\-]+|[\s.,;:\-]+$`)
var multiSpace = regexp.MustCompile(`\s+`)
var trailingSlash = regexp.MustCompile(`/+$`)

// joinLeaves renders a leaf token sequence back into text, normalizing
// whitespace to single spaces (spec §4.3 step 6).
func joinLeaves(toks []Token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		parts = append(parts, t.Text)
	}
	s := strings.Join(parts, " ")
	s = norm.NFC.String(s)
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// refineText applies the generic cleanup pass: trim punctuation, unwrap
// angle/paren brackets around emails and URLs, drop trailing URL slashes.
// toks is the leaf sequence s was rendered from; when the last leaf is a
// company/university suffix (Comp/Uni: "Inc.", "Corp.", "University.") whose
// own token text ends in a period, that period is part of the abbreviation,
// not sentence-trailing junk, so trailingPunct must not eat it.
func refineText(s string, toks []Token) string {
	keepDot := len(toks) > 0 &&
		(toks[len(toks)-1].Tag == Comp || toks[len(toks)-1].Tag == Uni) &&
		strings.HasSuffix(toks[len(toks)-1].Text, ".")

	s = trailingPunct.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = trailingSlash.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if keepDot && s != "" && !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// filterTokens returns toks with any token whose tag is in exclude removed.
func filterTokens(toks []Token, exclude map[PosTag]bool) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if exclude[t.Tag] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// hasProperNoun reports whether any token is tagged Nnp or Caps — the
// invariant spec §8 requires of every emitted copyright/holder/author.
func hasProperNoun(toks []Token) bool {
	for _, t := range toks {
		if t.Tag == Nnp || t.Tag == Caps {
			return true
		}
	}
	return false
}

const minTextLength = 3

// isJunk rejects a refined string that is too short, empty, or carries no
// proper noun (spec §4.3 step 6, spec §8 invariant on Copyright detections).
func isJunk(s string, toks []Token) bool {
	if len(s) < minTextLength {
		return true
	}
	if !hasProperNoun(toks) {
		return true
	}
	lower := strings.ToLower(s)
	switch lower {
	case "copyright", "copyright (c)", "(c)", "all rights reserved", "author", "authors":
		return true
	}
	return false
}
