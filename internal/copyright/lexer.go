package copyright

import (
	"regexp"
	"strings"
)

// numberedLine is one physical line, 1-indexed (spec §4.3 step 1).
type numberedLine struct {
	Line int
	Text string
}

// keywordRE matches any of the candidate keywords spec §4.3 step 2 lists.
// A line that doesn't match any of these can still be retained if it's
// adjacent to one that does (candidate groups merge adjacent lines).
var keywordRE = regexp.MustCompile(`(?i)copyright|\(c\)|©|copr\.|spdx-filecopyrighttext|spdx-filecontributor|author|written by|maintained by|contributors|developed by`)

// collectCandidateGroups splits content into numbered lines, retains only
// lines in windows containing a copyright/author keyword, and merges
// adjacent candidate lines into groups, separated by blank-line runs.
func collectCandidateGroups(content string) [][]numberedLine {
	if content == "" {
		return nil
	}
	rawLines := strings.Split(content, "\n")
	lines := make([]numberedLine, len(rawLines))
	for i, l := range rawLines {
		lines[i] = numberedLine{Line: i + 1, Text: l}
	}

	isCandidate := make([]bool, len(lines))
	for i, l := range lines {
		isCandidate[i] = keywordRE.MatchString(l.Text)
	}

	// Expand each candidate line into a small window (itself plus the next
	// line) so that a name wrapped onto a following line is captured too,
	// mirroring the original's group-by-keyword-then-extend behavior.
	keep := make([]bool, len(lines))
	for i, ok := range isCandidate {
		if !ok {
			continue
		}
		keep[i] = true
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1].Text) != "" {
			keep[i+1] = true
		}
	}

	var groups [][]numberedLine
	var cur []numberedLine
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
	}
	for i, l := range lines {
		if !keep[i] {
			flush()
			continue
		}
		if strings.TrimSpace(l.Text) == "" {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return groups
}

// tokenSplitRE splits a line into whitespace-delimited words while keeping
// email/URL-shaped substrings and punctuation like "(c)" intact.
var tokenSplitRE = regexp.MustCompile(`\S+`)

// tokenize turns a candidate group into a tagged Token stream (spec §4.3
// step 3).
func tokenize(group []numberedLine) []Token {
	var toks []Token
	for _, l := range group {
		for _, word := range tokenSplitRE.FindAllString(l.Text, -1) {
			toks = append(toks, Token{
				Text: word,
				Tag:  MatchToken(strings.Trim(word, "")),
				Line: l.Line,
			})
		}
	}
	return toks
}
