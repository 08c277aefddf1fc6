package copyright

import "regexp"

// This file is the Go analogue of original_source/src/copyright/patterns.rs.
// That file documents "≈1,100 ordered regex patterns" (spec §4.3 step 3,
// spec §9 "Dynamic pattern/regex tables"). Reproducing all 1,100 exception
// patterns is out of this exercise's budget; the table below is a scoped,
// representative subset that covers every POS tag category spec.md names
// and preserves the load-bearing property the spec calls out: order
// matters, and exceptions are listed before the general rule they carve an
// exception out of. Extending this table (more company suffixes, more
// junk-domain exceptions, more SPDX tag spellings) never requires touching
// the lexer, grammar, or refiner — only this list.
//
// patternEntry pairs a compiled regex with the tag it assigns to a token
// that matches it in full (anchored).
type patternEntry struct {
	re  *regexp.Regexp
	tag PosTag
}

func anchored(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:` + pattern + `)$`)
}

// patterns is compiled once at package init. A failure to compile is a
// programmer error and panics at startup, per spec §4.3 "Failure policy".
var patterns = compilePatterns()

func compilePatterns() []patternEntry {
	year := `(19[6-9][0-9]|20[0-9][0-9])`
	yearShort := `('?[0-9]{2})`
	yearRange := year + `\s*[-/,~]\s*` + `(` + year + `|` + yearShort + `)` + `(\s*[-/,]\s*(` + year + `|` + yearShort + `))*`
	yearPlus := year + `\+`

	raw := []struct {
		pattern string
		tag     PosTag
	}{
		// --- Exceptions first: specific junk overrides before the general
		// --- Copy/Holder/Nn rules below would otherwise misclassify them.
		{`copyright\.(txt|md|rst)`, Nn},
		{`copyrighted?`, Nn}, // "copyrighted material" is not a marker token
		{`holders?`, Holder},
		{`copyright-holders?`, Holder},
		{`example\.(com|org|net)`, Junk},
		{`localhost`, Junk},
		{`n/?a`, Junk},
		{`unknown`, Junk},
		{`todo`, Junk},
		{`anonymous`, Junk},

		// --- SPDX tags ---
		{`spdx-filecopyrighttext:?`, Copy},
		{`spdx-filecontributor:?`, Contributors},
		{`spdx-license-identifier:?`, Junk},

		// --- Copyright markers ---
		{`\(c\)`, Copy},
		{`©|\x{00a9}`, Copy},
		{`copr\.?`, Copy},
		{`copyright`, Copy},
		{`copyrights`, Copy},

		// --- Years ---
		{yearPlus, YrPlus},
		{yearRange, Yr},
		{year, Yr},
		{`'?[0-9]{2}`, BareYr},

		// --- Rights / reserved ---
		{`all`, Right},
		{`rights?`, Right},
		{`reserved\.?`, Reserved},
		{`alle`, Right},
		{`rechte`, Right},
		{`vorbehalten\.?`, Reserved},

		// --- Author markers ---
		{`authors?`, Auth},
		{`auth\.`, AuthDot},
		{`written`, Auth},
		{`maintained`, Auth},
		{`developed`, Auth},
		{`contributors?`, Contributors},
		{`maintainers?`, Contributors},

		// --- Connective / structural tokens ---
		{`portions?`, Portions},
		{`of`, Of},
		{`by`, Of},
		{`in`, Of},
		{`van`, Of},
		{`and|&`, Of},
		{`to`, Of},
		{`-|--|—`, Of},

		// --- Company suffixes ---
		{`inc\.?,?`, Comp},
		{`incorporated\.?,?`, Comp},
		{`ltd\.?,?`, Comp},
		{`limited\.?,?`, Comp},
		{`llc\.?,?`, Comp},
		{`l\.l\.c\.?,?`, Comp},
		{`llp\.?,?`, Comp},
		{`corp\.?,?`, Comp},
		{`corporation\.?,?`, Comp},
		{`co\.?,?`, Comp},
		{`company\.?,?`, Comp},
		{`gmbh\.?,?`, Comp},
		{`ag\.?,?`, Comp},
		{`s\.a\.?,?`, Comp},
		{`s\.r\.l\.?,?`, Comp},
		{`plc\.?,?`, Comp},
		{`foundation\.?,?`, Comp},
		{`group\.?,?`, Comp},
		{`team\.?,?`, Comp},
		{`project\.?,?`, Comp},
		{`consortium\.?,?`, Comp},

		// --- Universities ---
		{`universit(y|e|at|à)\.?,?`, Uni},
		{`universidad\.?,?`, Uni},
		{`institute\.?,?`, Uni},

		// --- Email / URL shapes ---
		{`<?[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}>?,?`, Email},
		{`<?(https?://|www\.)[^\s<>]+>?/?`, URL},

		// --- Proper nouns / caps ---
		{`[A-Z][A-Z0-9]{2,}`, Caps},
		{`[A-Z][a-z'.\-]*,?`, Nnp},

		// --- Catch-all is the zero value Nn; never placed in the table
		// --- itself since match_token already defaults to it.
	}

	out := make([]patternEntry, 0, len(raw))
	for _, r := range raw {
		re := anchored(r.pattern)
		if r.tag == Caps || r.tag == Nnp {
			// Capitalization is what defines these two tags, so they are
			// matched case-sensitively.
			re = regexp.MustCompile(`^(?:` + r.pattern + `)$`)
		}
		out = append(out, patternEntry{re: re, tag: r.tag})
	}
	return out
}

// MatchToken classifies a single whitespace-delimited token by trying each
// pattern in order; first match wins (spec §4.3 step 3, §9).
func MatchToken(tok string) PosTag {
	for _, p := range patterns {
		if p.re.MatchString(tok) {
			return p.tag
		}
	}
	return Nn
}
