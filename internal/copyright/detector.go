package copyright

import "github.com/quay/pkgscan/model"

// Detect runs the full pipeline on content and returns its
// (copyrights, holders, authors) triples (spec §4.3, spec §8 "Empty input
// to the copyright detector returns (∅, ∅, ∅)").
//
// The detector never fails (spec §4.3 "Failure policy"): unparseable input
// simply produces no detections.
func Detect(content string) ([]model.CopyrightDetection, []model.HolderDetection, []model.AuthorDetection) {
	var copyrights []model.CopyrightDetection
	var holders []model.HolderDetection
	var authors []model.AuthorDetection

	if content == "" {
		return copyrights, holders, authors
	}

	for _, group := range collectCandidateGroups(content) {
		toks := tokenize(group)
		if len(toks) == 0 {
			continue
		}
		nodes := parse(toks)
		for _, n := range nodes {
			if !n.IsTree {
				continue
			}
			switch n.Label {
			case LabelCopyright:
				emitCopyright(n, &copyrights, &holders)
			case LabelAuthor:
				emitAuthor(n, &authors)
			}
		}
	}
	return copyrights, holders, authors
}

func emitCopyright(n Node, copyrights *[]model.CopyrightDetection, holders *[]model.HolderDetection) {
	leaves := n.Leaves()
	start, end := n.LineRange()

	crText := refineText(joinLeaves(leaves), leaves)
	if !isJunk(crText, leaves) {
		*copyrights = append(*copyrights, model.CopyrightDetection{
			Text: crText, StartLine: start, EndLine: end,
		})
	}

	holderLeaves := filterTokens(leaves, nonHolderTags)
	if len(holderLeaves) == 0 {
		return
	}
	holderText := refineText(joinLeaves(holderLeaves), holderLeaves)
	if isJunk(holderText, holderLeaves) {
		return
	}
	hStart, hEnd := holderLeaves[0].Line, holderLeaves[0].Line
	for _, t := range holderLeaves[1:] {
		if t.Line < hStart {
			hStart = t.Line
		}
		if t.Line > hEnd {
			hEnd = t.Line
		}
	}
	*holders = append(*holders, model.HolderDetection{
		Text: holderText, StartLine: hStart, EndLine: hEnd,
	})
}

func emitAuthor(n Node, authors *[]model.AuthorDetection) {
	leaves := n.Leaves()
	nameLeaves := filterTokens(leaves, nonAuthorTags)
	if len(nameLeaves) == 0 {
		return
	}
	text := refineText(joinLeaves(nameLeaves), nameLeaves)
	if isJunk(text, nameLeaves) {
		return
	}
	start, end := nameLeaves[0].Line, nameLeaves[0].Line
	for _, t := range nameLeaves[1:] {
		if t.Line < start {
			start = t.Line
		}
		if t.Line > end {
			end = t.Line
		}
	}
	*authors = append(*authors, model.AuthorDetection{
		Text: text, StartLine: start, EndLine: end,
	})
}
