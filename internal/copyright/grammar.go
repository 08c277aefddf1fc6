package copyright

// parse reduces a flat Token stream into a sequence of top-level Nodes:
// Copyright and Author trees when an anchor token is found, interspersed
// with leftover Leaf nodes. This is a scoped version of the tree grammar
// spec §4.3 step 4 describes (YrRange, Name, Company, Copyright, Author,
// AllRightReserved): full multi-token lookahead precedence scheduling is
// not reproduced, but the node shapes and the walk-order contract the
// extractor in detector.go relies on are.
func parse(toks []Token) []Node {
	var out []Node
	i := 0
	for i < len(toks) {
		switch {
		case toks[i].Tag == Copy:
			node, next := parseCopyright(toks, i)
			out = append(out, node)
			i = next
		case isAuthorAnchor(toks[i].Tag):
			node, next := parseAuthor(toks, i)
			out = append(out, node)
			i = next
		default:
			out = append(out, leaf(toks[i]))
			i++
		}
	}
	return out
}

func isAuthorAnchor(t PosTag) bool {
	return t == Auth || t == AuthDot || t == Contributors
}

// isNameToken reports whether a token plausibly continues a Name span.
func isNameToken(t PosTag) bool {
	switch t {
	case Nnp, Caps, Comp, Uni:
		return true
	default:
		return false
	}
}

// isDateToken reports whether a token is part of a year/year-range span.
func isDateToken(t PosTag) bool {
	switch t {
	case Yr, YrPlus, BareYr:
		return true
	default:
		return false
	}
}

// isTerminator reports whether a token ends a Copyright or Author span:
// another anchor, or the start of an "All Rights Reserved" trailer.
func isTerminator(t PosTag) bool {
	switch t {
	case Copy, Auth, AuthDot, Contributors, Right:
		return true
	default:
		return false
	}
}

// parseCopyright consumes a Copy anchor at toks[i], its date span, and the
// name/connective span that follows, stopping at a terminator. Returns the
// built Copyright node and the index just past it.
func parseCopyright(toks []Token, i int) (Node, int) {
	children := []Node{leaf(toks[i])}
	j := i + 1

	// A copyright marker is often spelled with more than one token in a
	// row ("Copyright (c)", "Copyright ©"): merge immediately-adjacent Copy
	// tokens into the anchor instead of treating the second as a
	// terminator / the start of a new statement.
	for j < len(toks) && toks[j].Tag == Copy {
		children = append(children, leaf(toks[j]))
		j++
	}

	// date span
	for j < len(toks) && isDateToken(toks[j].Tag) {
		children = append(children, leaf(toks[j]))
		j++
	}

	// name/connective span: names, "of"/"by"/"and"/"-" connectives, email,
	// url. Stops at a terminator or a second, unrelated date span.
	for j < len(toks) {
		tag := toks[j].Tag
		switch {
		case isTerminator(tag):
			return tree(LabelCopyright, children...), consumeTrailer(toks, j)
		case isNameToken(tag) || tag == Of || tag == Email || tag == URL || tag == Portions:
			children = append(children, leaf(toks[j]))
			j++
		case isDateToken(tag):
			// A second date span immediately after a name most likely
			// belongs to the same statement ("Name, 2020-2021").
			children = append(children, leaf(toks[j]))
			j++
		default:
			// Junk or unrecognized token ends the span without consuming it.
			return tree(LabelCopyright, children...), j
		}
	}
	return tree(LabelCopyright, children...), j
}

// parseAuthor consumes an author anchor and the name span that follows.
func parseAuthor(toks []Token, i int) (Node, int) {
	children := []Node{leaf(toks[i])}
	j := i + 1
	for j < len(toks) {
		tag := toks[j].Tag
		switch {
		case isTerminator(tag):
			return tree(LabelAuthor, children...), consumeTrailer(toks, j)
		case isNameToken(tag) || tag == Of || tag == Email || tag == URL:
			children = append(children, leaf(toks[j]))
			j++
		default:
			return tree(LabelAuthor, children...), j
		}
	}
	return tree(LabelAuthor, children...), j
}

// consumeTrailer skips over an "All Rights Reserved"/"Alle Rechte
// vorbehalten" trailer starting at j, if present, without adding it to any
// emitted node (spec §4.3 step 6: "never part of an emitted copyright or
// holder text, but is tolerated anywhere in the input"). It does not skip
// over another Copy/Auth anchor, which starts its own node.
func consumeTrailer(toks []Token, j int) int {
	for j < len(toks) {
		switch toks[j].Tag {
		case Right, Reserved, Of: // "all", "rights", "reserved", connectives
			j++
		default:
			return j
		}
	}
	return j
}
