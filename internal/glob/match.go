// Package glob implements the shell-style path matcher the parser registry
// uses to decide which parsers apply to a scanned path (spec §4.1, §6
// "Glob patterns"). Patterns are matched against paths normalized to
// forward slashes. No third-party glob library in the retrieved corpus
// implements the spec's resolved Open Question (greedy-leftmost "**"), so
// this matcher is a from-scratch implementation — see DESIGN.md.
package glob

import "strings"

// Match reports whether path matches pattern.
//
//   - "*" matches exactly one path segment (no "/").
//   - "?" matches exactly one character (never "/").
//   - "**" matches zero or more whole segments.
//
// "**" is resolved greedy-leftmost, per the spec's Open Question
// resolution: when more than one split of the input could satisfy a "**"
// segment, the matcher prefers consuming as much as possible before
// backtracking only as far as necessary to let the remainder of the
// pattern match.
func Match(pattern, path string) bool {
	pSegs := splitSegments(pattern)
	fSegs := splitSegments(path)
	return matchSegments(pSegs, fSegs)
}

func splitSegments(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// matchSegments matches a sequence of pattern segments against a sequence
// of path segments.
func matchSegments(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	head := pat[0]
	if head == "**" {
		// Greedy-leftmost: try consuming as many path segments as possible
		// first, backtracking toward zero only if the remainder fails.
		for take := len(path); take >= 0; take-- {
			if matchSegments(pat[1:], path[take:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if !matchSegment(head, path[0]) {
		return false
	}
	return matchSegments(pat[1:], path[1:])
}

// matchSegment matches a single pattern segment (which may contain "*" and
// "?") against a single path segment.
func matchSegment(pat, seg string) bool {
	return matchHere(pat, seg)
}

// matchHere is a classic backtracking glob matcher restricted to one
// segment: "*" matches any run of characters within the segment, "?"
// matches exactly one character.
func matchHere(pat, s string) bool {
	var pi, si int
	var starPi, starSi int = -1, -1
	for si < len(s) {
		switch {
		case pi < len(pat) && (pat[pi] == '?' || pat[pi] == s[si]):
			pi++
			si++
		case pi < len(pat) && pat[pi] == '*':
			starPi = pi
			starSi = si
			pi++
		case starPi != -1:
			pi = starPi + 1
			starSi++
			si = starSi
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}

// Normalize converts backslashes to forward slashes and trims a leading
// "./", matching the normalization spec §6 requires before matching.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return path
}
