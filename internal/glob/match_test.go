package glob

import "testing"

func TestMatchBasics(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"package.json", "package.json", true},
		{"package.json", "sub/package.json", false},
		{"**/package.json", "sub/package.json", true},
		{"**/package.json", "package.json", true},
		{"*.json", "a.json", true},
		{"*.json", "a/b.json", false},
		{"lib/apk/db/installed", "lib/apk/db/installed", true},
		{"**/node_modules/**", "a/node_modules/b/c.js", true},
		{"packages/*", "packages/a", true},
		{"packages/*", "packages/a/b", false},
		{"packages/**", "packages/a/b/c", true},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.path); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

// TestMatchDoubleStarGreedyLeftmost is the scenario the spec's Open
// Question names explicitly: "a/**/b/*.json" against
// "a/x/b/y/b/z.json". The only split that matches has "**" consume
// "x/b/y", so the pattern's "b" lines up with the second "b" segment in
// the path, not the first.
func TestMatchDoubleStarGreedyLeftmost(t *testing.T) {
	if !Match("a/**/b/*.json", "a/x/b/y/b/z.json") {
		t.Fatal("expected greedy-leftmost ** to match via the second 'b' segment")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(`.\a\b.json`); got != "a/b.json" {
		t.Fatalf("got %q", got)
	}
}
