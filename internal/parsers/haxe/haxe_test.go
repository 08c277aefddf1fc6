package haxe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseHaxelibJSON(t *testing.T) {
	content := `{
		"name": "widget",
		"version": "1.2.3",
		"license": "MIT",
		"url": "https://example.com",
		"contributors": ["alice"],
		"dependencies": {"lime": "", "openfl": "8.9.0"}
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "haxelib.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseHaxelibJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "widget" || p.Version != "1.2.3" || p.Purl == "" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	for _, d := range p.Dependencies {
		if d.ExtractedRequirement == "8.9.0" && !d.IsPinned {
			t.Fatal("expected pinned dependency for explicit version")
		}
		if d.ExtractedRequirement == "" && d.IsPinned {
			t.Fatal("expected unpinned dependency for empty version")
		}
	}
}
