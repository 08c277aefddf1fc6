package dart

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePubspecYAML(t *testing.T) {
	content := "name: widget\nversion: 1.0.0\nhomepage: https://example.com\n" +
		"dependencies:\n  http: 1.2.0\n  path: ^1.8.0\ndev_dependencies:\n  test: any\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "pubspec.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parsePubspecYAML(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "widget" || p.Purl == "" {
		t.Fatalf("unexpected package: %+v", p)
	}
	var sawPinned, sawRange bool
	for _, d := range p.Dependencies {
		if d.ExtractedRequirement == "1.2.0" && d.IsPinned {
			sawPinned = true
		}
		if d.ExtractedRequirement == "^1.8.0" && !d.IsPinned {
			sawRange = true
		}
	}
	if !sawPinned || !sawRange {
		t.Fatalf("unexpected dependencies: %+v", p.Dependencies)
	}
}

func TestParsePubspecLock(t *testing.T) {
	content := "packages:\n  http:\n    dependency: \"direct main\"\n    version: \"1.2.0\"\n    source: hosted\n  test:\n    dependency: \"direct dev\"\n    version: \"1.24.0\"\n    source: hosted\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "pubspec.lock")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parsePubspecLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(p.Dependencies))
	}
	for _, d := range p.Dependencies {
		if d.ResolvedPackage.Name == "test" && d.IsRuntime {
			t.Fatal("dev dependency should not be runtime")
		}
	}
}
