package swift

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSwiftManifestJSON(t *testing.T) {
	content := `{
		"name": "swift-markdown",
		"toolsVersion": {"_version": "5.7.0"},
		"dependencies": [
			{
				"sourceControl": [{
					"identity": "swift-argument-parser",
					"location": {"remote": [{"urlString": "https://github.com/apple/swift-argument-parser.git"}]},
					"requirement": {"exact": ["1.2.0"]}
				}]
			},
			{
				"sourceControl": [{
					"identity": "swift-cmark",
					"location": {"remote": [{"urlString": "https://github.com/apple/swift-cmark.git"}]},
					"requirement": {"range": [{"lowerBound": "0.1.0", "upperBound": "1.0.0"}]}
				}]
			}
		]
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "Package.swift.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseSwiftManifest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "swift-markdown" || p.Purl == "" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	if p.Dependencies[0].ExtractedRequirement != "1.2.0" || !p.Dependencies[0].IsPinned {
		t.Fatalf("unexpected exact dependency: %+v", p.Dependencies[0])
	}
	if p.Dependencies[1].IsPinned {
		t.Fatal("range requirement should not be pinned")
	}
	if p.Dependencies[1].ExtractedRequirement != "vers:swift/>=0.1.0|<1.0.0" {
		t.Fatalf("unexpected range requirement: %q", p.Dependencies[1].ExtractedRequirement)
	}
}

func TestParseRawPackageSwiftDegrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Package.swift")
	if err := os.WriteFile(path, []byte("// swift-tools-version:5.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseSwiftManifest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 || frags[0].Name != "" {
		t.Fatalf("expected default fragment, got %+v", frags)
	}
}
