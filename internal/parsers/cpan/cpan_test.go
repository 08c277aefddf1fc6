package cpan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMetaJSON(t *testing.T) {
	content := `{
		"name": "Moose",
		"version": "2.2015",
		"abstract": "A postmodern object system for Perl 5",
		"license": ["perl_5"],
		"author": ["Stevan Little <stevan@cpan.org>"],
		"resources": {
			"homepage": "https://metacpan.org/pod/Moose",
			"repository": {"url": "https://github.com/moose/Moose.git", "web": "https://github.com/moose/Moose"},
			"bugtracker": {"web": "https://github.com/moose/Moose/issues"}
		},
		"prereqs": {
			"runtime": {"requires": {"perl": "5.008", "Carp": "0"}}
		}
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "META.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseMetaJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "Moose" || p.Version != "2.2015" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.LicenseStatement != "perl_5" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if p.URLs.VCS != "https://github.com/moose/Moose.git" || p.URLs.CodeView == "" {
		t.Fatalf("unexpected urls: %+v", p.URLs)
	}
	if len(p.Dependencies) != 1 {
		t.Fatalf("expected perl to be filtered, 1 remaining dependency, got %d", len(p.Dependencies))
	}
}

func TestParseMetaYML(t *testing.T) {
	content := "name: Moose\nversion: 2.2015\nabstract: A postmodern object system\n" +
		"license: perl_5\nauthor:\n  - Stevan Little <stevan@cpan.org>\n" +
		"requires:\n  perl: 5.008\n  Carp: 0\n" +
		"resources:\n  homepage: https://metacpan.org/pod/Moose\n  repository: https://github.com/moose/Moose.git\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "META.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseMetaYML(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "Moose" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.URLs.Homepage != "https://metacpan.org/pod/Moose" {
		t.Fatalf("unexpected homepage: %q", p.URLs.Homepage)
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0].ExtractedRequirement != "0" {
		t.Fatalf("unexpected dependencies: %+v", p.Dependencies)
	}
}

func TestParseManifest(t *testing.T) {
	content := "# comment\nlib/Moose.pm\nt/basic.t  # test file\n\nMETA.json\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "MANIFEST")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseManifest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.FileReferences) != 3 {
		t.Fatalf("expected 3 file references, got %d: %+v", len(p.FileReferences), p.FileReferences)
	}
}
