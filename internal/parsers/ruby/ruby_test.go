package ruby

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gemfileFixture = `source 'https://rubygems.org'

gem 'rails', '~> 7.0'
gem 'puma'
# gem 'commented-out'
`

func TestParseGemfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Gemfile")
	if err := os.WriteFile(path, []byte(gemfileFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseGemfile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 gems, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	var railsReq string
	var foundRails bool
	for _, d := range p.Dependencies {
		if strings.Contains(d.Purl, "/rails") {
			foundRails = true
			railsReq = d.ExtractedRequirement
		}
	}
	if !foundRails || railsReq != "~> 7.0" {
		t.Fatalf("expected rails with requirement '~> 7.0', got %+v", p.Dependencies)
	}
}

const gemfileLockFixture = `GEM
  remote: https://rubygems.org/
  specs:
    actioncable (7.0.4)
      actionpack (= 7.0.4)
    actionpack (7.0.4)
    puma (6.4.0)

PLATFORMS
  ruby

DEPENDENCIES
  puma
  rails (~> 7.0)
`

func TestParseGemfileLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Gemfile.lock")
	if err := os.WriteFile(path, []byte(gemfileLockFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseGemfileLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 3 {
		t.Fatalf("expected 3 top-level locked gems, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	for _, d := range p.Dependencies {
		if d.ResolvedPackage.Name == "actioncable" && d.ResolvedPackage.Version != "7.0.4" {
			t.Fatalf("unexpected actioncable version: %+v", d.ResolvedPackage)
		}
	}
}

const gemspecFixture = `Gem::Specification.new do |spec|
  spec.name          = "widget"
  spec.version       = "1.2.3"
  spec.summary       = "A small widget gem"
  spec.homepage      = "https://widget.example.com"
  spec.license       = "MIT"
  spec.file_name     = "widget.gemspec"
end
`

func TestParseGemspec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widget.gemspec")
	if err := os.WriteFile(path, []byte(gemspecFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseGemspec(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "widget" || p.Version != "1.2.3" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.LicenseStatement != "MIT" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if p.URLs.Homepage != "https://widget.example.com" {
		t.Fatalf("unexpected homepage: %q", p.URLs.Homepage)
	}
	if p.Description != "A small widget gem" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
}
