package composer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const composerJSONFixture = `{
	"name": "acme/widget",
	"description": "A PHP widget library",
	"version": "2.1.0",
	"type": "library",
	"license": "MIT",
	"homepage": "https://widget.example.com",
	"keywords": ["widget", "php"],
	"authors": [{"name": "Jane Dev", "email": "jane@example.com"}],
	"require": {
		"php": ">=8.1",
		"ext-json": "*",
		"monolog/monolog": "^3.0"
	},
	"require-dev": {
		"phpunit/phpunit": "^10.0"
	}
}`

func TestParseComposerJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "composer.json")
	if err := os.WriteFile(path, []byte(composerJSONFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseComposerJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "composer" || p.Namespace != "acme" || p.Name != "widget" || p.Version != "2.1.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.LicenseStatement != "MIT" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies (php/ext-json skipped), got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	var runtime, dev int
	for _, d := range p.Dependencies {
		if d.Scope == "require" {
			runtime++
		}
		if d.Scope == "require-dev" {
			dev++
		}
	}
	if runtime != 1 || dev != 1 {
		t.Fatalf("unexpected scope split: runtime=%d dev=%d", runtime, dev)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "jane@example.com" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
}

const composerLockFixture = `{
	"packages": [
		{"name": "monolog/monolog", "version": "v3.5.0", "description": "Logging library", "license": ["MIT"]}
	],
	"packages-dev": [
		{"name": "phpunit/phpunit", "version": "v10.5.0"}
	]
}`

func TestParseComposerLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "composer.lock")
	if err := os.WriteFile(path, []byte(composerLockFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseComposerLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 locked packages, got %d", len(p.Dependencies))
	}
	for _, d := range p.Dependencies {
		if d.ResolvedPackage.Name == "monolog" {
			if d.ResolvedPackage.Version != "3.5.0" {
				t.Fatalf("expected 'v' prefix stripped, got %q", d.ResolvedPackage.Version)
			}
			if d.ResolvedPackage.LicenseStatement != "MIT" {
				t.Fatalf("unexpected license: %q", d.ResolvedPackage.LicenseStatement)
			}
		}
	}
}
