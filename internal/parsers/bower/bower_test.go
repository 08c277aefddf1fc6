package bower

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const bowerBasicFixture = `{
	"name": "blue-leaf",
	"description": "Physics-like animations for pretty particles",
	"version": "1.0.0",
	"authors": ["Betty Beta <bbeta@example.com>"],
	"keywords": ["motion", "physics", "particles"],
	"license": "MIT",
	"private": true,
	"dependencies": {"get-size": "~1.2.2", "matches-selector": "~1.0.3"},
	"devDependencies": {"qunit": "~1.16.0"}
}`

func TestParseBowerJSONBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bower.json")
	if err := os.WriteFile(path, []byte(bowerBasicFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseBowerJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "blue-leaf" || p.PackageType != "bower" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if !p.IsPrivate {
		t.Fatal("expected private package")
	}
	if len(p.Keywords) != 3 {
		t.Fatalf("expected 3 keywords, got %+v", p.Keywords)
	}
	if len(p.Dependencies) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(p.Dependencies))
	}
	var runtime, dev int
	for _, d := range p.Dependencies {
		switch d.Scope {
		case "dependencies":
			runtime++
		case "devDependencies":
			dev++
			if !d.IsOptional || d.IsRuntime {
				t.Fatalf("unexpected dev dependency flags: %+v", d)
			}
		}
	}
	if runtime != 2 || dev != 1 {
		t.Fatalf("unexpected scope split: runtime=%d dev=%d", runtime, dev)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "bbeta@example.com" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
}

func TestParseBowerJSONAuthorObjects(t *testing.T) {
	content := `{
		"name": "widget",
		"authors": [
			"Betty Beta <bbeta@example.com>",
			{"name": "John Doe", "email": "john@doe.com", "homepage": "http://johndoe.com"}
		]
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "bower.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseBowerJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Parties) != 2 {
		t.Fatalf("expected 2 parties, got %+v", p.Parties)
	}
	if p.Parties[1].URL != "http://johndoe.com" {
		t.Fatalf("unexpected second author: %+v", p.Parties[1])
	}
}

func TestParseBowerJSONLicenseArray(t *testing.T) {
	content := `{"name": "widget", "license": ["MIT", "Apache 2.0", "BSD-3-Clause"]}`
	dir := t.TempDir()
	path := filepath.Join(dir, "bower.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseBowerJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if frags[0].LicenseStatement != "MIT AND Apache 2.0 AND BSD-3-Clause" {
		t.Fatalf("unexpected license: %q", frags[0].LicenseStatement)
	}
}

func TestParseBowerJSONMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bower.json")
	if err := os.WriteFile(path, []byte("{ invalid json }"), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseBowerJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "" || p.PackageType != "" {
		t.Fatalf("expected default fragment, got %+v", p)
	}
	if p.PrimaryLanguage != "JavaScript" {
		t.Fatalf("expected JavaScript as primary language, got %+v", p)
	}
}
