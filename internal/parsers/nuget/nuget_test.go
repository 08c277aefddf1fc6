package nuget

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePackagesConfig(t *testing.T) {
	content := `<?xml version="1.0" encoding="utf-8"?>
<packages>
  <package id="Newtonsoft.Json" version="12.0.3" targetFramework="net45" />
  <package id="NUnit" version="3.13.2" targetFramework="net45" />
</packages>`
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.config")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parsePackagesConfig(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	if p.Dependencies[0].ExtractedRequirement != "12.0.3" || !p.Dependencies[0].IsPinned {
		t.Fatalf("unexpected dependency: %+v", p.Dependencies[0])
	}
}

const nuspecFixture = `<?xml version="1.0" encoding="utf-8"?>
<package>
  <metadata>
    <id>Newtonsoft.Json</id>
    <version>13.0.3</version>
    <summary>JSON framework for .NET</summary>
    <description>Popular high-performance JSON framework for .NET</description>
    <authors>James Newton-King</authors>
    <projectUrl>https://www.newtonsoft.com/json</projectUrl>
    <license type="expression">MIT</license>
    <repository type="git" url="https://github.com/JamesNK/Newtonsoft.Json.git" />
    <dependencies>
      <dependency id="Microsoft.CSharp" version="4.3.0" />
      <group targetFramework="net6.0">
        <dependency id="System.Text.Json" version="6.0.0" />
      </group>
    </dependencies>
  </metadata>
</package>`

func TestParseNuspec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Newtonsoft.Json.nuspec")
	if err := os.WriteFile(path, []byte(nuspecFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseNuspecFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "Newtonsoft.Json" || p.Version != "13.0.3" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.URLs.VCS != "git+https://github.com/JamesNK/Newtonsoft.Json.git" {
		t.Fatalf("unexpected vcs url: %q", p.URLs.VCS)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	if p.Dependencies[1].Scope != "dependency" || p.Dependencies[1].ExtraData["framework"] != "net6.0" {
		t.Fatalf("unexpected group dependency: %+v", p.Dependencies[1])
	}
	if p.Purl == "" {
		t.Fatal("expected purl")
	}
}

func TestParsePackagesLock(t *testing.T) {
	content := `{
		"version": 1,
		"dependencies": {
			"net6.0": {
				"Newtonsoft.Json": {
					"type": "Direct",
					"requested": "[13.0.3, )",
					"resolved": "13.0.3",
					"contentHash": "abc123=="
				},
				"System.Buffers": {
					"type": "Transitive",
					"resolved": "4.5.1",
					"contentHash": "def456=="
				}
			}
		}
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.lock.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parsePackagesLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	if !p.Dependencies[0].IsDirect || p.Dependencies[0].ExtractedRequirement != "[13.0.3, )" {
		t.Fatalf("unexpected direct dependency: %+v", p.Dependencies[0])
	}
	if p.Dependencies[1].IsDirect {
		t.Fatal("System.Buffers should be transitive")
	}
}

func TestParseNupkg(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Newtonsoft.Json.1.0.0.nupkg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("Newtonsoft.Json.nuspec")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(nuspecFixture)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	frags, err := parseNupkg(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "Newtonsoft.Json" || p.Version != "13.0.3" {
		t.Fatalf("unexpected package: %+v", p)
	}
}
