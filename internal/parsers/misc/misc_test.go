package misc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseAutotoolsConfigureUsesParentDirName(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "libfoo")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "configure")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAutotoolsConfigure(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if frags[0].Name != "libfoo" {
		t.Fatalf("unexpected name: %+v", frags[0])
	}
}

func TestParseFreeBSDManifestLicenseLogic(t *testing.T) {
	content := "name: widget\nversion: \"1.2\"\narch: amd64\norigin: devel/widget\nlicenses:\n  - MIT\n  - BSD\nlicenselogic: or\n"
	path := writeTemp(t, "+COMPACT_MANIFEST", content)
	frags, err := parseFreeBSDManifest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "widget" || p.LicenseStatement != "MIT OR BSD" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.URLs.Download == "" {
		t.Fatal("expected a download url")
	}
}

func TestParseReadmeAttributionKeyValueFields(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "third_party", "zlib")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "README.chromium")
	content := "Name: zlib compression library\nVersion: 1.3\nLicense: Zlib\nURL: https://zlib.net\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseReadmeAttribution(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "zlib compression library" || p.LicenseStatement != "Zlib" || p.URLs.Homepage != "https://zlib.net" {
		t.Fatalf("unexpected package: %+v", p)
	}
}

func TestParseConanDataMultipleVersions(t *testing.T) {
	content := "sources:\n" +
		"  \"1.0\":\n" +
		"    url: \"https://example.com/widget-1.0.tar.gz\"\n" +
		"    sha256: abc123\n" +
		"  \"2.0\":\n" +
		"    url:\n" +
		"      - \"https://mirror1.example.com/widget-2.0.tar.gz\"\n" +
		"      - \"https://mirror2.example.com/widget-2.0.tar.gz\"\n"
	path := writeTemp(t, "conandata.yml", content)
	frags, err := parseConanData(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 version fragments, got %d", len(frags))
	}
	for _, p := range frags {
		if p.Version == "2.0" {
			if p.ExtraData["mirror_urls"] == nil {
				t.Fatalf("expected mirror_urls for multi-mirror version: %+v", p)
			}
		}
	}
}
