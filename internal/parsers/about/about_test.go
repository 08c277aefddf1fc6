package about

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const aboutFixture = `about_resource: appdirs-1.4.3-py2.py3-none-any.whl
name: appdirs
version: 1.4.3
download_url: https://pypi.python.org/packages/56/eb/810e700ed1349edde4cbdc1b2a21e28cdf115f9faf263f6bbf8447c1abf3/appdirs-1.4.3-py2.py3-none-any.whl#md5=9ed4b51c9611775c3078b3831072e153
homepage_url: https://pypi.python.org/pypi/appdirs
copyright: Copyright (c) 2010 ActiveState Software Inc.
license_expression: mit
owner: ActiveState
`

func TestParseAboutFileBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appdirs.ABOUT")
	if err := os.WriteFile(path, []byte(aboutFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAboutFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "about" || p.Name != "appdirs" || p.Version != "1.4.3" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.URLs.Homepage != "https://pypi.python.org/pypi/appdirs" {
		t.Fatalf("unexpected homepage: %q", p.URLs.Homepage)
	}
	if p.LicenseStatement != "mit" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if p.ExtraData["copyright"] != "Copyright (c) 2010 ActiveState Software Inc." {
		t.Fatalf("unexpected copyright: %+v", p.ExtraData)
	}
	if len(p.Parties) != 1 || p.Parties[0].Name != "ActiveState" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
	if len(p.FileReferences) != 1 || p.FileReferences[0].Path != "appdirs-1.4.3-py2.py3-none-any.whl" {
		t.Fatalf("unexpected file references: %+v", p.FileReferences)
	}
}

func TestParseAboutFileMissingFields(t *testing.T) {
	content := "name: test-package\nversion: 1.0.0\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.ABOUT")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAboutFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "test-package" || p.Version != "1.0.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.URLs.Homepage != "" || p.LicenseStatement != "" || len(p.Parties) != 0 || len(p.FileReferences) != 0 {
		t.Fatalf("expected empty optional fields, got %+v", p)
	}
}

func TestParseAboutFilePurlOverride(t *testing.T) {
	content := "name: django\nversion: 3.2.0\npurl: pkg:pypi/django@3.2.0\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "purl.ABOUT")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAboutFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "pypi" || p.Name != "django" || p.Version != "3.2.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
}

func TestParseAboutFileExplicitTypeUnknown(t *testing.T) {
	content := "type: custom-type\nname: mypackage\nversion: 2.0.0\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "typed.ABOUT")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAboutFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "unknown" || p.Name != "mypackage" {
		t.Fatalf("unexpected package: %+v", p)
	}
}

func TestParseAboutFilePurlWithNamespace(t *testing.T) {
	content := "purl: pkg:npm/%40babel/core@7.0.0\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "namespaced.ABOUT")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseAboutFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "npm" || p.Namespace != "@babel" || p.Name != "core" || p.Version != "7.0.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
}
