package conda

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const condaBasicFixture = `{
	"name": "requests",
	"version": "2.32.3",
	"license": "Apache-2.0",
	"url": "https://repo.anaconda.com/pkgs/main/linux-64/requests-2.32.3-py312h06a4308_1.conda",
	"size": 123456,
	"md5": "abc123",
	"sha256": "def456",
	"requested_spec": "requests",
	"channel": "https://repo.anaconda.com/pkgs/main",
	"files": ["lib/python3.12/site-packages/requests/__init__.py"],
	"extracted_package_dir": "/opt/conda/pkgs/requests-2.32.3-py312h06a4308_1",
	"package_tarball_full_path": "/opt/conda/pkgs/requests-2.32.3-py312h06a4308_1.conda"
}`

func TestParseCondaMetaJSONBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conda-meta", "requests-2.32.3-py312h06a4308_1.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(condaBasicFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCondaMetaJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "conda" || p.Name != "requests" || p.Version != "2.32.3" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.LicenseStatement != "Apache-2.0" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if p.URLs.Download == "" {
		t.Fatal("expected download url")
	}
	if len(p.Checksums) != 2 {
		t.Fatalf("expected 2 checksums, got %+v", p.Checksums)
	}
	if p.ExtraData["requested_spec"] != "requests" || p.ExtraData["channel"] == nil {
		t.Fatalf("unexpected extra data: %+v", p.ExtraData)
	}
	files, ok := p.ExtraData["files"].([]any)
	if !ok || len(files) != 1 {
		t.Fatalf("unexpected files extra data: %+v", p.ExtraData["files"])
	}
	if p.Purl == "" {
		t.Fatal("expected purl")
	}
}

func TestParseCondaMetaJSONMinimal(t *testing.T) {
	content := `{"name": "six", "version": "1.16.0"}`
	dir := t.TempDir()
	path := filepath.Join(dir, "conda-meta", "six-1.16.0.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCondaMetaJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "six" || p.Version != "1.16.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if len(p.ExtraData) != 0 || len(p.Checksums) != 0 {
		t.Fatalf("expected no extra data/checksums, got %+v / %+v", p.ExtraData, p.Checksums)
	}
}

func TestParseCondaMetaJSONInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conda-meta", "broken.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{ not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCondaMetaJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "conda" || p.DatasourceID != "conda_meta_json" || p.PrimaryLanguage != "Python" {
		t.Fatalf("expected degraded default fragment with type/datasource set, got %+v", p)
	}
	if p.Name != "" {
		t.Fatalf("expected empty name on invalid json, got %q", p.Name)
	}
}
