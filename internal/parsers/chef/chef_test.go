package chef

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseChefMetadataJSON(t *testing.T) {
	content := `{
		"name": "apache2",
		"version": "8.10.0",
		"description": "Installs and configures apache2",
		"license": "Apache-2.0",
		"maintainer": "Sous Chefs",
		"maintainer_email": "help@sous-chefs.org",
		"source_url": "https://github.com/sous-chefs/apache2",
		"dependencies": {"logrotate": ">= 1.9.0"},
		"depends": {"build-essential": ""}
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseChefMetadataJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "apache2" || p.Version != "8.10.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "help@sous-chefs.org" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	if p.URLs.Download == "" {
		t.Fatal("expected download url")
	}
}

func TestParseChefMetadataJSONSkipsDistInfo(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "foo-1.0.dist-info")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "metadata.json")
	if err := os.WriteFile(path, []byte(`{"name":"foo"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseChefMetadataJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if frags != nil {
		t.Fatalf("expected nil fragments for dist-info path, got %+v", frags)
	}
}

func TestParseChefMetadataRb(t *testing.T) {
	content := "name 'mysql'\nversion '8.7.0'\ndescription 'Installs/Configures mysql'\nlicense 'Apache-2.0'\n" +
		"maintainer 'Sous Chefs'\ndepends 'build-essential'\ndepends 'yum', '>= 3.0'\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.rb")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseChefMetadataRb(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Name != "mysql" || p.Version != "8.7.0" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
}
