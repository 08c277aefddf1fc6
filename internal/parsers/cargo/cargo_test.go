package cargo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const cargoTomlFixture = `[package]
name = "widget"
version = "0.3.1"
authors = ["Jane Dev <jane@example.com>"]
license = "MIT OR Apache-2.0"
description = "A small widget crate"
repository = "https://github.com/example/widget"
homepage = "https://widget.example.com"
keywords = ["widget", "gadget"]

[dependencies]
serde = "1.0"
tokio = { version = "1.28", features = ["full"], optional = true }

[dev-dependencies]
criterion = "0.5"
`

func TestParseCargoToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(cargoTomlFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCargoToml(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.PackageType != "cargo" || p.Name != "widget" || p.Version != "0.3.1" {
		t.Fatalf("unexpected package: %+v", p)
	}
	if p.LicenseStatement != "MIT OR Apache-2.0" {
		t.Fatalf("unexpected license: %q", p.LicenseStatement)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "jane@example.com" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
	if len(p.Dependencies) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(p.Dependencies))
	}
	var runtime, dev, optional int
	for _, d := range p.Dependencies {
		if d.IsRuntime {
			runtime++
		}
		if d.Scope == "dev-dependencies" {
			dev++
		}
		if d.IsOptional {
			optional++
		}
	}
	if runtime != 2 || dev != 1 || optional != 1 {
		t.Fatalf("unexpected scope split: runtime=%d dev=%d optional=%d", runtime, dev, optional)
	}
	if p.Purl == "" {
		t.Fatal("expected purl")
	}
}

func TestParseCargoTomlWorkspace(t *testing.T) {
	content := `[workspace]
members = ["crate-a", "crate-b"]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCargoToml(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if !p.IsVirtual || p.Name != "" {
		t.Fatalf("expected virtual workspace package, got %+v", p)
	}
	members, ok := p.ExtraData["workspace_members"].([]any)
	if !ok || len(members) != 2 {
		t.Fatalf("unexpected workspace members: %+v", p.ExtraData)
	}
}

const cargoLockFixture = `version = 3

[[package]]
name = "serde"
version = "1.0.197"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "3fb1c873e1b9b056a4dc4c0c198b24c3ffa059243875552b2d0921b696d7e9"
dependencies = [
 "serde_derive",
]

[[package]]
name = "widget"
version = "0.3.1"
dependencies = [
 "serde",
]
`

func TestParseCargoLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.lock")
	if err := os.WriteFile(path, []byte(cargoLockFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseCargoLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 locked packages, got %d", len(p.Dependencies))
	}
	var foundSerde bool
	for _, d := range p.Dependencies {
		if d.ResolvedPackage != nil && d.ResolvedPackage.Name == "serde" {
			foundSerde = true
			if len(d.ResolvedPackage.Checksums) != 1 {
				t.Fatalf("expected checksum on serde entry, got %+v", d.ResolvedPackage.Checksums)
			}
			if !d.IsPinned || d.IsDirect {
				t.Fatalf("unexpected dependency flags: %+v", d)
			}
		}
	}
	if !foundSerde {
		t.Fatal("expected serde in locked dependencies")
	}
}
