package osrelease

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const fedoraFixture = `NAME="Fedora Linux"
VERSION="39 (Container Image)"
ID=fedora
VERSION_ID=39
PRETTY_NAME="Fedora Linux 39 (Container Image)"
`

func TestParseOSRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "os-release")
	if err := os.WriteFile(path, []byte(fedoraFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseOSRelease(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Namespace != "fedora" {
		t.Fatalf("expected namespace fedora, got %q", p.Namespace)
	}
	if p.ExtraData["version_id"] != "39" {
		t.Fatalf("unexpected version_id: %+v", p.ExtraData)
	}
	if p.Description != "Fedora Linux 39 (Container Image)" {
		t.Fatalf("unexpected pretty name: %q", p.Description)
	}
}

const quotedValueFixture = "ID='mariner'\nVERSION_ID='2.0'\n"

func TestParseOSReleaseSingleQuoted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "os-release")
	if err := os.WriteFile(path, []byte(quotedValueFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseOSRelease(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if frags[0].Namespace != "mariner" {
		t.Fatalf("expected namespace mariner, got %q", frags[0].Namespace)
	}
}
