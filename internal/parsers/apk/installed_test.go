package apk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseInstalledMultiplePackages(t *testing.T) {
	content := "P:musl\nV:1.2.3-r4\nA:x86_64\nL:MIT\nt:the musl libc\n\n" +
		"P:busybox\nV:1.35.0-r29\nA:x86_64\no:busybox\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "installed")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseInstalled(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(frags))
	}
	if frags[0].Name != "musl" || frags[0].LicenseStatement != "MIT" {
		t.Fatalf("unexpected first package: %+v", frags[0])
	}
	if frags[1].Name != "busybox" || frags[1].Purl == "" {
		t.Fatalf("unexpected second package: %+v", frags[1])
	}
}
