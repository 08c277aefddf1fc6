package dpkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseStatusMultiStanza(t *testing.T) {
	content := "Package: curl\nVersion: 7.88.1-10\nArchitecture: amd64\nSource: curl-src\nDescription: transfer a URL\n\n" +
		"Package: bash\nVersion: 5.2.15-2\nArchitecture: amd64\nDescription: shell\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "status")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	frags, err := parseStatus(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(frags))
	}
	if frags[0].Name != "curl" || frags[0].Version != "7.88.1-10" {
		t.Fatalf("unexpected first package: %+v", frags[0])
	}
	if frags[0].ExtraData["source_package"] != "curl-src" {
		t.Fatalf("expected source_package extra data, got %+v", frags[0].ExtraData)
	}
	if frags[1].Name != "bash" {
		t.Fatalf("unexpected second package: %+v", frags[1])
	}
}
