package golang

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

func TestParseGoModDirectAndIndirect(t *testing.T) {
	content := `module github.com/example/widget

go 1.22

require (
	github.com/google/uuid v1.6.0
	golang.org/x/sync v0.19.0 // indirect
)

require github.com/package-url/packageurl-go v0.1.5

replace github.com/google/uuid => github.com/example/uuid-fork v1.6.1
`
	path := writeTemp(t, "go.mod", content)
	frags, err := parseGoMod(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if p.Namespace != "github.com" || p.Name != "example" || p.Subpath != "widget" {
		t.Fatalf("unexpected module split: %+v", p)
	}
	if len(p.Dependencies) != 4 {
		t.Fatalf("expected 3 requires plus 1 replace, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	var sawIndirect, sawRequire, sawReplace bool
	for _, d := range p.Dependencies {
		if !d.IsDirect {
			sawIndirect = true
		}
		switch d.Scope {
		case "require":
			if d.ResolvedPackage.Subpath == "uuid" && d.ResolvedPackage.Version == "v1.6.0" {
				sawRequire = true
			}
		case "replace":
			if d.ResolvedPackage.Subpath == "uuid-fork" && d.ResolvedPackage.Version == "v1.6.1" && d.IsDirect {
				sawReplace = true
				if d.ExtraData["replace_old"] != "github.com/google/uuid" ||
					d.ExtraData["replace_new"] != "github.com/example/uuid-fork" ||
					d.ExtraData["replace_version"] != "v1.6.1" ||
					d.ExtraData["replace_old_version"] != "" {
					t.Errorf("unexpected replace extra_data: %+v", d.ExtraData)
				}
			}
		}
	}
	if !sawIndirect {
		t.Error("expected at least one indirect dependency")
	}
	if !sawRequire {
		t.Error("expected the original uuid require to survive unmodified")
	}
	if !sawReplace {
		t.Error("expected a distinct replace-scoped dependency redirecting uuid")
	}
}

func TestParseGoSumDeduplicatesGoModHashes(t *testing.T) {
	content := `github.com/google/uuid v1.6.0 h1:NIvaJDMOsjHA8n1jAhLSgzrAzy1Hgr+hNrb57e+94F0=
github.com/google/uuid v1.6.0/go.mod h1:TIyPZe4MgqvfeYDBFedMoGGpEw/LqOeaOT+nhxU+yHo=
`
	path := writeTemp(t, "go.sum", content)
	frags, err := parseGoSum(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 1 {
		t.Fatalf("expected deduped single entry, got %d", len(p.Dependencies))
	}
}
