package npm

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

func TestParsePackageJSONScopedNameAndDeps(t *testing.T) {
	path := writeTemp(t, "package.json", `{
		"name": "@acme/widget",
		"version": "1.2.3",
		"description": "a widget",
		"license": "MIT",
		"author": "Jane Example <jane@example.com> (https://example.com)",
		"dependencies": {"lodash": "^4.17.21"},
		"devDependencies": {"jest": "29.0.0"}
	}`)
	frags, err := parsePackageJSON(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected one fragment, got %d", len(frags))
	}
	p := frags[0]
	if p.Namespace != "@acme" || p.Name != "widget" {
		t.Fatalf("unexpected namespace/name: %q/%q", p.Namespace, p.Name)
	}
	if p.Purl == "" {
		t.Fatalf("expected non-empty purl")
	}
	if p.LicenseStatement != "MIT" {
		t.Fatalf("expected MIT license, got %q", p.LicenseStatement)
	}
	if len(p.Parties) != 1 || p.Parties[0].Email != "jane@example.com" {
		t.Fatalf("unexpected parties: %+v", p.Parties)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(p.Dependencies))
	}
	for _, d := range p.Dependencies {
		if d.Scope == "dependencies" && d.IsPinned {
			t.Errorf("^4.17.21 should not be pinned")
		}
	}
}

func TestParsePackageLockV1Nested(t *testing.T) {
	path := writeTemp(t, "package-lock.json", `{
		"name": "root",
		"version": "1.0.0",
		"lockfileVersion": 1,
		"dependencies": {
			"lodash": {
				"version": "4.17.21",
				"resolved": "https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz",
				"integrity": "sha512-v2kDEe57lecTulaDIuNTPy3Ry4/GxvAcNKnB8HeTCbz0GBCc/mMvY8Rhgj3M7dmTCmM5pKPYMtHtmq3y8mP3ww=="
			}
		}
	}`)
	frags, err := parsePackageLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(p.Dependencies))
	}
	d := p.Dependencies[0]
	if d.ResolvedPackage.Name != "lodash" || d.ResolvedPackage.Version != "4.17.21" {
		t.Fatalf("unexpected resolved package: %+v", d.ResolvedPackage)
	}
	if len(d.ResolvedPackage.Checksums) == 0 {
		t.Fatalf("expected a decoded checksum")
	}
}

func TestParsePackageLockV2FlatPackages(t *testing.T) {
	path := writeTemp(t, "package-lock.json", `{
		"name": "root",
		"version": "1.0.0",
		"lockfileVersion": 3,
		"packages": {
			"": {"name": "root", "version": "1.0.0"},
			"node_modules/@types/node": {"version": "18.0.0", "dev": true},
			"node_modules/express": {"version": "4.18.2"}
		}
	}`)
	frags, err := parsePackageLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	var sawScoped, sawExpress bool
	for _, d := range p.Dependencies {
		switch d.ResolvedPackage.Name {
		case "node":
			sawScoped = d.ResolvedPackage.Namespace == "@types" && d.Scope == "devDependencies"
		case "express":
			sawExpress = d.IsRuntime
		}
	}
	if !sawScoped {
		t.Error("expected @types/node dev dependency")
	}
	if !sawExpress {
		t.Error("expected runtime express dependency")
	}
}

func TestParseYarnLockClassic(t *testing.T) {
	content := `# THIS IS AN AUTOGENERATED FILE
lodash@^4.17.0, lodash@^4.17.21:
  version "4.17.21"
  resolved "https://registry.yarnpkg.com/lodash/-/lodash-4.17.21.tgz#abcdef0123456789abcdef0123456789abcdef01"
  integrity sha512-v2kDEe57lecTulaDIuNTPy3Ry4/GxvAcNKnB8HeTCbz0GBCc/mMvY8Rhgj3M7dmTCmM5pKPYMtHtmq3y8mP3ww==

"@types/node@^18.0.0":
  version "18.0.0"
  resolved "https://registry.yarnpkg.com/@types/node/-/node-18.0.0.tgz"
`
	path := writeTemp(t, "yarn.lock", content)
	frags, err := parseYarnLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	if len(p.Dependencies) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(p.Dependencies), p.Dependencies)
	}
	for _, d := range p.Dependencies {
		if d.ResolvedPackage.Version == "" {
			t.Errorf("missing version: %+v", d)
		}
	}
}

func TestParsePnpmLockV6(t *testing.T) {
	content := `lockfileVersion: '6.0'
dependencies:
  lodash:
    specifier: ^4.17.21
    version: 4.17.21
packages:
  /lodash@4.17.21:
    resolution: {integrity: sha512-v2kDEe57lecTulaDIuNTPy3Ry4/GxvAcNKnB8HeTCbz0GBCc/mMvY8Rhgj3M7dmTCmM5pKPYMtHtmq3y8mP3ww==}
  /@types/node@18.0.0:
    resolution: {integrity: sha512-v2kDEe57lecTulaDIuNTPy3Ry4/GxvAcNKnB8HeTCbz0GBCc/mMvY8Rhgj3M7dmTCmM5pKPYMtHtmq3y8mP3ww==}
    dev: true
`
	path := writeTemp(t, "pnpm-lock.yaml", content)
	frags, err := parsePnpmLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	p := frags[0]
	var sawDirect, sawScoped bool
	for _, d := range p.Dependencies {
		if d.IsDirect && d.ResolvedPackage.Name == "lodash" {
			sawDirect = true
		}
		if d.ResolvedPackage.Namespace == "@types" && d.ResolvedPackage.Name == "node" && d.Scope == "devDependencies" {
			sawScoped = true
		}
	}
	if !sawDirect {
		t.Error("expected direct lodash dependency from top-level dependencies map")
	}
	if !sawScoped {
		t.Error("expected scoped dev dependency from packages map")
	}
}

func TestParsePnpmWorkspace(t *testing.T) {
	path := writeTemp(t, "pnpm-workspace.yaml", "packages:\n  - 'packages/*'\n  - 'apps/*'\n")
	frags, err := parsePnpmWorkspace(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	patterns, ok := frags[0].ExtraData["workspaces"].([]string)
	if !ok || len(patterns) != 2 {
		t.Fatalf("unexpected workspaces: %+v", frags[0].ExtraData)
	}
}
