// Package cargo parses Rust's Cargo.toml manifest and Cargo.lock lockfile.
//
// spec.md's format-family list names "Rust" without further detail, and
// no original_source/src/parsers/cargo.rs file was retrieved for this
// exercise (see DESIGN.md). The [package]/[dependencies]/[workspace]
// table shape and the Cargo.lock array-of-tables schema are common
// knowledge of the Cargo manifest format; the parser is structured the
// same way internal/parsers/npm's package.json + lockfile pair is
// (independent Standalone/SiblingMerge parses that the assembler merges
// by directory), and decodes TOML with github.com/pelletier/go-toml/v2,
// the only TOML library present anywhere in the retrieved corpus
// (moby-moby's go.mod requires it directly; crossplane-crossplane and
// upbound-up carry it as an indirect dependency). No retrieved Go source
// file imports it directly, so the Unmarshal call here mirrors this
// module's own encoding/json usage rather than a copied corpus snippet.
package cargo

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "cargo_toml",
		Description:      "Rust Cargo.toml manifest",
		Patterns:         []string{"Cargo.toml"},
		DefaultEcosystem: "cargo",
		PrimaryLanguage:  "Rust",
		DatasourceID:     "cargo_toml",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"Cargo.lock"},
		Parse:            parseCargoToml,
	})
	registry.Register(registry.Descriptor{
		ID:               "cargo_lock",
		Description:      "Rust Cargo.lock lockfile",
		Patterns:         []string{"Cargo.lock"},
		DefaultEcosystem: "cargo",
		PrimaryLanguage:  "Rust",
		DatasourceID:     "cargo_lock",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"Cargo.toml"},
		Parse:            parseCargoLock,
	})
}

type cargoTomlDoc struct {
	Package   *cargoPackage  `toml:"package"`
	Workspace *cargoWorkspace `toml:"workspace"`

	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

type cargoPackage struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Authors     []string `toml:"authors"`
	License     string   `toml:"license"`
	LicenseFile string   `toml:"license-file"`
	Description string   `toml:"description"`
	Repository  string   `toml:"repository"`
	Homepage    string   `toml:"homepage"`
	Documentation string `toml:"documentation"`
	Keywords    []string `toml:"keywords"`
}

type cargoWorkspace struct {
	Members []string `toml:"members"`
}

func parseCargoToml(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cargo/parseCargoToml", "path", path)
	defer trace.StartRegion(ctx, "cargo.parseCargoToml").End()

	def := []*model.PackageData{{PrimaryLanguage: "Rust", DatasourceID: "cargo_toml"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read Cargo.toml")
		return def, nil
	}
	var doc cargoTomlDoc
	if err := toml.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse Cargo.toml")
		return def, nil
	}

	pkg := &model.PackageData{
		PackageType:     "cargo",
		PrimaryLanguage: "Rust",
		DatasourceID:    "cargo_toml",
	}

	if doc.Package != nil {
		p := doc.Package
		pkg.Name = p.Name
		pkg.Version = p.Version
		pkg.Description = p.Description
		pkg.LicenseStatement = p.License
		pkg.URLs.Homepage = p.Homepage
		pkg.URLs.VCS = p.Repository
		pkg.URLs.CodeView = p.Documentation
		pkg.Keywords = p.Keywords
		for _, a := range p.Authors {
			name, email := splitCargoAuthor(a)
			if name == "" {
				continue
			}
			pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "author", Name: name, Email: email})
		}
		pkg.Purl = purlutil.Build("cargo", "", p.Name, p.Version, nil, "")
	}

	if doc.Workspace != nil {
		pkg.IsVirtual = pkg.Name == ""
		if len(doc.Workspace.Members) > 0 {
			pkg.ExtraData = map[string]any{"workspace_members": toAnySlice(doc.Workspace.Members)}
		}
	}

	pkg.Dependencies = append(pkg.Dependencies, cargoDependencies(doc.Dependencies, "dependencies", true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, cargoDependencies(doc.DevDependencies, "dev-dependencies", false, true)...)
	pkg.Dependencies = append(pkg.Dependencies, cargoDependencies(doc.BuildDependencies, "build-dependencies", false, true)...)

	return []*model.PackageData{pkg}, nil
}

// cargoDependencies handles both Cargo's shorthand ("serde = \"1.0\"") and
// expanded table ({ version = "1", optional = true, features = [...] })
// dependency value forms.
func cargoDependencies(deps map[string]any, scope string, isRuntime, isOptional bool) []*model.Dependency {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*model.Dependency
	for _, name := range names {
		requirement, optional := cargoDependencyRequirement(deps[name])
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("cargo", "", name, "", nil, ""),
			ExtractedRequirement: requirement,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional || optional,
			IsDirect:             true,
		})
	}
	return out
}

func cargoDependencyRequirement(v any) (requirement string, optional bool) {
	switch t := v.(type) {
	case string:
		return t, false
	case map[string]any:
		if ver, ok := t["version"].(string); ok {
			requirement = ver
		}
		if opt, ok := t["optional"].(bool); ok {
			optional = opt
		}
		return requirement, optional
	default:
		return "", false
	}
}

func splitCargoAuthor(s string) (name, email string) {
	i, j := strings.IndexByte(s, '<'), strings.LastIndexByte(s, '>')
	if i < 0 || j <= i {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:i]), s[i+1 : j]
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

type cargoLockDoc struct {
	Version int               `toml:"version"`
	Package []cargoLockPackage `toml:"package"`
}

type cargoLockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

// parseCargoLock builds one resolved dependency per locked crate.
// Grounded on the same "flat locked entries -> model.Dependency with
// ResolvedPackage" shape internal/parsers/npm/lock.go uses for
// package-lock.json's "packages" map.
func parseCargoLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cargo/parseCargoLock", "path", path)
	defer trace.StartRegion(ctx, "cargo.parseCargoLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cargo: read %s: %w", path, err)
	}
	var doc cargoLockDoc
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("cargo: parse %s: %w", path, err)
	}

	pkg := &model.PackageData{
		PrimaryLanguage: "Rust",
		DatasourceID:    "cargo_lock",
	}
	for _, entry := range doc.Package {
		if entry.Name == "" || entry.Version == "" {
			continue
		}
		var checksums []model.Checksum
		if entry.Checksum != "" {
			checksums = append(checksums, model.Checksum{Algorithm: "sha256", Value: entry.Checksum})
		}
		extra := map[string]any{}
		if entry.Source != "" {
			extra["source"] = entry.Source
		}
		dep := &model.Dependency{
			Purl:                 purlutil.Build("cargo", "", entry.Name, entry.Version, nil, ""),
			ExtractedRequirement: entry.Version,
			Scope:                "dependencies",
			IsRuntime:            true,
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "cargo",
					Name:            entry.Name,
					Version:         entry.Version,
					PrimaryLanguage: "Rust",
					IsVirtual:       true,
					Checksums:       checksums,
				},
			},
		}
		if len(extra) > 0 {
			dep.ResolvedPackage.ExtraData = extra
		}
		pkg.Dependencies = append(pkg.Dependencies, dep)
	}
	return []*model.PackageData{pkg}, nil
}
