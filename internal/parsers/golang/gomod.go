// Package golang parses Go module manifests: go.mod and go.sum.
//
// golang.org/x/mod/modfile would be the ideal decoder for this format, but
// it is not a direct dependency anywhere in the retrieved corpus
// (claircore's go.mod lists golang.org/x/mod only as an indirect transitive
// pin, never imported directly by any scanner package) — see DESIGN.md for
// the full justification. Instead this follows the same from-scratch
// line/block scanning style original_source/src/parsers/gradle_lock.rs uses
// for its own simple, line-oriented manifest format.
package golang

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"strconv"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "golang_go_mod",
		Description:      "Go module manifest",
		Patterns:         []string{"go.mod"},
		DefaultEcosystem: "golang",
		PrimaryLanguage:  "Go",
		DocumentationURL: "https://go.dev/ref/mod#go-mod-file",
		DatasourceID:     "golang_go_mod",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"go.sum"},
		Parse:            parseGoMod,
	})
	registry.Register(registry.Descriptor{
		ID:               "golang_go_sum",
		Description:      "Go module checksum database",
		Patterns:         []string{"go.sum"},
		DefaultEcosystem: "golang",
		PrimaryLanguage:  "Go",
		DatasourceID:     "golang_go_sum",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"go.mod"},
		Parse:            parseGoSum,
	})
}

type goModRequire struct {
	Path     string
	Version  string
	Indirect bool
}

// goModReplace is one parsed "replace old [oldver] => new [newver]"
// directive. OldVersion is empty when the directive replaces every version
// of old (an unversioned replace), and NewVersion is empty when new names a
// local filesystem path rather than a module version.
type goModReplace struct {
	OldPath    string
	OldVersion string
	NewPath    string
	NewVersion string
}

func parseGoMod(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "golang/parseGoMod", "path", path)
	defer trace.StartRegion(ctx, "golang.parseGoMod").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("golang: open %s: %w", path, err)
	}
	defer f.Close()

	var modulePath, goVersion string
	var requires []goModRequire
	var replaces []goModReplace

	sc := bufio.NewScanner(f)
	var inRequireBlock, inReplaceBlock bool
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		indirect := strings.HasSuffix(raw, "// indirect")
		line := strings.TrimSpace(stripLineComment(raw))
		if line == "" {
			continue
		}
		switch {
		case inRequireBlock:
			if line == ")" {
				inRequireBlock = false
				continue
			}
			if r, ok := parseRequireLine(line); ok {
				r.Indirect = indirect
				requires = append(requires, r)
			}
		case inReplaceBlock:
			if line == ")" {
				inReplaceBlock = false
				continue
			}
			if r, ok := parseReplaceLine(line); ok {
				replaces = append(replaces, r)
			}
		case strings.HasPrefix(line, "module "):
			modulePath = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case strings.HasPrefix(line, "go "):
			goVersion = strings.TrimSpace(strings.TrimPrefix(line, "go "))
		case line == "require (":
			inRequireBlock = true
		case strings.HasPrefix(line, "require "):
			if r, ok := parseRequireLine(strings.TrimPrefix(line, "require ")); ok {
				r.Indirect = indirect
				requires = append(requires, r)
			}
		case line == "replace (":
			inReplaceBlock = true
		case strings.HasPrefix(line, "replace "):
			if r, ok := parseReplaceLine(strings.TrimPrefix(line, "replace ")); ok {
				replaces = append(replaces, r)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("golang: scan %s: %w", path, err)
	}
	if modulePath == "" {
		return nil, fmt.Errorf("golang: %s has no module directive", path)
	}

	pkg := &model.PackageData{
		PackageType:     "golang",
		Name:            modulePath,
		Purl:            purlutil.Golang(modulePath, ""),
		DatasourceID:    "golang_go_mod",
		PrimaryLanguage: "Go",
	}
	ns, bare, subpath := purlutil.SplitGoModule(modulePath)
	pkg.Namespace, pkg.Name, pkg.Subpath = ns, bare, subpath
	if goVersion != "" {
		if pkg.ExtraData == nil {
			pkg.ExtraData = map[string]any{}
		}
		pkg.ExtraData["go_version"] = goVersion
	}
	replaceByOld := make(map[string]goModReplace, len(replaces))
	for _, r := range replaces {
		replaceByOld[r.OldPath] = r
	}

	for _, r := range requires {
		rns, rbare, rsub := purlutil.SplitGoModule(r.Path)
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Golang(r.Path, r.Version),
			ExtractedRequirement: r.Version,
			IsRuntime:            true,
			IsDirect:             !r.Indirect,
			IsPinned:             true,
			Scope:                "require",
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "golang",
					Namespace:       rns,
					Name:            rbare,
					Subpath:         rsub,
					Version:         r.Version,
					PrimaryLanguage: "Go",
				},
			},
		})

		rep, ok := replaceByOld[r.Path]
		if !ok {
			continue
		}
		version := rep.NewVersion
		rns, rbare, rsub = purlutil.SplitGoModule(rep.NewPath)
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Golang(rep.NewPath, version),
			ExtractedRequirement: version,
			IsRuntime:            true,
			IsDirect:             true,
			IsPinned:             true,
			Scope:                "replace",
			ExtraData: map[string]any{
				"replace_old":         rep.OldPath,
				"replace_new":         rep.NewPath,
				"replace_version":     rep.NewVersion,
				"replace_old_version": rep.OldVersion,
			},
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "golang",
					Namespace:       rns,
					Name:            rbare,
					Subpath:         rsub,
					Version:         version,
					PrimaryLanguage: "Go",
				},
			},
		})
	}

	return []*model.PackageData{pkg}, nil
}

// parseRequireLine parses "module/path v1.2.3" (the "// indirect" comment,
// if any, has already been stripped by the caller, which records it
// separately since it must be detected before comment-stripping).
func parseRequireLine(line string) (goModRequire, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return goModRequire{}, false
	}
	return goModRequire{Path: fields[0], Version: fields[1]}, true
}

// parseReplaceLine parses one replace directive in any of its four forms:
// "old => new", "old => new newver", "old oldver => new", and
// "old oldver => new newver".
func parseReplaceLine(line string) (goModReplace, bool) {
	before, after, found := strings.Cut(line, "=>")
	if !found {
		return goModReplace{}, false
	}
	beforeFields := strings.Fields(strings.TrimSpace(before))
	afterFields := strings.Fields(strings.TrimSpace(after))
	if len(beforeFields) == 0 || len(afterFields) == 0 {
		return goModReplace{}, false
	}
	r := goModReplace{OldPath: beforeFields[0], NewPath: afterFields[0]}
	if len(beforeFields) > 1 {
		r.OldVersion = beforeFields[1]
	}
	if len(afterFields) > 1 {
		r.NewVersion = afterFields[1]
	}
	return r, true
}

func stripLineComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func parseGoSum(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "golang/parseGoSum", "path", path)
	defer trace.StartRegion(ctx, "golang.parseGoSum").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("golang: open %s: %w", path, err)
	}
	defer f.Close()

	pkg := &model.PackageData{
		PackageType:  "golang",
		DatasourceID: "golang_go_sum",
	}
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		// "module version[/go.mod] h1:hash="
		if len(fields) != 3 {
			continue
		}
		modPath, version, hash := fields[0], strings.TrimSuffix(fields[1], "/go.mod"), fields[2]
		key := modPath + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		ns, bare, sub := purlutil.SplitGoModule(modPath)
		h1, decErr := decodeH1Hash(hash)
		var checksums []model.Checksum
		if decErr == nil && h1 != "" {
			checksums = []model.Checksum{{Algorithm: "h1", Value: h1}}
		}
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Golang(modPath, version),
			ExtractedRequirement: version,
			IsRuntime:            true,
			IsPinned:             true,
			Scope:                "lock",
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType: "golang",
					Namespace:   ns,
					Name:        bare,
					Subpath:     sub,
					Version:     version,
					Checksums:   checksums,
					IsVirtual:   true,
				},
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("golang: scan %s: %w", path, err)
	}
	return []*model.PackageData{pkg}, nil
}

// decodeH1Hash strips go.sum's "h1:" prefix, leaving the base64 digest.
// The digest is kept base64 (not re-encoded to hex) since go.sum's dirhash
// format is not a plain content hash of one file the way npm's integrity
// field is.
func decodeH1Hash(field string) (string, error) {
	const prefix = "h1:"
	if !strings.HasPrefix(field, prefix) {
		return "", fmt.Errorf("unrecognized go.sum hash algorithm: %q", field)
	}
	digest := strings.TrimPrefix(field, prefix)
	if digest == "" {
		return "", strconv.ErrSyntax
	}
	return digest, nil
}
