// Package composer parses PHP's composer.json manifest and composer.lock
// lockfile.
//
// No original_source/src/parsers/composer.rs file was retrieved for this
// exercise (spec.md's format list names "Composer" without further
// detail). Grounded instead on two other_examples files that both parse
// this ecosystem: ParseComposerJSON in
// other_examples/...hikmaai-argus__internal-trivy-manifest.go.go (require/
// require-dev maps, skipping the "php" and "ext-*" platform pseudo-
// packages) and parseComposerLock in
// other_examples/...Nox-HQ-nox__core-analyzers-deps-parsers.go.go
// (packages/packages-dev arrays, stripping composer's "v" version prefix).
package composer

import (
	"context"
	"encoding/json"
	"os"
	"runtime/trace"
	"sort"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "composer_json",
		Description:      "PHP composer.json manifest",
		Patterns:         []string{"composer.json"},
		DefaultEcosystem: "composer",
		PrimaryLanguage:  "PHP",
		DatasourceID:     "composer_json",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"composer.lock"},
		Parse:            parseComposerJSON,
	})
	registry.Register(registry.Descriptor{
		ID:               "composer_lock",
		Description:      "PHP composer.lock lockfile",
		Patterns:         []string{"composer.lock"},
		DefaultEcosystem: "composer",
		PrimaryLanguage:  "PHP",
		DatasourceID:     "composer_lock",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"composer.json"},
		Parse:            parseComposerLock,
	})
}

type composerAuthor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Homepage string `json:"homepage"`
}

type composerJSON struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Type        string            `json:"type"`
	License     json.RawMessage   `json:"license"`
	Homepage    string            `json:"homepage"`
	Keywords    []string          `json:"keywords"`
	Authors     []composerAuthor  `json:"authors"`
	Require     map[string]string `json:"require"`
	RequireDev  map[string]string `json:"require-dev"`
}

// isComposerPlatformPackage matches pseudo-packages composer's require map
// uses for the PHP runtime and its extensions; these aren't installable
// packages and are skipped, mirroring the grounding source.
func isComposerPlatformPackage(name string) bool {
	return name == "php" || strings.HasPrefix(name, "ext-") || strings.HasPrefix(name, "lib-") || name == "composer-plugin-api" || name == "composer-runtime-api"
}

func parseComposerJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "composer/parseComposerJSON", "path", path)
	defer trace.StartRegion(ctx, "composer.parseComposerJSON").End()

	def := []*model.PackageData{{PrimaryLanguage: "PHP", DatasourceID: "composer_json"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read composer.json")
		return def, nil
	}
	var doc composerJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse composer.json")
		return def, nil
	}

	namespace, name := splitComposerName(doc.Name)
	pkg := &model.PackageData{
		PackageType:     "composer",
		Namespace:       namespace,
		Name:            name,
		Version:         doc.Version,
		Description:     doc.Description,
		PrimaryLanguage: "PHP",
		DatasourceID:    "composer_json",
		Keywords:        doc.Keywords,
	}
	pkg.URLs.Homepage = doc.Homepage
	pkg.LicenseStatement = extractComposerLicense(doc.License)

	for _, a := range doc.Authors {
		if a.Name == "" {
			continue
		}
		pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "author", Name: a.Name, Email: a.Email, URL: a.Homepage})
	}

	pkg.Dependencies = append(pkg.Dependencies, composerDependencies(doc.Require, "require", true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, composerDependencies(doc.RequireDev, "require-dev", false, true)...)

	if doc.Name != "" {
		pkg.Purl = purlutil.Build("composer", namespace, name, doc.Version, nil, "")
	}
	return []*model.PackageData{pkg}, nil
}

// splitComposerName splits composer's "vendor/package" name into a
// namespace and bare name, matching packagist's package identity.
func splitComposerName(full string) (namespace, name string) {
	if i := strings.IndexByte(full, '/'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

func extractComposerLicense(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return strings.Join(arr, " OR ")
	}
	return ""
}

func composerDependencies(deps map[string]string, scope string, isRuntime, isOptional bool) []*model.Dependency {
	names := make([]string, 0, len(deps))
	for name := range deps {
		if isComposerPlatformPackage(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*model.Dependency
	for _, name := range names {
		ns, bare := splitComposerName(name)
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("composer", ns, bare, "", nil, ""),
			ExtractedRequirement: deps[name],
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsDirect:             true,
		})
	}
	return out
}

type composerLockEntry struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	License     json.RawMessage `json:"license"`
	Dist        struct {
		Type      string `json:"type"`
		URL       string `json:"url"`
		Reference string `json:"reference"`
	} `json:"dist"`
}

type composerLockJSON struct {
	Packages    []composerLockEntry `json:"packages"`
	PackagesDev []composerLockEntry `json:"packages-dev"`
}

// parseComposerLock builds one resolved dependency per locked package,
// stripping the "v" version prefix Composer commonly emits, mirroring the
// grounding source's cleanVersion/TrimPrefix handling.
func parseComposerLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "composer/parseComposerLock", "path", path)
	defer trace.StartRegion(ctx, "composer.parseComposerLock").End()

	def := []*model.PackageData{{PrimaryLanguage: "PHP", DatasourceID: "composer_lock"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read composer.lock")
		return def, nil
	}
	var doc composerLockJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse composer.lock")
		return def, nil
	}

	pkg := &model.PackageData{PrimaryLanguage: "PHP", DatasourceID: "composer_lock"}
	pkg.Dependencies = append(pkg.Dependencies, composerLockDependencies(doc.Packages, true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, composerLockDependencies(doc.PackagesDev, false, true)...)
	return []*model.PackageData{pkg}, nil
}

func composerLockDependencies(entries []composerLockEntry, isRuntime, isOptional bool) []*model.Dependency {
	var out []*model.Dependency
	for _, e := range entries {
		if e.Name == "" || e.Version == "" {
			continue
		}
		version := strings.TrimPrefix(e.Version, "v")
		ns, bare := splitComposerName(e.Name)
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("composer", ns, bare, version, nil, ""),
			ExtractedRequirement: version,
			Scope:                "require",
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:      "composer",
					Namespace:        ns,
					Name:             bare,
					Version:          version,
					Description:      e.Description,
					PrimaryLanguage:  "PHP",
					LicenseStatement: extractComposerLicense(e.License),
					URLs:             model.URLs{Download: e.Dist.URL},
					IsVirtual:        true,
				},
			},
		})
	}
	return out
}
