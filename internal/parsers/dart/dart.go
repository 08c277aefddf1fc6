// Package dart parses Dart/Flutter pubspec.yaml manifests and their
// pubspec.lock sibling.
//
// Grounded on original_source/src/parsers/dart.rs.
package dart

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "dart_pubspec_yaml",
		Description:      "Dart/Flutter pubspec.yaml manifest",
		Patterns:         []string{"pubspec.yaml"},
		DefaultEcosystem: "pub",
		PrimaryLanguage:  "dart",
		DocumentationURL: "https://dart.dev/tools/pub/pubspec",
		DatasourceID:     "pubspec_yaml",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"pubspec.lock"},
		Parse:            parsePubspecYAML,
	})
	registry.Register(registry.Descriptor{
		ID:               "dart_pubspec_lock",
		Description:      "Dart/Flutter pubspec.lock resolution lockfile",
		Patterns:         []string{"pubspec.lock"},
		DefaultEcosystem: "pub",
		PrimaryLanguage:  "dart",
		DatasourceID:     "pubspec_lock",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"pubspec.yaml"},
		Parse:            parsePubspecLock,
	})
}

type pubspecYAML struct {
	Name                string         `yaml:"name"`
	Version             string         `yaml:"version"`
	Description         string         `yaml:"description"`
	Homepage            string         `yaml:"homepage"`
	Repository          string         `yaml:"repository"`
	Author              string         `yaml:"author"`
	Authors             []string       `yaml:"authors"`
	DependenciesRaw     map[string]any `yaml:"dependencies"`
	DevDependenciesRaw  map[string]any `yaml:"dev_dependencies"`
	DependencyOverrides map[string]any `yaml:"dependency_overrides"`
	Environment         map[string]any `yaml:"environment"`
}

func parsePubspecYAML(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "dart/parsePubspecYAML", "path", path)
	defer trace.StartRegion(ctx, "dart.parsePubspecYAML").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dart: read %s: %w", path, err)
	}
	var p pubspecYAML
	if err := yaml.Unmarshal(raw, &p); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse pubspec.yaml")
		return []*model.PackageData{{PackageType: "dart", PrimaryLanguage: "dart", DatasourceID: "pubspec_yaml"}}, nil
	}

	pkg := &model.PackageData{
		PackageType:     "dart",
		Name:            p.Name,
		Version:         p.Version,
		PrimaryLanguage: "dart",
		Description:     p.Description,
		DatasourceID:    "pubspec_yaml",
	}
	pkg.URLs.Homepage = p.Homepage
	pkg.URLs.VCS = p.Repository
	if p.Author != "" {
		pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "author", Name: p.Author})
	}
	for _, a := range p.Authors {
		pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "author", Name: a})
	}

	if p.Name != "" {
		pkg.Purl = purlutil.Build("pub", "", p.Name, p.Version, nil, "")
	}
	if p.Name != "" && p.Version != "" {
		pkg.URLs.APIData = fmt.Sprintf("https://pub.dev/api/packages/%s/versions/%s", p.Name, p.Version)
		pkg.URLs.Repository = fmt.Sprintf("https://pub.dev/packages/%s/versions/%s", p.Name, p.Version)
		pkg.URLs.Download = fmt.Sprintf("https://pub.dartlang.org/packages/%s/versions/%s.tar.gz", p.Name, p.Version)
	}

	pkg.Dependencies = append(pkg.Dependencies, collectDeps(p.DependenciesRaw, "dependencies", true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, collectDeps(p.DevDependenciesRaw, "dev_dependencies", false, true)...)
	pkg.Dependencies = append(pkg.Dependencies, collectDeps(p.DependencyOverrides, "dependency_overrides", true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, collectDeps(p.Environment, "environment", true, false)...)
	return []*model.PackageData{pkg}, nil
}

func collectDeps(m map[string]any, scope string, isRuntime, isOptional bool) []*model.Dependency {
	var out []*model.Dependency
	for name, v := range m {
		requirement := dependencyRequirementFromValue(v)
		if requirement == "" {
			continue
		}
		pinned := isPubspecVersionPinned(requirement)
		version := ""
		if pinned {
			version = requirement
		}
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("pub", "", name, version, nil, ""),
			ExtractedRequirement: requirement,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             pinned,
			IsDirect:             true,
		})
	}
	return out
}

func dependencyRequirementFromValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

// isPubspecVersionPinned reports whether requirement is a bare version with
// no caret/range operator, following dart.rs's is_pubspec_version_pinned.
func isPubspecVersionPinned(requirement string) bool {
	if requirement == "" || requirement == "any" {
		return false
	}
	for _, op := range []string{"^", ">", "<", " "} {
		if strings.Contains(requirement, op) {
			return false
		}
	}
	return true
}

type pubspecLockYAML struct {
	Packages map[string]pubspecLockPackage `yaml:"packages"`
}

type pubspecLockPackage struct {
	Version     string         `yaml:"version"`
	Source      string         `yaml:"source"`
	Dependency  string         `yaml:"dependency"`
	Description map[string]any `yaml:"description"`
}

func parsePubspecLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "dart/parsePubspecLock", "path", path)
	defer trace.StartRegion(ctx, "dart.parsePubspecLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dart: read %s: %w", path, err)
	}
	var l pubspecLockYAML
	if err := yaml.Unmarshal(raw, &l); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse pubspec.lock")
		return []*model.PackageData{{PackageType: "dart", PrimaryLanguage: "dart", DatasourceID: "pubspec_lock"}}, nil
	}

	pkg := &model.PackageData{PackageType: "dart", PrimaryLanguage: "dart", DatasourceID: "pubspec_lock"}
	for name, p := range l.Packages {
		isDev := p.Dependency == "direct dev" || p.Dependency == "transitive dev"
		dep := &model.Dependency{
			Purl:      purlutil.Build("pub", "", name, p.Version, nil, ""),
			IsRuntime: !isDev,
			IsPinned:  true,
			IsDirect:  strings.HasPrefix(p.Dependency, "direct"),
			ResolvedPackage: &model.ResolvedPackage{PackageData: model.PackageData{
				PackageType: "dart", Name: name, Version: p.Version,
				Purl: purlutil.Build("pub", "", name, p.Version, nil, ""),
			}},
		}
		if p.Source != "" {
			dep.ExtraData = map[string]any{"source": p.Source}
		}
		pkg.Dependencies = append(pkg.Dependencies, dep)
	}
	return []*model.PackageData{pkg}, nil
}
