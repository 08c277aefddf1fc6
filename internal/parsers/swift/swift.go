// Package swift parses Swift Package Manager manifests that have already
// been resolved to JSON by `swift package dump-package`: Package.swift.json
// and the DepLock-flavored Package.swift.deplock.
//
// Grounded on original_source/src/parsers/swift_manifest_json.rs. The
// original additionally shells out to the Swift toolchain to generate JSON
// from a raw Package.swift on demand, with a BLAKE3 cache; that requires an
// external compiler toolchain this module has no business invoking, so raw
// Package.swift falls back to the same default-fragment path the original
// takes when the Swift toolchain is unavailable.
package swift

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "swift_package_manifest_json",
		Description:      "Swift Package Manager dump-package JSON",
		Patterns:         []string{"**/*.swift.json", "**/*.swift.deplock", "**/Package.swift"},
		DefaultEcosystem: "swift",
		PrimaryLanguage:  "Swift",
		DocumentationURL: "https://www.swift.org/package-manager/",
		DatasourceID:     "swift_package_manifest_json",
		Mode:             registry.Standalone,
		Parse:            parseSwiftManifest,
	})
}

func parseSwiftManifest(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "swift/parseSwiftManifest", "path", path)
	defer trace.StartRegion(ctx, "swift.parseSwiftManifest").End()

	def := []*model.PackageData{{PackageType: "swift", PrimaryLanguage: "Swift", DatasourceID: "swift_package_manifest_json"}}

	name := filepath.Base(path)
	if name == "Package.swift" {
		zlog.Warn(ctx).Msg("raw Package.swift requires the Swift toolchain to dump JSON; skipping")
		return def, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read swift manifest JSON")
		return def, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse swift manifest JSON")
		return def, nil
	}

	pkgName, _ := doc["name"].(string)
	pkg := &model.PackageData{
		PackageType:     "swift",
		Name:            pkgName,
		PrimaryLanguage: "Swift",
		DatasourceID:    "swift_package_manifest_json",
	}
	pkg.Dependencies = swiftDependencies(doc["dependencies"])

	extra := map[string]any{}
	if platforms, ok := doc["platforms"]; ok {
		extra["platforms"] = platforms
	}
	if tv, ok := doc["toolsVersion"].(map[string]any); ok {
		if v, ok := tv["_version"].(string); ok {
			extra["swift_tools_version"] = v
		}
	}
	if len(extra) > 0 {
		pkg.ExtraData = extra
	}

	if pkgName != "" {
		pkg.Purl = purlutil.Build("swift", "", pkgName, "", nil, "")
	}
	return []*model.PackageData{pkg}, nil
}

func swiftDependencies(v any) []*model.Dependency {
	deps, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []*model.Dependency
	for _, d := range deps {
		dep, ok := d.(map[string]any)
		if !ok {
			continue
		}
		scArr, ok := dep["sourceControl"].([]any)
		if !ok || len(scArr) == 0 {
			continue
		}
		source, ok := scArr[0].(map[string]any)
		if !ok {
			continue
		}
		identity, _ := source["identity"].(string)
		namespace, name := extractSwiftNamespaceAndName(source, identity)
		version, isPinned := extractSwiftVersionRequirement(source)

		out = append(out, &model.Dependency{
			Purl:                 createSwiftDependencyPurl(namespace, name, version, isPinned),
			ExtractedRequirement: version,
			Scope:                "dependencies",
			IsRuntime:            true,
			IsPinned:             isPinned,
			IsDirect:             true,
		})
	}
	return out
}

func extractSwiftNamespaceAndName(source map[string]any, identity string) (namespace, name string) {
	loc, ok := source["location"].(map[string]any)
	if !ok {
		return "", identity
	}
	remote, ok := loc["remote"].([]any)
	if !ok || len(remote) == 0 {
		return "", identity
	}
	first, ok := remote[0].(map[string]any)
	if !ok {
		return "", identity
	}
	urlString, ok := first["urlString"].(string)
	if !ok {
		return "", identity
	}
	return swiftNamespaceAndNameFromURL(urlString)
}

// swiftNamespaceAndNameFromURL parses a repository URL into (namespace,
// name), e.g. https://github.com/apple/swift-argument-parser.git yields
// ("github.com/apple", "swift-argument-parser").
func swiftNamespaceAndNameFromURL(url string) (namespace, name string) {
	var hostname, path string
	var hasHost bool
	switch {
	case strings.HasPrefix(url, "https://"):
		hasHost = true
		rest := strings.TrimSuffix(strings.TrimPrefix(url, "https://"), "/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			hostname, path = rest[:idx], rest[idx+1:]
		} else {
			hostname = rest
		}
	case strings.HasPrefix(url, "http://"):
		hasHost = true
		rest := strings.TrimSuffix(strings.TrimPrefix(url, "http://"), "/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			hostname, path = rest[:idx], rest[idx+1:]
		} else {
			hostname = rest
		}
	default:
		path = url
	}

	cleanPath := strings.TrimSuffix(path, ".git")
	cleanPath = strings.TrimRight(cleanPath, "/")

	if hasHost {
		canonical := hostname
		if cleanPath != "" {
			canonical = hostname + "/" + cleanPath
		}
		if idx := strings.LastIndexByte(canonical, '/'); idx >= 0 {
			return canonical[:idx], canonical[idx+1:]
		}
		return "", canonical
	}
	if idx := strings.LastIndexByte(cleanPath, '/'); idx >= 0 {
		return cleanPath[:idx], cleanPath[idx+1:]
	}
	return "", cleanPath
}

// extractSwiftVersionRequirement handles the four SwiftPM requirement
// kinds: exact, range, branch, revision.
func extractSwiftVersionRequirement(source map[string]any) (version string, isPinned bool) {
	requirement, ok := source["requirement"].(map[string]any)
	if !ok {
		return "", false
	}
	if exact, ok := requirement["exact"].([]any); ok && len(exact) > 0 {
		if v, ok := exact[0].(string); ok {
			return v, true
		}
	}
	if rng, ok := requirement["range"].([]any); ok && len(rng) > 0 {
		if bound, ok := rng[0].(map[string]any); ok {
			lower, lok := bound["lowerBound"].(string)
			upper, uok := bound["upperBound"].(string)
			if lok && uok {
				return fmt.Sprintf("vers:swift/>=%s|<%s", lower, upper), false
			}
		}
	}
	if branch, ok := requirement["branch"].([]any); ok && len(branch) > 0 {
		if v, ok := branch[0].(string); ok {
			return v, false
		}
	}
	if revision, ok := requirement["revision"].([]any); ok && len(revision) > 0 {
		if v, ok := revision[0].(string); ok {
			return v, true
		}
	}
	return "", false
}

func createSwiftDependencyPurl(namespace, name, version string, isPinned bool) string {
	v := ""
	if isPinned {
		v = version
	}
	return purlutil.Build("swift", namespace, name, v, nil, "")
}
