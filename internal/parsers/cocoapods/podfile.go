// Package cocoapods parses CocoaPods Podfile, Podfile.lock and
// *.podspec.json manifests.
//
// Grounded on original_source/src/parsers/podfile.rs,
// original_source/src/parsers/podfile_lock.rs and
// original_source/src/parsers/podspec_json.rs. None of the corpus's Go
// example repos carry a Ruby-DSL manifest parser, so the Podfile scanner
// below is a from-scratch regex port rather than an adaptation of a Go
// file, matching the original's "regex over full Ruby AST" approach.
package cocoapods

import (
	"context"
	"os"
	"regexp"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "cocoapods_podfile",
		Description:      "CocoaPods Podfile manifest",
		Patterns:         []string{"**/Podfile", "**/*.podfile"},
		DefaultEcosystem: "cocoapods",
		PrimaryLanguage:  "Objective-C",
		DocumentationURL: "https://guides.cocoapods.org/using/the-podfile.html",
		DatasourceID:     "cocoapods_podfile",
		Mode:             registry.Standalone,
		Parse:            parsePodfile,
	})
}

var podPattern = regexp.MustCompile(`pod\s+['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)

func parsePodfile(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cocoapods/parsePodfile", "path", path)
	defer trace.StartRegion(ctx, "cocoapods.parsePodfile").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read Podfile")
		return []*model.PackageData{{PackageType: "cocoapods", PrimaryLanguage: "Objective-C", DatasourceID: "cocoapods_podfile"}}, nil
	}

	pkg := &model.PackageData{
		PackageType:     "cocoapods",
		PrimaryLanguage: "Objective-C",
		DatasourceID:    "cocoapods_podfile",
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = preProcessPodfileLine(line)
		m := podPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if dep := createPodfileDependency(m[1], m[2]); dep != nil {
			pkg.Dependencies = append(pkg.Dependencies, dep)
		}
	}
	return []*model.PackageData{pkg}, nil
}

func createPodfileDependency(name, versionReq string) *model.Dependency {
	if name == "" {
		return nil
	}
	isPinned := versionReq != "" && !strings.ContainsAny(versionReq, "~><=")
	dep := &model.Dependency{
		Purl:     purlutil.Build("cocoapods", "", name, "", nil, ""),
		Scope:    "runtime",
		IsRuntime: true,
		IsPinned: isPinned,
		IsDirect: true,
	}
	if versionReq != "" {
		dep.ExtractedRequirement = versionReq
	}
	return dep
}

func preProcessPodfileLine(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
