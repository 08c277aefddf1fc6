package maven

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "maven_gradle_lockfile",
		Description:      "Gradle dependency lock file",
		Patterns:         []string{"**/gradle.lockfile"},
		DefaultEcosystem: "maven",
		PrimaryLanguage:  "Java",
		DocumentationURL: "https://docs.gradle.org/current/userguide/dependency_locking.html",
		DatasourceID:     "maven_gradle_lockfile",
		Mode:             registry.Standalone,
		Parse:            parseGradleLockfile,
	})
}

// parseGradleLockfile reads gradle.lockfile's "<group>:<artifact>:<version>
// =<hash>" line format, directly grounded on
// original_source/src/parsers/gradle_lock.rs's parse_dependency_line.
func parseGradleLockfile(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "maven/parseGradleLockfile", "path", path)
	defer trace.StartRegion(ctx, "maven.parseGradleLockfile").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maven: open %s: %w", path, err)
	}
	defer f.Close()

	pkg := &model.PackageData{
		PackageType:  "maven",
		DatasourceID: "maven_gradle_lockfile",
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dep, ok := parseGradleLockLine(line)
		if !ok {
			zlog.Debug(ctx).Str("line", line).Msg("skipping malformed gradle.lockfile line")
			continue
		}
		pkg.Dependencies = append(pkg.Dependencies, dep)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("maven: scan %s: %w", path, err)
	}
	return []*model.PackageData{pkg}, nil
}

func parseGradleLockLine(line string) (*model.Dependency, bool) {
	gav, hash, found := strings.Cut(line, "=")
	if !found {
		return nil, false
	}
	parts := strings.Split(gav, ":")
	if len(parts) != 3 {
		return nil, false
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	extra := map[string]any{}
	if group != "" {
		extra["group"] = group
	}
	if artifact != "" {
		extra["artifact"] = artifact
	}
	if hash != "" {
		extra["hash"] = hash
	}
	return &model.Dependency{
		Purl:                 purlutil.Maven(group, artifact, version),
		ExtractedRequirement: version,
		IsRuntime:            true,
		IsPinned:             true,
		ExtraData:            extra,
		ResolvedPackage: &model.ResolvedPackage{
			PackageData: model.PackageData{
				PackageType:     "maven",
				Namespace:       group,
				Name:            artifact,
				Version:         version,
				PrimaryLanguage: "Java",
				DatasourceID:    "maven_gradle_lockfile",
			},
		},
	}, true
}
