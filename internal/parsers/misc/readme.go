package misc

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "readme_attribution",
		Description:      "third-party attribution README (README.chromium, README.android, ...)",
		Patterns:         []string{"**/README.android", "**/README.chromium", "**/README.facebook", "**/README.google", "**/README.thirdparty"},
		DefaultEcosystem: "readme",
		DatasourceID:     "readme",
		Mode:             registry.Standalone,
		Parse:            parseReadmeAttribution,
	})
}

// parseReadmeAttribution extracts key:value (or key=value) pairs from a
// semi-structured attribution README, grounded on
// original_source/src/parsers/readme.rs. When a colon and an equals sign
// both appear on a line, whichever comes first is treated as the
// separator.
func parseReadmeAttribution(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "misc/parseReadmeAttribution", "path", path)
	defer trace.StartRegion(ctx, "misc.parseReadmeAttribution").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("misc: open %s: %w", path, err)
	}
	defer f.Close()

	pkg := &model.PackageData{PackageType: "readme", DatasourceID: "readme"}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := splitReadmeLine(line)
		if !ok || key == "" || value == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "name", "project":
			pkg.Name = value
		case "version":
			pkg.Version = value
		case "download link", "downloaded from":
			pkg.URLs.Download = value
		case "homepage", "website", "repo", "source", "upstream", "url", "project url":
			pkg.URLs.Homepage = value
		case "licence", "license":
			pkg.LicenseStatement = value
		}
	}
	if pkg.Name == "" {
		pkg.Name = filepath.Base(filepath.Dir(path))
	}
	return []*model.PackageData{pkg}, nil
}

func splitReadmeLine(line string) (key, value string, ok bool) {
	idxColon := strings.IndexByte(line, ':')
	idxEquals := strings.IndexByte(line, '=')
	var sep int
	switch {
	case idxColon >= 0 && idxEquals >= 0:
		if idxColon < idxEquals {
			sep = idxColon
		} else {
			sep = idxEquals
		}
	case idxColon >= 0:
		sep = idxColon
	case idxEquals >= 0:
		sep = idxEquals
	default:
		return "", "", false
	}
	return strings.TrimSpace(line[:sep]), strings.TrimSpace(line[sep+1:]), true
}
