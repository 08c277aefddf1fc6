package misc

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "freebsd_compact_manifest",
		Description:      "FreeBSD +COMPACT_MANIFEST package manifest",
		Patterns:         []string{"**/+COMPACT_MANIFEST", "+COMPACT_MANIFEST"},
		DefaultEcosystem: "freebsd",
		DatasourceID:     "freebsd_compact_manifest",
		Mode:             registry.Standalone,
		Parse:            parseFreeBSDManifest,
	})
}

type freebsdManifest struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Description  string   `yaml:"desc"`
	Categories   []string `yaml:"categories"`
	WWW          string   `yaml:"www"`
	Maintainer   string   `yaml:"maintainer"`
	Origin       string   `yaml:"origin"`
	Arch         string   `yaml:"arch"`
	Licenses     []string `yaml:"licenses"`
	LicenseLogic string   `yaml:"licenselogic"`
}

// parseFreeBSDManifest reads a +COMPACT_MANIFEST file, grounded on
// original_source/src/parsers/freebsd.rs. The Rust original notes the file
// is JSON-or-YAML and parses it with serde_yaml, which accepts both; this
// module already depends on go.yaml.in/yaml/v2 (a JSON superset for
// object/array/scalar shapes) for the pnpm lockfile parser, so the same
// decoder covers both encodings here without a second dependency.
func parseFreeBSDManifest(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "misc/parseFreeBSDManifest", "path", path)
	defer trace.StartRegion(ctx, "misc.parseFreeBSDManifest").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("misc: read %s: %w", path, err)
	}
	var m freebsdManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse freebsd manifest")
		return []*model.PackageData{{PackageType: "freebsd", DatasourceID: "freebsd_compact_manifest"}}, nil
	}

	pkg := &model.PackageData{
		PackageType:      "freebsd",
		Name:             m.Name,
		Version:          m.Version,
		Description:      m.Description,
		Keywords:         m.Categories,
		DatasourceID:     "freebsd_compact_manifest",
		LicenseStatement: buildFreeBSDLicenseStatement(m.Licenses, m.LicenseLogic),
	}
	pkg.URLs.Homepage = m.WWW
	if m.Origin != "" {
		pkg.URLs.CodeView = "https://svnweb.freebsd.org/ports/head/" + m.Origin
	}
	if m.Arch != "" && m.Name != "" && m.Version != "" {
		pkg.URLs.Download = fmt.Sprintf("https://pkg.freebsd.org/%s/latest/All/%s-%s.txz", m.Arch, m.Name, m.Version)
	}
	quals := map[string]string{}
	if m.Arch != "" {
		quals["arch"] = m.Arch
	}
	if m.Origin != "" {
		quals["origin"] = m.Origin
	}
	if len(quals) > 0 {
		pkg.Qualifiers = quals
	}
	if m.Maintainer != "" {
		pkg.Parties = []model.Party{{Type: "person", Role: "maintainer", Email: m.Maintainer}}
	}
	return []*model.PackageData{pkg}, nil
}

// buildFreeBSDLicenseStatement mirrors
// original_source/src/parsers/freebsd.rs's build_license_statement:
// "single" keeps the first license, "or"/"dual" joins with " OR ", anything
// else (including a missing licenselogic) joins with " AND ".
func buildFreeBSDLicenseStatement(licenses []string, logic string) string {
	var filtered []string
	for _, l := range licenses {
		l = strings.TrimSpace(l)
		if l != "" {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	switch logic {
	case "single":
		return filtered[0]
	case "or", "dual":
		return strings.Join(filtered, " OR ")
	default:
		return strings.Join(filtered, " AND ")
	}
}
