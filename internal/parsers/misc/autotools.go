// Package misc collects small, single-purpose parsers that don't warrant
// their own package: Autotools configure scripts, FreeBSD compact
// manifests, third-party attribution READMEs, and Conan conandata.yml.
//
// Each is grounded directly on its matching original_source/src/parsers/*.rs
// file; none has a corpus Go analogue, so each uses whichever stdlib
// facility the format calls for (line scanning for key:value text,
// go.yaml.in/yaml/v2 for YAML and for the FreeBSD manifest, whose JSON is
// also valid YAML) consistent with the
// libraries already adopted elsewhere in this module for those shapes.
package misc

import (
	"context"
	"path/filepath"
	"runtime/trace"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "autotools_configure",
		Description:      "Autotools configure / configure.ac script",
		Patterns:         []string{"**/configure", "**/configure.ac"},
		DefaultEcosystem: "autotools",
		PrimaryLanguage:  "C",
		DocumentationURL: "https://www.gnu.org/software/autoconf/",
		DatasourceID:     "autotools_configure",
		Mode:             registry.Standalone,
		Parse:            parseAutotoolsConfigure,
	})
}

// parseAutotoolsConfigure does not read the file; it only uses the parent
// directory name as the package name, matching
// original_source/src/parsers/autotools.rs.
func parseAutotoolsConfigure(ctx context.Context, path string) ([]*model.PackageData, error) {
	defer trace.StartRegion(ctx, "misc.parseAutotoolsConfigure").End()
	name := filepath.Base(filepath.Dir(path))
	return []*model.PackageData{{
		PackageType:  "autotools",
		Name:         name,
		DatasourceID: "autotools_configure",
	}}, nil
}
