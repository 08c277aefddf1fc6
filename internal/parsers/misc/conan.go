package misc

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"

	"github.com/quay/zlog"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "conan_conandata_yml",
		Description:      "Conan conandata.yml external source metadata",
		Patterns:         []string{"**/conandata.yml"},
		DefaultEcosystem: "conan",
		PrimaryLanguage:  "C++",
		DocumentationURL: "https://docs.conan.io/2/tutorial/creating_packages/handle_sources_in_packages.html",
		DatasourceID:     "conan_conandata_yml",
		Mode:             registry.Standalone,
		Parse:            parseConanData,
	})
}

type conanSourceInfo struct {
	URL    conanURLValue `yaml:"url"`
	SHA256 string        `yaml:"sha256"`
}

// conanURLValue unmarshals either a single URL string or a list of mirrors,
// matching conandata.yml's untagged UrlValue enum in the Rust original.
type conanURLValue struct {
	urls []string
}

func (u *conanURLValue) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		u.urls = []string{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	u.urls = many
	return nil
}

type conanDataYML struct {
	Sources map[string]conanSourceInfo `yaml:"sources"`
}

// parseConanData emits one PackageData fragment per version listed under
// conandata.yml's "sources" map, grounded on
// original_source/src/parsers/conan_data.rs's parse_conandata_yml.
func parseConanData(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "misc/parseConanData", "path", path)
	defer trace.StartRegion(ctx, "misc.parseConanData").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("misc: read %s: %w", path, err)
	}
	def := func() []*model.PackageData {
		return []*model.PackageData{{PackageType: "conan", PrimaryLanguage: "C++", DatasourceID: "conan_conandata_yml"}}
	}

	var doc conanDataYML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse conandata.yml")
		return def(), nil
	}
	if len(doc.Sources) == 0 {
		return def(), nil
	}

	var out []*model.PackageData
	for version, src := range doc.Sources {
		pkg := &model.PackageData{
			PackageType:     "conan",
			PrimaryLanguage: "C++",
			Version:         version,
			DatasourceID:    "conan_conandata_yml",
		}
		if len(src.urls) > 0 {
			pkg.URLs.Download = src.urls[0]
		}
		if len(src.urls) > 1 {
			pkg.ExtraData = map[string]any{"mirror_urls": src.urls}
		}
		if src.SHA256 != "" {
			pkg.Checksums = []model.Checksum{{Algorithm: "sha256", Value: src.SHA256}}
		}
		out = append(out, pkg)
	}
	return out, nil
}
