// Package conda parses conda-meta/*.json, the installed-package records
// conda environments keep in their conda-meta/ directory (one JSON file per
// installed package).
//
// No original_source/src/parsers/conda.rs file was retrieved for this
// exercise, only original_source/src/parsers/conda_meta_json_test.rs; the
// parser below is grounded on that test's field names and the path match
// rule (anything under a conda-meta/ directory, not just package.json at
// its root). The test suite also references CondaMetaYamlParser and
// CondaEnvironmentYmlParser (meta.yaml / environment.yml) through
// conda_golden_test.rs, but every one of those golden cases is
// #[ignore]-d with no accompanying fixture content retrieved, and
// conda_meta_json is the only conda datasource this module's closed
// datasource set names; meta.yaml/environment.yml are left unimplemented.
package conda

import (
	"context"
	"encoding/json"
	"os"
	"runtime/trace"
	"strconv"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "conda_meta_json",
		Description:      "conda-meta installed package record",
		Patterns:         []string{"**/conda-meta/*.json"},
		DefaultEcosystem: "conda",
		PrimaryLanguage:  "Python",
		DatasourceID:     "conda_meta_json",
		Mode:             registry.Standalone,
		Parse:            parseCondaMetaJSON,
	})
}

type condaMetaJSON struct {
	Name                    string   `json:"name"`
	Version                 string   `json:"version"`
	License                 string   `json:"license"`
	URL                     string   `json:"url"`
	Size                    int64    `json:"size"`
	MD5                     string   `json:"md5"`
	SHA256                  string   `json:"sha256"`
	RequestedSpec           string   `json:"requested_spec"`
	Channel                 string   `json:"channel"`
	ExtractedPackageDir     string   `json:"extracted_package_dir"`
	Files                   []string `json:"files"`
	PackageTarballFullPath  string   `json:"package_tarball_full_path"`
}

func parseCondaMetaJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "conda/parseCondaMetaJSON", "path", path)
	defer trace.StartRegion(ctx, "conda.parseCondaMetaJSON").End()

	def := func() []*model.PackageData {
		return []*model.PackageData{{PackageType: "conda", PrimaryLanguage: "Python", DatasourceID: "conda_meta_json"}}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read conda-meta json")
		return def(), nil
	}
	return []*model.PackageData{parseCondaMetaContent(string(raw))}, nil
}

func parseCondaMetaContent(content string) *model.PackageData {
	pkg := &model.PackageData{PackageType: "conda", PrimaryLanguage: "Python", DatasourceID: "conda_meta_json"}

	var doc condaMetaJSON
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return pkg
	}

	pkg.Name = doc.Name
	pkg.Version = doc.Version
	pkg.LicenseStatement = doc.License
	pkg.URLs.Download = doc.URL

	if doc.MD5 != "" {
		pkg.Checksums = append(pkg.Checksums, model.Checksum{Algorithm: "md5", Value: doc.MD5})
	}
	if doc.SHA256 != "" {
		pkg.Checksums = append(pkg.Checksums, model.Checksum{Algorithm: "sha256", Value: doc.SHA256})
	}

	extra := map[string]any{}
	if doc.Size != 0 {
		extra["size"] = strconv.FormatInt(doc.Size, 10)
	}
	if doc.RequestedSpec != "" {
		extra["requested_spec"] = doc.RequestedSpec
	}
	if doc.Channel != "" {
		extra["channel"] = doc.Channel
	}
	if doc.ExtractedPackageDir != "" {
		extra["extracted_package_dir"] = doc.ExtractedPackageDir
	}
	if doc.PackageTarballFullPath != "" {
		extra["package_tarball_full_path"] = doc.PackageTarballFullPath
	}
	if len(doc.Files) > 0 {
		files := make([]any, len(doc.Files))
		for i, f := range doc.Files {
			files[i] = f
		}
		extra["files"] = files
	}
	if len(extra) > 0 {
		pkg.ExtraData = extra
	}

	if doc.Name != "" {
		pkg.Purl = purlutil.Build("conda", "", doc.Name, doc.Version, nil, "")
	}
	return pkg
}
