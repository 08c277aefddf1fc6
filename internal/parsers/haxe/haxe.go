// Package haxe parses haxelib.json, the Haxelib package manifest.
//
// Grounded on original_source/src/parsers/haxe.rs.
package haxe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/trace"
	"sort"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "haxelib_json",
		Description:      "Haxelib package manifest",
		Patterns:         []string{"haxelib.json"},
		DefaultEcosystem: "haxe",
		PrimaryLanguage:  "Haxe",
		DocumentationURL: "https://lib.haxe.org/documentation/",
		DatasourceID:     "haxelib_json",
		Mode:             registry.Standalone,
		Parse:            parseHaxelibJSON,
	})
}

type haxelibJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	License      string            `json:"license"`
	URL          string            `json:"url"`
	Description  string            `json:"description"`
	Tags         []string          `json:"tags"`
	Contributors []string          `json:"contributors"`
	Dependencies map[string]string `json:"dependencies"`
}

func parseHaxelibJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "haxe/parseHaxelibJSON", "path", path)
	defer trace.StartRegion(ctx, "haxe.parseHaxelibJSON").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("haxe: read %s: %w", path, err)
	}
	var h haxelibJSON
	if err := json.Unmarshal(raw, &h); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse haxelib.json")
		return []*model.PackageData{{PackageType: "haxe", PrimaryLanguage: "Haxe", DatasourceID: "haxelib_json"}}, nil
	}

	pkg := &model.PackageData{
		PackageType:      "haxe",
		Name:             h.Name,
		Version:          h.Version,
		PrimaryLanguage:  "Haxe",
		Description:      h.Description,
		Keywords:         h.Tags,
		LicenseStatement: h.License,
		DatasourceID:     "haxelib_json",
	}
	pkg.URLs.Homepage = h.URL
	if h.Name != "" {
		pkg.Purl = purlutil.Build("haxe", "", h.Name, h.Version, nil, "")
		pkg.URLs.Repository = "https://lib.haxe.org/p/" + h.Name
		if h.Version != "" {
			dl := fmt.Sprintf("https://lib.haxe.org/p/%s/%s/download/", h.Name, h.Version)
			pkg.URLs.Download = dl
			pkg.URLs.CodeView = dl
		}
	}
	for _, c := range h.Contributors {
		pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "contributor", Name: c, URL: "https://lib.haxe.org/u/" + c})
	}

	names := make([]string, 0, len(h.Dependencies))
	for n := range h.Dependencies {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		v := h.Dependencies[n]
		pinned := v != ""
		dep := &model.Dependency{
			Purl:                 purlutil.Build("haxe", "", n, v, nil, ""),
			ExtractedRequirement: v,
			IsRuntime:            true,
			IsPinned:             pinned,
			IsDirect:             true,
		}
		if pinned {
			dep.ResolvedPackage = &model.ResolvedPackage{PackageData: model.PackageData{
				PackageType: "haxe", Name: n, Version: v,
				Purl: purlutil.Build("haxe", "", n, v, nil, ""),
			}}
		}
		pkg.Dependencies = append(pkg.Dependencies, dep)
	}
	return []*model.PackageData{pkg}, nil
}
