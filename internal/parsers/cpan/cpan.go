// Package cpan parses CPAN Perl distribution manifests: META.json
// (CPAN::Meta::Spec v2), META.yml (v1.4) and the MANIFEST file list.
//
// Grounded on original_source/src/parsers/cpan.rs, which documents itself
// as going beyond the distilled spec's stub handlers to extract full
// metadata and dependencies across all four CPAN prereq scopes.
package cpan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/trace"
	"sort"
	"strings"

	"github.com/quay/zlog"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "cpan_meta_json",
		Description:      "CPAN META.json distribution metadata",
		Patterns:         []string{"**/META.json"},
		DefaultEcosystem: "cpan",
		PrimaryLanguage:  "Perl",
		DocumentationURL: "https://metacpan.org/pod/CPAN::Meta::Spec",
		DatasourceID:     "cpan_meta_json",
		Mode:             registry.Standalone,
		Parse:            parseMetaJSON,
	})
	registry.Register(registry.Descriptor{
		ID:               "cpan_meta_yml",
		Description:      "CPAN META.yml distribution metadata",
		Patterns:         []string{"**/META.yml"},
		DefaultEcosystem: "cpan",
		PrimaryLanguage:  "Perl",
		DocumentationURL: "https://metacpan.org/pod/CPAN::Meta::Spec",
		DatasourceID:     "cpan_meta_yml",
		Mode:             registry.Standalone,
		Parse:            parseMetaYML,
	})
	registry.Register(registry.Descriptor{
		ID:               "cpan_manifest",
		Description:      "CPAN MANIFEST file list",
		Patterns:         []string{"**/MANIFEST"},
		DefaultEcosystem: "cpan",
		PrimaryLanguage:  "Perl",
		DocumentationURL: "https://metacpan.org/pod/Module::Manifest",
		DatasourceID:     "cpan_manifest",
		Mode:             registry.Standalone,
		Parse:            parseManifest,
	})
}

func parseMetaJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cpan/parseMetaJSON", "path", path)
	defer trace.StartRegion(ctx, "cpan.parseMetaJSON").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read META.json")
		return []*model.PackageData{{PackageType: "cpan", DatasourceID: "cpan_meta_json"}}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse META.json")
		return []*model.PackageData{{PackageType: "cpan", DatasourceID: "cpan_meta_json"}}, nil
	}

	pkg := &model.PackageData{
		PackageType:     "cpan",
		Name:            stringOrEmpty(doc["name"]),
		Version:         scalarToString(doc["version"]),
		PrimaryLanguage: "Perl",
		Description:     stringOrEmpty(doc["abstract"]),
		DatasourceID:    "cpan_meta_json",
	}
	pkg.LicenseStatement = extractJSONLicense(doc)
	pkg.Parties = extractJSONAuthors(doc)
	pkg.Dependencies = extractJSONDependencies(doc)

	if resources, ok := doc["resources"].(map[string]any); ok {
		pkg.URLs.Homepage = stringOrEmpty(resources["homepage"])
		pkg.URLs.VCS = jsonRepoField(resources["repository"], "url")
		pkg.URLs.CodeView = jsonRepoField(resources["repository"], "web")
		pkg.URLs.Bug = jsonRepoField(resources["bugtracker"], "web")
	}
	return []*model.PackageData{pkg}, nil
}

func parseMetaYML(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cpan/parseMetaYML", "path", path)
	defer trace.StartRegion(ctx, "cpan.parseMetaYML").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read META.yml")
		return []*model.PackageData{{PackageType: "cpan", DatasourceID: "cpan_meta_yml"}}, nil
	}
	var raw2 map[any]any
	if err := yaml.Unmarshal(raw, &raw2); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse META.yml")
		return []*model.PackageData{{PackageType: "cpan", DatasourceID: "cpan_meta_yml"}}, nil
	}
	doc, _ := normalizeYAMLMap(raw2).(map[string]any)

	description := stringOrEmpty(doc["abstract"])
	if description == "" {
		description = stringOrEmpty(doc["description"])
	}

	pkg := &model.PackageData{
		PackageType:     "cpan",
		Name:            stringOrEmpty(doc["name"]),
		Version:         scalarToString(doc["version"]),
		PrimaryLanguage: "Perl",
		Description:     description,
		DatasourceID:    "cpan_meta_yml",
	}
	pkg.LicenseStatement = extractYAMLLicense(doc)
	pkg.Parties = extractYAMLAuthors(doc)
	pkg.Dependencies = extractYAMLDependencies(doc)

	if resources, ok := doc["resources"].(map[string]any); ok {
		pkg.URLs.Homepage = stringOrEmpty(resources["homepage"])
		pkg.URLs.VCS = stringOrEmpty(resources["repository"])
		pkg.URLs.Bug = stringOrEmpty(resources["bugtracker"])
	}
	return []*model.PackageData{pkg}, nil
}

func parseManifest(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cpan/parseManifest", "path", path)
	defer trace.StartRegion(ctx, "cpan.parseManifest").End()

	file, err := os.Open(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read MANIFEST")
		return []*model.PackageData{{PackageType: "cpan", DatasourceID: "cpan_manifest"}}, nil
	}
	defer file.Close()

	pkg := &model.PackageData{PackageType: "cpan", PrimaryLanguage: "Perl", DatasourceID: "cpan_manifest"}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		pkg.FileReferences = append(pkg.FileReferences, model.FileReference{Path: fields[0]})
	}
	return []*model.PackageData{pkg}, nil
}

// normalizeYAMLMap converts go.yaml.in/yaml/v2's generic
// map[interface{}]interface{} decode result into map[string]interface{}
// recursively, since v2 (unlike v3) does not key generic mappings by
// string by default.
func normalizeYAMLMap(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = normalizeYAMLMap(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAMLMap(item)
		}
		return out
	default:
		return v
	}
}

func stringOrEmpty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func scalarToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return ""
	}
}

func extractJSONLicense(doc map[string]any) string {
	switch v := doc["license"].(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " AND ")
	default:
		return ""
	}
}

func extractYAMLLicense(doc map[string]any) string {
	switch v := doc["license"].(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " AND ")
	default:
		return ""
	}
}

func extractJSONAuthors(doc map[string]any) []model.Party {
	authors, ok := doc["author"].([]any)
	if !ok {
		return nil
	}
	var parties []model.Party
	for _, a := range authors {
		s, ok := a.(string)
		if !ok {
			continue
		}
		name, email := parseAuthorString(s)
		parties = append(parties, model.Party{Type: "person", Role: "author", Name: name, Email: email})
	}
	return parties
}

func extractYAMLAuthors(doc map[string]any) []model.Party {
	authors, ok := doc["author"].([]any)
	if !ok {
		return nil
	}
	var parties []model.Party
	for _, a := range authors {
		s, ok := a.(string)
		if !ok {
			continue
		}
		name, email := parseAuthorString(s)
		parties = append(parties, model.Party{Type: "person", Role: "author", Name: name, Email: email})
	}
	return parties
}

func parseAuthorString(s string) (name, email string) {
	start := strings.IndexByte(s, '<')
	end := strings.IndexByte(s, '>')
	if start >= 0 && end > start {
		return strings.TrimSpace(s[:start]), strings.TrimSpace(s[start+1 : end])
	}
	return strings.TrimSpace(s), ""
}

func jsonRepoField(v any, field string) string {
	switch t := v.(type) {
	case string:
		if field == "url" {
			return t
		}
		return ""
	case map[string]any:
		return stringOrEmpty(t[field])
	default:
		return ""
	}
}

type depGroup struct {
	field                string
	scope                string
	isRuntime, isOptional bool
}

var depGroups = []depGroup{
	{"runtime", "runtime", true, false},
	{"build", "build", false, false},
	{"test", "test", false, false},
	{"configure", "configure", false, false},
}

func extractJSONDependencies(doc map[string]any) []*model.Dependency {
	prereqs, ok := doc["prereqs"].(map[string]any)
	if !ok {
		return nil
	}
	var out []*model.Dependency
	for _, g := range depGroups {
		group, ok := prereqs[g.field].(map[string]any)
		if !ok {
			continue
		}
		requires, ok := group["requires"].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, buildDependencyGroup(requires, g.scope, g.isRuntime, g.isOptional)...)
	}
	return out
}

func extractYAMLDependencies(doc map[string]any) []*model.Dependency {
	var out []*model.Dependency
	fieldToGroup := []struct {
		field string
		g     depGroup
	}{
		{"requires", depGroups[0]},
		{"build_requires", depGroups[1]},
		{"test_requires", depGroups[2]},
		{"configure_requires", depGroups[3]},
	}
	for _, fg := range fieldToGroup {
		requires, ok := doc[fg.field].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, buildDependencyGroup(requires, fg.g.scope, fg.g.isRuntime, fg.g.isOptional)...)
	}
	return out
}

func buildDependencyGroup(requires map[string]any, scope string, isRuntime, isOptional bool) []*model.Dependency {
	names := make([]string, 0, len(requires))
	for name := range requires {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []*model.Dependency
	for _, name := range names {
		if name == "perl" {
			continue
		}
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("cpan", "", name, "", nil, ""),
			ExtractedRequirement: scalarToString(requires[name]),
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsDirect:             true,
		})
	}
	return out
}
