// Package chef parses Chef cookbook metadata.json and metadata.rb files.
//
// Grounded on original_source/src/parsers/chef.rs. The Ruby DSL in
// metadata.rb is read with the same line-scanning/regex approach the
// original uses rather than a Ruby parser, since no corpus example
// embeds one.
package chef

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"sort"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "chef_metadata_json",
		Description:      "Chef cookbook metadata.json manifest",
		Patterns:         []string{"**/metadata.json"},
		DefaultEcosystem: "chef",
		PrimaryLanguage:  "Ruby",
		DocumentationURL: "https://docs.chef.io/config_rb_metadata/",
		DatasourceID:     "chef_cookbook_metadata_json",
		Mode:             registry.Standalone,
		Parse:            parseChefMetadataJSON,
	})
	registry.Register(registry.Descriptor{
		ID:               "chef_metadata_rb",
		Description:      "Chef cookbook metadata.rb manifest",
		Patterns:         []string{"**/metadata.rb"},
		DefaultEcosystem: "chef",
		PrimaryLanguage:  "Ruby",
		DocumentationURL: "https://docs.chef.io/config_rb_metadata/",
		DatasourceID:     "chef_cookbook_metadata_rb",
		Mode:             registry.Standalone,
		Parse:            parseChefMetadataRb,
	})
}

type chefFields struct {
	name, version, description, license       string
	maintainerName, maintainerEmail           string
	codeViewURL, bugTrackingURL               string
	deps                                      map[string]string
}

func parseChefMetadataJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "chef/parseChefMetadataJSON", "path", path)
	defer trace.StartRegion(ctx, "chef.parseChefMetadataJSON").End()

	// Guard against Python wheel dist-info metadata.json false positives.
	if strings.HasSuffix(filepath.Base(filepath.Dir(path)), "dist-info") {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read metadata.json")
		return []*model.PackageData{{PackageType: "chef", DatasourceID: "chef_cookbook_metadata_json"}}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse metadata.json")
		return []*model.PackageData{{PackageType: "chef", DatasourceID: "chef_cookbook_metadata_json"}}, nil
	}

	f := chefFields{
		name:            trimmedString(doc, "name"),
		version:         trimmedString(doc, "version"),
		license:         trimmedString(doc, "license"),
		maintainerName:  trimmedString(doc, "maintainer"),
		maintainerEmail: trimmedString(doc, "maintainer_email"),
		codeViewURL:     trimmedString(doc, "source_url"),
		bugTrackingURL:  trimmedString(doc, "issues_url"),
		deps:            map[string]string{},
	}
	f.description = trimmedString(doc, "description")
	if f.description == "" {
		f.description = trimmedString(doc, "long_description")
	}
	for _, field := range []string{"dependencies", "depends"} {
		if depsObj, ok := doc[field].(map[string]any); ok {
			for name, v := range depsObj {
				name = strings.TrimSpace(name)
				constraint := ""
				if s, ok := v.(string); ok {
					constraint = strings.TrimSpace(s)
				}
				f.deps[name] = constraint
			}
		}
	}

	pkg := buildChefPackage(f, "chef_cookbook_metadata_json")
	return []*model.PackageData{pkg}, nil
}

var (
	chefFieldPattern   = regexp.MustCompile(`^\s*(\w+)\s+['"](.+?)['"]`)
	chefDependsPattern = regexp.MustCompile(`^\s*depends\s+['"](.+?)['"](?:\s*,\s*['"](.+?)['"])?`)
	chefIORead         = regexp.MustCompile(`IO\.read\(`)
)

func parseChefMetadataRb(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "chef/parseChefMetadataRb", "path", path)
	defer trace.StartRegion(ctx, "chef.parseChefMetadataRb").End()

	file, err := os.Open(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to open metadata.rb")
		return []*model.PackageData{{PackageType: "chef", DatasourceID: "chef_cookbook_metadata_rb"}}, nil
	}
	defer file.Close()

	fields := map[string]string{}
	deps := map[string]string{}
	allowed := map[string]bool{
		"name": true, "version": true, "description": true, "long_description": true,
		"license": true, "maintainer": true, "maintainer_email": true,
		"source_url": true, "issues_url": true,
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if chefIORead.MatchString(line) {
			continue
		}
		if m := chefDependsPattern.FindStringSubmatch(line); m != nil {
			deps[m[1]] = m[2]
			continue
		}
		if m := chefFieldPattern.FindStringSubmatch(line); m != nil {
			key, value := m[1], m[2]
			if allowed[key] {
				fields[key] = value
			}
		}
	}

	f := chefFields{
		name:            strings.TrimSpace(fields["name"]),
		version:         strings.TrimSpace(fields["version"]),
		license:         strings.TrimSpace(fields["license"]),
		maintainerName:  strings.TrimSpace(fields["maintainer"]),
		maintainerEmail: strings.TrimSpace(fields["maintainer_email"]),
		codeViewURL:     strings.TrimSpace(fields["source_url"]),
		bugTrackingURL:  strings.TrimSpace(fields["issues_url"]),
		deps:            deps,
	}
	f.description = strings.TrimSpace(fields["description"])
	if f.description == "" {
		f.description = strings.TrimSpace(fields["long_description"])
	}

	pkg := buildChefPackage(f, "chef_cookbook_metadata_rb")
	return []*model.PackageData{pkg}, nil
}

func buildChefPackage(f chefFields, datasourceID string) *model.PackageData {
	pkg := &model.PackageData{
		PackageType:      "chef",
		Name:             f.name,
		Version:          f.version,
		PrimaryLanguage:  "Ruby",
		Description:      f.description,
		LicenseStatement: f.license,
		DatasourceID:     datasourceID,
	}
	pkg.URLs.CodeView = f.codeViewURL
	pkg.URLs.Bug = f.bugTrackingURL

	if f.maintainerName != "" || f.maintainerEmail != "" {
		pkg.Parties = append(pkg.Parties, model.Party{Role: "maintainer", Name: f.maintainerName, Email: f.maintainerEmail})
	}

	names := make([]string, 0, len(f.deps))
	for name := range f.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Build("chef", "", name, "", nil, ""),
			ExtractedRequirement: f.deps[name],
			Scope:                "dependencies",
			IsRuntime:            true,
		})
	}

	if f.name != "" && f.version != "" {
		pkg.URLs.Download = fmt.Sprintf("https://supermarket.chef.io/cookbooks/%s/versions/%s/download", f.name, f.version)
		pkg.URLs.Repository = fmt.Sprintf("https://supermarket.chef.io/cookbooks/%s/versions/%s/", f.name, f.version)
		pkg.URLs.APIData = fmt.Sprintf("https://supermarket.chef.io/api/v1/cookbooks/%s/versions/%s", f.name, f.version)
	}
	return pkg
}

func trimmedString(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
