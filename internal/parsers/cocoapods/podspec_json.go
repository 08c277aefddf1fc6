package cocoapods

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
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
		ID:               "cocoapods_podspec_json",
		Description:      "CocoaPods .podspec.json manifest",
		Patterns:         []string{"**/*.podspec.json"},
		DefaultEcosystem: "cocoapods",
		PrimaryLanguage:  "Objective-C",
		DocumentationURL: "https://guides.cocoapods.org/syntax/podspec.html",
		DatasourceID:     "cocoapods_podspec_json",
		Mode:             registry.Standalone,
		Parse:            parsePodspecJSON,
	})
}

func parsePodspecJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cocoapods/parsePodspecJSON", "path", path)
	defer trace.StartRegion(ctx, "cocoapods.parsePodspecJSON").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read podspec.json")
		return []*model.PackageData{{PackageType: "cocoapods", PrimaryLanguage: "Objective-C", DatasourceID: "cocoapods_podspec_json"}}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse podspec.json")
		return []*model.PackageData{{PackageType: "cocoapods", PrimaryLanguage: "Objective-C", DatasourceID: "cocoapods_podspec_json"}}, nil
	}

	name := strings.TrimSpace(stringField(doc, "name"))
	version := strings.TrimSpace(stringField(doc, "version"))

	pkg := &model.PackageData{
		PackageType:     "cocoapods",
		Name:            name,
		Version:         version,
		PrimaryLanguage: "Objective-C",
		DatasourceID:    "cocoapods_podspec_json",
	}
	pkg.Description = buildPodspecDescription(doc)
	pkg.URLs.Homepage = strings.TrimSpace(stringField(doc, "homepage"))
	pkg.LicenseStatement = extractPodspecLicense(doc)
	vcsURL, downloadURL := extractPodspecSourceURLs(doc)
	pkg.URLs.VCS = vcsURL
	pkg.URLs.Download = downloadURL
	pkg.Parties = extractPodspecParties(doc)
	pkg.Dependencies = extractPodspecDependencies(doc)

	extra := map[string]any{}
	if source, ok := doc["source"]; ok {
		extra["source"] = source
	}
	if deps, ok := doc["dependencies"].(map[string]any); ok && len(deps) > 0 {
		extra["dependencies"] = deps
	}
	extra["podspec.json"] = doc
	pkg.ExtraData = extra

	if name != "" {
		pkg.URLs.Repository = fmt.Sprintf("https://cocoapods.org/pods/%s", name)
	}
	if name != "" && version != "" {
		if downloadURL == "" {
			if pkg.URLs.Homepage != "" {
				downloadURL = fmt.Sprintf("%s/archive/%s.zip", pkg.URLs.Homepage, version)
			} else if repoBase := repoBaseURL(vcsURL); repoBase != "" {
				downloadURL = fmt.Sprintf("%s/archive/refs/tags/%s.zip", repoBase, version)
			}
			pkg.URLs.Download = downloadURL
		}
		if repoBase := repoBaseURL(vcsURL); repoBase != "" {
			pkg.URLs.CodeView = fmt.Sprintf("%s/tree/%s", repoBase, version)
			pkg.URLs.Bug = fmt.Sprintf("%s/issues/", repoBase)
		}
		if hashed := hashedSpecsPath(name); hashed != "" {
			pkg.URLs.APIData = fmt.Sprintf("https://raw.githubusercontent.com/CocoaPods/Specs/blob/master/Specs/%s/%s/%s/%s.podspec.json", hashed, name, version, name)
		}
	}
	if name != "" {
		pkg.Purl = purlutil.Build("cocoapods", "", name, version, nil, "")
	}
	return []*model.PackageData{pkg}, nil
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func buildPodspecDescription(doc map[string]any) string {
	summary := strings.TrimSpace(stringField(doc, "summary"))
	desc := strings.TrimSpace(stringField(doc, "description"))
	switch {
	case summary != "" && desc != "":
		if strings.HasPrefix(desc, summary) {
			return desc
		}
		return summary + ". " + desc
	case desc != "":
		return desc
	default:
		return summary
	}
}

func extractPodspecLicense(doc map[string]any) string {
	lic, ok := doc["license"]
	if !ok {
		return ""
	}
	switch v := lic.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if s, ok := v[k].(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func extractPodspecSourceURLs(doc map[string]any) (vcsURL, downloadURL string) {
	source, ok := doc["source"]
	if !ok {
		return "", ""
	}
	switch v := source.(type) {
	case map[string]any:
		if g, ok := v["git"].(string); ok {
			if g = strings.TrimSpace(g); g != "" {
				vcsURL = g
			}
		}
		if h, ok := v["http"].(string); ok {
			if h = strings.TrimSpace(h); h != "" {
				downloadURL = h
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			vcsURL = s
		}
	}
	return vcsURL, downloadURL
}

func extractPodspecParties(doc map[string]any) []model.Party {
	authors, ok := doc["authors"]
	if !ok {
		return nil
	}
	var parties []model.Party
	switch v := authors.(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			n := strings.TrimSpace(name)
			if n == "" {
				continue
			}
			url := ""
			if s, ok := v[name].(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					if strings.Contains(s, "://") || strings.Contains(s, ".") {
						url = s
					} else {
						url = s + ".com"
					}
				}
			}
			parties = append(parties, model.Party{Type: "organization", Role: "owner", Name: n, URL: url})
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			parties = append(parties, model.Party{Type: "organization", Role: "owner", Name: s})
		}
	}
	return parties
}

func extractPodspecDependencies(doc map[string]any) []*model.Dependency {
	deps, ok := doc["dependencies"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(deps))
	for k := range deps {
		names = append(names, k)
	}
	sort.Strings(names)
	var out []*model.Dependency
	for _, name := range names {
		n := strings.TrimSpace(name)
		if n == "" {
			continue
		}
		requirement := ""
		if s, ok := deps[name].(string); ok {
			requirement = strings.TrimSpace(s)
		}
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("cocoapods", "", n, "", nil, ""),
			ExtractedRequirement: requirement,
			Scope:                "dependencies",
			IsRuntime:            true,
		})
	}
	return out
}

func repoBaseURL(vcsURL string) string {
	if vcsURL == "" {
		return ""
	}
	return strings.TrimSuffix(vcsURL, ".git")
}

// hashedSpecsPath mirrors the CocoaPods Specs CDN layout: the first three
// hex characters of the MD5 hash of the pod name select the shard directory.
func hashedSpecsPath(name string) string {
	if name == "" {
		return ""
	}
	sum := md5.Sum([]byte(name))
	hexStr := fmt.Sprintf("%x", sum)
	if len(hexStr) >= 3 {
		return hexStr[:3]
	}
	return hexStr
}
