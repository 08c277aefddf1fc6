// Package nuget parses .NET/NuGet ecosystem manifests: the legacy
// packages.config, .nuspec package specifications, packages.lock.json
// lockfiles, and .nupkg package archives.
//
// Grounded on original_source/src/parsers/nuget.rs, re-expressed with
// encoding/xml struct tags rather than the original's streaming quick_xml
// tokenizer, the same trade the corpus's maven package makes for pom.xml
// (see internal/parsers/maven/pom.go) since Go's struct-tag XML decoding
// covers this element shape directly without manual state tracking.
package nuget

import (
	"archive/zip"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
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
		ID:               "nuget_packages_config",
		Description:      ".NET packages.config manifest",
		Patterns:         []string{"**/packages.config"},
		DefaultEcosystem: "nuget",
		PrimaryLanguage:  "C#",
		DocumentationURL: "https://learn.microsoft.com/en-us/nuget/reference/packages-config",
		DatasourceID:     "nuget_packages_config",
		Mode:             registry.Standalone,
		Parse:            parsePackagesConfig,
	})
	registry.Register(registry.Descriptor{
		ID:               "nuget_nuspec",
		Description:      ".NET .nuspec package specification",
		Patterns:         []string{"**/*.nuspec"},
		DefaultEcosystem: "nuget",
		PrimaryLanguage:  "C#",
		DocumentationURL: "https://learn.microsoft.com/en-us/nuget/reference/nuspec",
		DatasourceID:     "nuget_nuspec",
		Mode:             registry.Standalone,
		Parse:            parseNuspecFile,
	})
	registry.Register(registry.Descriptor{
		ID:               "nuget_packages_lock",
		Description:      ".NET packages.lock.json lockfile",
		Patterns:         []string{"**/packages.lock.json"},
		DefaultEcosystem: "nuget",
		PrimaryLanguage:  "C#",
		DocumentationURL: "https://learn.microsoft.com/en-us/nuget/consume-packages/package-references-in-project-files#locking-dependencies",
		DatasourceID:     "nuget_packages_lock",
		Mode:             registry.Standalone,
		Parse:            parsePackagesLock,
	})
	registry.Register(registry.Descriptor{
		ID:               "nuget_nupkg",
		Description:      ".NET .nupkg package archive",
		Patterns:         []string{"**/*.nupkg"},
		DefaultEcosystem: "nuget",
		PrimaryLanguage:  "C#",
		DocumentationURL: "https://learn.microsoft.com/en-us/nuget/create-packages/creating-a-package",
		DatasourceID:     "nuget_nupkg",
		Mode:             registry.Standalone,
		Parse:            parseNupkg,
	})
}

func defaultFragment(datasourceID string) []*model.PackageData {
	return []*model.PackageData{{PackageType: "nuget", PrimaryLanguage: "C#", DatasourceID: datasourceID}}
}

type packagesConfigXML struct {
	Package []struct {
		ID              string `xml:"id,attr"`
		Version         string `xml:"version,attr"`
		TargetFramework string `xml:"targetFramework,attr"`
	} `xml:"package"`
}

func parsePackagesConfig(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nuget/parsePackagesConfig", "path", path)
	defer trace.StartRegion(ctx, "nuget.parsePackagesConfig").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read packages.config")
		return defaultFragment("nuget_packages_config"), nil
	}
	var doc packagesConfigXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse packages.config")
		return defaultFragment("nuget_packages_config"), nil
	}

	pkg := &model.PackageData{PackageType: "nuget", PrimaryLanguage: "C#", DatasourceID: "nuget_packages_config"}
	for _, p := range doc.Package {
		if p.ID == "" {
			continue
		}
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Build("nuget", "", p.ID, "", nil, ""),
			ExtractedRequirement: p.Version,
			Scope:                p.TargetFramework,
			IsRuntime:            true,
			IsPinned:             true,
			IsDirect:             true,
		})
	}
	return []*model.PackageData{pkg}, nil
}

type nuspecDependencyXML struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
	Include string `xml:"include,attr"`
	Exclude string `xml:"exclude,attr"`
}

type nuspecXML struct {
	Metadata struct {
		ID          string `xml:"id"`
		Version     string `xml:"version"`
		Summary     string `xml:"summary"`
		Description string `xml:"description"`
		Title       string `xml:"title"`
		ProjectURL  string `xml:"projectUrl"`
		Authors     string `xml:"authors"`
		Owners      string `xml:"owners"`
		License     string `xml:"license"`
		LicenseURL  string `xml:"licenseUrl"`
		Copyright   string `xml:"copyright"`
		Repository  struct {
			Type string `xml:"type,attr"`
			URL  string `xml:"url,attr"`
		} `xml:"repository"`
		Dependencies struct {
			Dependency []nuspecDependencyXML `xml:"dependency"`
			Group      []struct {
				TargetFramework string                 `xml:"targetFramework,attr"`
				Dependency      []nuspecDependencyXML `xml:"dependency"`
			} `xml:"group"`
		} `xml:"dependencies"`
	} `xml:"metadata"`
}

func parseNuspecFile(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nuget/parseNuspecFile", "path", path)
	defer trace.StartRegion(ctx, "nuget.parseNuspecFile").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read .nuspec")
		return defaultFragment("nuget_nuspec"), nil
	}
	pkg, ok := parseNuspecXML(raw, "nuget_nuspec")
	if !ok {
		zlog.Warn(ctx).Msg("failed to parse .nuspec")
		return defaultFragment("nuget_nuspec"), nil
	}
	return []*model.PackageData{pkg}, nil
}

// parseNuspecXML decodes a .nuspec document, shared between the standalone
// .nuspec parser and the .nupkg archive parser which extracts the same
// document from inside the ZIP.
func parseNuspecXML(raw []byte, datasourceID string) (*model.PackageData, bool) {
	var doc nuspecXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	m := doc.Metadata

	name := strings.TrimSpace(m.ID)
	version := strings.TrimSpace(m.Version)

	pkg := &model.PackageData{
		PackageType:     "nuget",
		Name:            name,
		Version:         version,
		PrimaryLanguage: "C#",
		DatasourceID:    datasourceID,
		Description:     buildNugetDescription(m.Summary, m.Description, m.Title, name),
	}
	pkg.URLs.Homepage = strings.TrimSpace(m.ProjectURL)
	if lic := strings.TrimSpace(m.License); lic != "" {
		pkg.LicenseStatement = lic
	} else if licURL := strings.TrimSpace(m.LicenseURL); licURL != "" {
		pkg.LicenseStatement = licURL
	}
	if author := strings.TrimSpace(m.Authors); author != "" {
		pkg.Parties = append(pkg.Parties, model.Party{Role: "author", Name: author})
	}
	if owner := strings.TrimSpace(m.Owners); owner != "" {
		pkg.Parties = append(pkg.Parties, model.Party{Role: "owner", Name: owner})
	}

	if repoURL := strings.TrimSpace(m.Repository.URL); repoURL != "" {
		if repoType := strings.TrimSpace(m.Repository.Type); repoType != "" {
			pkg.URLs.VCS = repoType + "+" + repoURL
		} else {
			pkg.URLs.VCS = repoURL
		}
	}

	for _, d := range m.Dependencies.Dependency {
		if dep := buildNuspecDependency(d, ""); dep != nil {
			pkg.Dependencies = append(pkg.Dependencies, dep)
		}
	}
	for _, g := range m.Dependencies.Group {
		for _, d := range g.Dependency {
			if dep := buildNuspecDependency(d, g.TargetFramework); dep != nil {
				pkg.Dependencies = append(pkg.Dependencies, dep)
			}
		}
	}

	if name != "" && version != "" {
		pkg.URLs.Repository = fmt.Sprintf("https://www.nuget.org/packages/%s/%s", name, version)
		pkg.URLs.Download = fmt.Sprintf("https://www.nuget.org/api/v2/package/%s/%s", name, version)
		pkg.URLs.APIData = fmt.Sprintf("https://api.nuget.org/v3/registration3/%s/%s.json", strings.ToLower(name), version)
	}
	if name != "" {
		pkg.Purl = purlutil.Build("nuget", "", name, version, nil, "")
	}
	return pkg, true
}

func buildNuspecDependency(d nuspecDependencyXML, framework string) *model.Dependency {
	if d.ID == "" {
		return nil
	}
	extra := map[string]any{}
	if framework != "" {
		extra["framework"] = framework
	}
	if d.Include != "" {
		extra["include"] = d.Include
	}
	if d.Exclude != "" {
		extra["exclude"] = d.Exclude
	}
	dep := &model.Dependency{
		Purl:                 purlutil.Build("nuget", "", d.ID, "", nil, ""),
		ExtractedRequirement: d.Version,
		Scope:                "dependency",
		IsRuntime:            true,
		IsDirect:             true,
	}
	if len(extra) > 0 {
		dep.ExtraData = extra
	}
	return dep
}

// buildNugetDescription combines summary, description and title the way
// Python ScanCode's build_description does: description wins over a summary
// it already contains, and title is prepended unless it repeats the name.
func buildNugetDescription(summary, description, title, name string) string {
	summary = strings.TrimSpace(summary)
	description = strings.TrimSpace(description)
	title = strings.TrimSpace(title)

	var result string
	switch {
	case summary == "" && description == "":
		return ""
	case summary != "" && description == "":
		result = summary
	case summary == "" && description != "":
		result = description
	default:
		if strings.Contains(description, summary) {
			result = description
		} else {
			result = summary + "\n" + description
		}
	}
	if title != "" && title != name {
		result = title + "\n" + result
	}
	return result
}

type packagesLockJSON struct {
	Dependencies map[string]map[string]packagesLockDepJSON `json:"dependencies"`
}

type packagesLockDepJSON struct {
	Type        string `json:"type"`
	Requested   string `json:"requested"`
	Resolved    string `json:"resolved"`
	ContentHash string `json:"contentHash"`
}

func parsePackagesLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nuget/parsePackagesLock", "path", path)
	defer trace.StartRegion(ctx, "nuget.parsePackagesLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read packages.lock.json")
		return defaultFragment("nuget_packages_lock"), nil
	}
	var doc packagesLockJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse packages.lock.json")
		return defaultFragment("nuget_packages_lock"), nil
	}

	pkg := &model.PackageData{PackageType: "nuget", PrimaryLanguage: "C#", DatasourceID: "nuget_packages_lock"}

	frameworks := make([]string, 0, len(doc.Dependencies))
	for fw := range doc.Dependencies {
		frameworks = append(frameworks, fw)
	}
	sort.Strings(frameworks)

	for _, fw := range frameworks {
		names := make([]string, 0, len(doc.Dependencies[fw]))
		for name := range doc.Dependencies[fw] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			info := doc.Dependencies[fw][name]
			var isDirect bool
			switch info.Type {
			case "Direct":
				isDirect = true
			case "Transitive":
				isDirect = false
			}
			requirement := info.Requested
			if requirement == "" {
				requirement = info.Resolved
			}
			extra := map[string]any{"target_framework": fw}
			if info.ContentHash != "" {
				extra["content_hash"] = info.ContentHash
			}
			pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
				Purl:                 purlutil.Build("nuget", "", name, info.Resolved, nil, ""),
				ExtractedRequirement: requirement,
				Scope:                fw,
				IsRuntime:            true,
				IsPinned:             true,
				IsDirect:             isDirect,
				ExtraData:            extra,
			})
		}
	}
	return []*model.PackageData{pkg}, nil
}

// zip-bomb guards mirrored from original_source/src/parsers/nuget.rs.
const (
	maxArchiveSize     = 100 * 1024 * 1024
	maxFileSize        = 50 * 1024 * 1024
	maxCompressionRatio = 100.0
)

func parseNupkg(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "nuget/parseNupkg", "path", path)
	defer trace.StartRegion(ctx, "nuget.parseNupkg").End()

	pkg, err := extractNupkgArchive(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to extract .nupkg")
		return defaultFragment("nuget_nupkg"), nil
	}
	return []*model.PackageData{pkg}, nil
}

func extractNupkgArchive(path string) (*model.PackageData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("nuget: stat %s: %w", path, err)
	}
	if info.Size() > maxArchiveSize {
		return nil, fmt.Errorf("nuget: archive %s too large: %d bytes", path, info.Size())
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("nuget: open archive %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".nuspec") {
			continue
		}
		if f.UncompressedSize64 > maxFileSize {
			return nil, fmt.Errorf("nuget: .nuspec in %s too large: %d bytes", path, f.UncompressedSize64)
		}
		if f.CompressedSize64 > 0 {
			ratio := float64(f.UncompressedSize64) / float64(f.CompressedSize64)
			if ratio > maxCompressionRatio {
				return nil, fmt.Errorf("nuget: .nuspec in %s has suspicious compression ratio %.2f:1", path, ratio)
			}
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("nuget: open %s in %s: %w", f.Name, path, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("nuget: read %s in %s: %w", f.Name, path, err)
		}

		pkg, ok := parseNuspecXML(raw, "nuget_nupkg")
		if !ok {
			return nil, fmt.Errorf("nuget: parse .nuspec in %s: invalid xml", path)
		}
		return pkg, nil
	}
	return nil, fmt.Errorf("nuget: no .nuspec found in %s", path)
}
