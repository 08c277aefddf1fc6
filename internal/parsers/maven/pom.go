// Package maven parses Java build manifests: pom.xml, Gradle's
// gradle.lockfile, and Ivy's ivy.xml.
//
// Grounded on original_source/src/parsers/maven.rs for pom.xml element
// walking and original_source/src/parsers/gradle_lock.rs for the
// gradle.lockfile line format, re-expressed with encoding/xml (the only
// XML decoder the corpus uses anywhere, e.g. quay-claircore/alma/parser.go,
// quay-claircore/suse/parser.go, quay-claircore/rhel/parser.go).
package maven

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"runtime/trace"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "maven_pom_xml",
		Description:      "Maven pom.xml project descriptor",
		Patterns:         []string{"pom.xml"},
		DefaultEcosystem: "maven",
		PrimaryLanguage:  "Java",
		DocumentationURL: "https://maven.apache.org/pom.html",
		DatasourceID:     "maven_pom",
		Mode:             registry.Standalone,
		Parse:            parsePom,
	})
}

type pomXML struct {
	XMLName    xml.Name `xml:"project"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	URL        string   `xml:"url"`
	Name       string   `xml:"name"`
	Description string  `xml:"description"`
	Parent     struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
	Licenses struct {
		License []struct {
			Name string `xml:"name"`
			URL  string `xml:"url"`
		} `xml:"license"`
	} `xml:"licenses"`
	Developers struct {
		Developer []struct {
			Name  string `xml:"name"`
			Email string `xml:"email"`
		} `xml:"developer"`
	} `xml:"developers"`
	Dependencies struct {
		Dependency []pomDependency `xml:"dependency"`
	} `xml:"dependencies"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

// parsePom walks pom.xml's element tree with encoding/xml struct tags
// rather than the streaming tokenizer original_source/src/parsers/maven.rs
// uses, since Go's struct-tag XML decoding covers this shape directly.
// groupId/version inherited from <parent> when a module's own are
// omitted, matching Maven's own inheritance rule.
func parsePom(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "maven/parsePom", "path", path)
	defer trace.StartRegion(ctx, "maven.parsePom").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maven: read %s: %w", path, err)
	}
	var pom pomXML
	if err := xml.Unmarshal(raw, &pom); err != nil {
		return nil, fmt.Errorf("maven: parse %s: %w", path, err)
	}

	groupID := firstNonEmpty(pom.GroupID, pom.Parent.GroupID)
	version := firstNonEmpty(pom.Version, pom.Parent.Version)

	pkg := &model.PackageData{
		PackageType:     "maven",
		Namespace:       groupID,
		Name:            pom.ArtifactID,
		Version:         version,
		Purl:            purlutil.Maven(groupID, pom.ArtifactID, version),
		DatasourceID:    "maven_pom",
		PrimaryLanguage: "Java",
		Description:     firstNonEmpty(pom.Description, pom.Name),
		URLs:            model.URLs{Homepage: pom.URL},
	}

	for _, lic := range pom.Licenses.License {
		pkg.LicenseDetections = append(pkg.LicenseDetections, model.LicenseDetection{
			Expression: mapLicenseNameToSPDX(lic.Name),
		})
	}
	if len(pkg.LicenseDetections) > 0 {
		pkg.LicenseStatement = pkg.LicenseDetections[0].Expression
	}
	for _, dev := range pom.Developers.Developer {
		pkg.Parties = append(pkg.Parties, model.Party{Type: "person", Role: "developer", Name: dev.Name, Email: dev.Email})
	}

	for _, d := range pom.Dependencies.Dependency {
		if d.ArtifactID == "" {
			continue
		}
		dg := firstNonEmpty(d.GroupID, groupID)
		isOptional := d.Optional == "true"
		isRuntime := d.Scope != "test" && d.Scope != "provided"
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Maven(dg, d.ArtifactID, d.Version),
			ExtractedRequirement: d.Version,
			Scope:                firstNonEmpty(d.Scope, "compile"),
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             model.IsPinnedRequirement(d.Version),
			IsDirect:             true,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "maven",
					Namespace:       dg,
					Name:            d.ArtifactID,
					Version:         d.Version,
					PrimaryLanguage: "Java",
				},
			},
		})
	}

	return []*model.PackageData{pkg}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// mapLicenseNameToSPDX covers the common declared-license strings Maven
// POMs spell out in full; anything else passes through unchanged.
func mapLicenseNameToSPDX(name string) string {
	switch name {
	case "Apache License, Version 2.0":
		return "Apache-2.0"
	case "MIT License":
		return "MIT"
	case "GNU General Public License v3.0":
		return "GPL-3.0"
	case "BSD 3-Clause License":
		return "BSD-3-Clause"
	default:
		return name
	}
}
