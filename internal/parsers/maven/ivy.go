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
		ID:               "maven_ivy_xml",
		Description:      "Apache Ivy module descriptor",
		Patterns:         []string{"ivy.xml"},
		DefaultEcosystem: "maven",
		PrimaryLanguage:  "Java",
		DocumentationURL: "https://ant.apache.org/ivy/history/latest-milestone/ivyfile.html",
		DatasourceID:     "maven_ivy_xml",
		Mode:             registry.Standalone,
		Parse:            parseIvy,
	})
}

type ivyXML struct {
	XMLName xml.Name `xml:"ivy-module"`
	Info    struct {
		Organisation string `xml:"organisation,attr"`
		Module       string `xml:"module,attr"`
		Revision     string `xml:"revision,attr"`
	} `xml:"info"`
	Dependencies struct {
		Dependency []struct {
			Org  string `xml:"org,attr"`
			Name string `xml:"name,attr"`
			Rev  string `xml:"rev,attr"`
			Conf string `xml:"conf,attr"`
		} `xml:"dependency"`
	} `xml:"dependencies"`
}

// parseIvy reuses the Maven type+purl shape for Ivy modules: Ivy resolves
// against the same repositories and coordinate scheme (organisation ~=
// groupId, module ~= artifactId) that pkg:maven already models.
func parseIvy(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "maven/parseIvy", "path", path)
	defer trace.StartRegion(ctx, "maven.parseIvy").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maven: read %s: %w", path, err)
	}
	var doc ivyXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("maven: parse %s: %w", path, err)
	}

	pkg := &model.PackageData{
		PackageType:     "maven",
		Namespace:       doc.Info.Organisation,
		Name:            doc.Info.Module,
		Version:         doc.Info.Revision,
		Purl:            purlutil.Maven(doc.Info.Organisation, doc.Info.Module, doc.Info.Revision),
		DatasourceID:    "maven_ivy_xml",
		PrimaryLanguage: "Java",
	}
	for _, d := range doc.Dependencies.Dependency {
		if d.Name == "" {
			continue
		}
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Maven(d.Org, d.Name, d.Rev),
			ExtractedRequirement: d.Rev,
			Scope:                d.Conf,
			IsRuntime:            d.Conf != "test" && d.Conf != "provided",
			IsPinned:             model.IsPinnedRequirement(d.Rev),
			IsDirect:             true,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType: "maven",
					Namespace:   d.Org,
					Name:        d.Name,
					Version:     d.Rev,
				},
			},
		})
	}
	return []*model.PackageData{pkg}, nil
}
