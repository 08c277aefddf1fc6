// Package cran parses CRAN R package DESCRIPTION files: a DCF
// (Debian-Control-File) format with RFC822-like field:value pairs and
// space-indented continuation lines.
//
// Grounded on original_source/src/parsers/cran.rs. Unlike dpkg's status
// file, a DESCRIPTION's continuation lines are joined with a single space
// rather than kept as separate folded lines, and field names are
// case-sensitive with no repeated keys — net/textproto's MIME-header
// reader does not fit that shape, so this is a small from-scratch DCF
// scanner matching the original's parse_dcf exactly.
package cran

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "cran_description",
		Description:      "CRAN R package DESCRIPTION manifest",
		Patterns:         []string{"DESCRIPTION"},
		DefaultEcosystem: "cran",
		PrimaryLanguage:  "R",
		DocumentationURL: "https://cran.r-project.org/doc/manuals/r-release/R-exts.html#The-DESCRIPTION-file",
		DatasourceID:     "cran_description",
		Mode:             registry.Standalone,
		Parse:            parseDescription,
	})
}

func parseDescription(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cran/parseDescription", "path", path)
	defer trace.StartRegion(ctx, "cran.parseDescription").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cran: read %s: %w", path, err)
	}
	fields := parseDCF(string(raw))

	name := strings.TrimSpace(fields["Package"])
	version := strings.TrimSpace(fields["Version"])

	pkg := &model.PackageData{
		PackageType:     "cran",
		Name:            name,
		Version:         version,
		PrimaryLanguage: "R",
		DatasourceID:    "cran_description",
	}
	if name != "" {
		pkg.Purl = purlutil.Build("cran", "", name, version, nil, "")
		pkg.URLs.Repository = "https://cran.r-project.org/package=" + name
	}
	pkg.Description = buildDescription(fields)
	if lic, ok := fields["License"]; ok {
		pkg.LicenseStatement = strings.TrimSpace(lic)
	}
	if u, ok := fields["URL"]; ok {
		first := strings.TrimSpace(strings.Split(u, ",")[0])
		pkg.URLs.Homepage = first
	}
	if m, ok := fields["Maintainer"]; ok {
		if p, ok := parseParty(m, "maintainer"); ok {
			pkg.Parties = append(pkg.Parties, p)
		}
	}
	if a, ok := fields["Author"]; ok {
		for _, part := range strings.Split(a, ",\n") {
			if p, ok := parseParty(part, "author"); ok {
				pkg.Parties = append(pkg.Parties, p)
			}
		}
	}

	type depField struct {
		field, scope string
	}
	for _, df := range []depField{
		{"Depends", ""}, {"Imports", "imports"}, {"Suggests", "suggests"},
		{"Enhances", "enhances"}, {"LinkingTo", "linkingto"},
	} {
		if deps, ok := fields[df.field]; ok {
			pkg.Dependencies = append(pkg.Dependencies, parseDependencies(deps, df.scope)...)
		}
	}
	return []*model.PackageData{pkg}, nil
}

func parseDCF(content string) map[string]string {
	fields := map[string]string{}
	var currentField string
	var currentValue strings.Builder
	has := false
	flush := func() {
		if has {
			fields[currentField] = currentValue.String()
			currentValue.Reset()
		}
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if has {
				if currentValue.Len() > 0 {
					currentValue.WriteByte(' ')
				}
				currentValue.WriteString(strings.TrimLeft(line, " \t"))
			}
			continue
		}
		if name, val, ok := strings.Cut(line, ":"); ok {
			flush()
			currentField = strings.TrimSpace(name)
			currentValue.WriteString(strings.TrimLeft(val, " \t"))
			has = true
		}
	}
	flush()
	return fields
}

func buildDescription(fields map[string]string) string {
	title := strings.TrimSpace(fields["Title"])
	desc := strings.TrimSpace(fields["Description"])
	switch {
	case title != "" && desc != "":
		return title + "\n" + desc
	case title != "":
		return title
	default:
		return desc
	}
}

func parseParty(info, role string) (model.Party, bool) {
	info = strings.TrimSpace(info)
	if info == "" {
		return model.Party{}, false
	}
	if start := strings.IndexByte(info, '<'); start >= 0 {
		if end := strings.IndexByte(info[start:], '>'); end >= 0 {
			name := strings.TrimSpace(info[:start])
			email := info[start+1 : start+end]
			return model.Party{Type: "person", Role: role, Name: name, Email: email}, true
		}
	}
	if strings.Contains(info, "@") {
		return model.Party{Type: "person", Role: role, Email: info}, true
	}
	return model.Party{Type: "person", Role: role, Name: info}, true
}

var versionConstraintRE = regexp.MustCompile(`^([a-zA-Z0-9.]+)\s*\(([><=]+)\s*([0-9.]+)\)\s*$`)

func parseDependencies(depsStr, scope string) []*model.Dependency {
	var out []*model.Dependency
	for _, dep := range strings.Split(depsStr, ",") {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		name, requirement, pinned := parseVersionConstraint(dep)
		if name == "R" {
			continue
		}
		version := ""
		if pinned {
			version = extractVersionFromRequirement(requirement)
		}
		d := &model.Dependency{
			Purl:                 purlutil.Build("cran", "", name, version, nil, ""),
			ExtractedRequirement: requirement,
			Scope:                scope,
			IsRuntime:            scope == "" || scope == "imports",
			IsOptional:           scope == "suggests" || scope == "enhances",
			IsPinned:             pinned,
			IsDirect:             true,
		}
		out = append(out, d)
	}
	return out
}

func parseVersionConstraint(dep string) (name, requirement string, pinned bool) {
	m := versionConstraintRE.FindStringSubmatch(dep)
	if m == nil {
		return strings.TrimSpace(dep), "", false
	}
	operator := m[2]
	return m[1], operator + " " + m[3], operator == "=="
}

func extractVersionFromRequirement(req string) string {
	fields := strings.Fields(req)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
