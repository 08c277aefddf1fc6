// Package bower parses bower.json, the manifest for Bower-managed
// front-end JavaScript packages.
//
// No original_source/src/parsers/bower.rs file was retrieved for this
// exercise, only its test suite (original_source/src/parsers/bower_test.rs);
// the parser below is grounded on that test's observed behavior (is_match
// rules, authors array accepting string-or-object entries, license array
// joined with " AND ", dependencies/devDependencies scope classification,
// keywords, is_private) together with
// internal/parsers/npm/packagejson.go's personField pattern for the
// shared "Name <email> (url)" author shorthand.
package bower

import (
	"context"
	"encoding/json"
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
		ID:               "bower_json",
		Description:      "Bower package manifest",
		Patterns:         []string{"**/bower.json", "**/.bower.json", "bower.json", ".bower.json"},
		DefaultEcosystem: "bower",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "bower_json",
		Mode:             registry.Standalone,
		Parse:            parseBowerJSON,
	})
}

type bowerPerson struct {
	raw     string
	name    string
	email   string
	url     string
	isEmpty bool
}

func (p *bowerPerson) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.raw = s
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		URL   string `json:"homepage"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		p.isEmpty = true
		return nil
	}
	p.name, p.email, p.url = obj.Name, obj.Email, obj.URL
	return nil
}

func (p *bowerPerson) toParty() (model.Party, bool) {
	if p == nil || p.isEmpty {
		return model.Party{}, false
	}
	if p.raw != "" {
		name, email, url := parsePersonString(p.raw)
		return model.Party{Type: "person", Role: "author", Name: name, Email: email, URL: url}, name != ""
	}
	if p.name == "" {
		return model.Party{}, false
	}
	return model.Party{Type: "person", Role: "author", Name: p.name, Email: p.email, URL: p.url}, true
}

// parsePersonString splits "Name <email> (url)" shorthand into its parts.
func parsePersonString(s string) (name, email, url string) {
	rest := s
	if i, j := strings.IndexByte(rest, '('), strings.LastIndexByte(rest, ')'); i >= 0 && j > i {
		url = rest[i+1 : j]
		rest = rest[:i] + rest[j+1:]
	}
	if i, j := strings.IndexByte(rest, '<'), strings.LastIndexByte(rest, '>'); i >= 0 && j > i {
		email = rest[i+1 : j]
		rest = rest[:i] + rest[j+1:]
	}
	return strings.TrimSpace(rest), email, url
}

type bowerJSON struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Version      string            `json:"version"`
	Authors      []bowerPerson     `json:"authors"`
	License      json.RawMessage   `json:"license"`
	Keywords     []string          `json:"keywords"`
	Homepage     string            `json:"homepage"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
	DevDeps      map[string]string `json:"devDependencies"`
}

func parseBowerJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "bower/parseBowerJSON", "path", path)
	defer trace.StartRegion(ctx, "bower.parseBowerJSON").End()

	def := []*model.PackageData{{PrimaryLanguage: "JavaScript", DatasourceID: "bower_json"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read bower.json")
		return def, nil
	}
	var doc bowerJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse bower.json")
		return def, nil
	}

	pkg := &model.PackageData{
		PackageType:     "bower",
		Name:            doc.Name,
		Version:         doc.Version,
		PrimaryLanguage: "JavaScript",
		Description:     doc.Description,
		DatasourceID:    "bower_json",
		IsPrivate:       doc.Private,
		Keywords:        doc.Keywords,
	}
	pkg.URLs.Homepage = doc.Homepage
	pkg.LicenseStatement = extractBowerLicense(doc.License)

	for _, a := range doc.Authors {
		a := a
		if party, ok := a.toParty(); ok {
			pkg.Parties = append(pkg.Parties, party)
		}
	}

	pkg.Dependencies = append(pkg.Dependencies, bowerDependencies(doc.Dependencies, "dependencies", true, false)...)
	pkg.Dependencies = append(pkg.Dependencies, bowerDependencies(doc.DevDeps, "devDependencies", false, true)...)

	if doc.Name != "" {
		pkg.Purl = purlutil.Build("bower", "", doc.Name, doc.Version, nil, "")
	}
	return []*model.PackageData{pkg}, nil
}

func extractBowerLicense(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return strings.Join(arr, " AND ")
	}
	return ""
}

func bowerDependencies(deps map[string]string, scope string, isRuntime, isOptional bool) []*model.Dependency {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []*model.Dependency
	for _, name := range names {
		out = append(out, &model.Dependency{
			Purl:                 purlutil.Build("bower", "", name, "", nil, ""),
			ExtractedRequirement: deps[name],
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsDirect:             true,
		})
	}
	return out
}
