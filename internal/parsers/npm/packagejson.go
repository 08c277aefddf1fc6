// Package npm parses Node.js package manifests and lockfiles: package.json,
// package-lock.json (v1 and v2+), npm-shrinkwrap.json, yarn.lock, and the
// pnpm workspace/lock pair.
//
// Grounded on original_source/src/parsers/npm_lock.rs for lockfile
// semantics (lockfileVersion branching, node_modules/ path decomposition,
// integrity decoding, dev/optional scope classification) and on
// quay-claircore/python/packagescanner.go for package structure (zlog
// context, runtime/trace region, registry-style Scanner shape generalized
// here into a registry.ParseFunc).
package npm

import (
	"context"
	"encoding/json"
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
		ID:               "npm_package_json",
		Description:      "Node.js package.json manifest",
		Patterns:         []string{"package.json"},
		DefaultEcosystem: "npm",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "npm_package_json",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"package-lock.json", ".package-lock.json", "npm-shrinkwrap.json", ".npm-shrinkwrap.json", "yarn.lock", "pnpm-lock.yaml"},
		Parse:            parsePackageJSON,
	})
}

// personField accepts both package.json's "author": "Name <email> (url)"
// string shorthand and the expanded {"name","email","url"} object form.
type personField struct {
	raw     string
	name    string
	email   string
	url     string
	isEmpty bool
}

func (p *personField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.raw = s
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		p.isEmpty = true
		return nil
	}
	p.name, p.email, p.url = obj.Name, obj.Email, obj.URL
	return nil
}

func (p *personField) toParty(role string) (model.Party, bool) {
	if p == nil || p.isEmpty {
		return model.Party{}, false
	}
	if p.raw != "" {
		name, email, url := parsePersonString(p.raw)
		return model.Party{Type: "person", Role: role, Name: name, Email: email, URL: url}, name != ""
	}
	if p.name == "" {
		return model.Party{}, false
	}
	return model.Party{Type: "person", Role: role, Name: p.name, Email: p.email, URL: p.url}, true
}

// parsePersonString splits "Name <email> (url)" shorthand into its parts.
func parsePersonString(s string) (name, email, url string) {
	rest := s
	if i, j := indexByte(rest, '('), lastIndexByte(rest, ')'); i >= 0 && j > i {
		url = rest[i+1 : j]
		rest = rest[:i] + rest[j+1:]
	}
	if i, j := indexByte(rest, '<'), lastIndexByte(rest, '>'); i >= 0 && j > i {
		email = rest[i+1 : j]
		rest = rest[:i] + rest[j+1:]
	}
	return trimSpace(rest), email, url
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func lastIndexByte(s string, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// repoField accepts package.json's "repository" either as a bare string or
// as {"type","url"}.
type repoField struct {
	url string
}

func (r *repoField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.url = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	r.url = obj.URL
	return nil
}

type bugsField struct {
	url string
}

func (bf *bugsField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		bf.url = s
		return nil
	}
	var obj struct {
		URL   string `json:"url"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	if obj.URL != "" {
		bf.url = obj.URL
	} else {
		bf.url = obj.Email
	}
	return nil
}

type packageJSON struct {
	Name                 string             `json:"name"`
	Version              string             `json:"version"`
	Description          string             `json:"description"`
	Homepage             string             `json:"homepage"`
	License              json.RawMessage    `json:"license"`
	Private              bool               `json:"private"`
	Keywords             []string           `json:"keywords"`
	Author               *personField       `json:"author"`
	Contributors         []personField      `json:"contributors"`
	Maintainers          []personField      `json:"maintainers"`
	Repository           *repoField         `json:"repository"`
	Bugs                 *bugsField         `json:"bugs"`
	Dependencies         map[string]string  `json:"dependencies"`
	DevDependencies      map[string]string  `json:"devDependencies"`
	PeerDependencies     map[string]string  `json:"peerDependencies"`
	OptionalDependencies map[string]string  `json:"optionalDependencies"`
	Workspaces           json.RawMessage    `json:"workspaces"`
}

func parsePackageJSON(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "npm/parsePackageJSON", "path", path)
	defer trace.StartRegion(ctx, "npm.parsePackageJSON").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("npm: read %s: %w", path, err)
	}
	var pj packageJSON
	if err := json.Unmarshal(raw, &pj); err != nil {
		return nil, fmt.Errorf("npm: parse %s: %w", path, err)
	}
	if pj.Name == "" {
		zlog.Debug(ctx).Msg("package.json has no name, treating as root/private manifest")
	}

	namespace, name := purlutil.SplitNPMScope(pj.Name)
	var purl string
	if pj.Name != "" {
		purl = purlutil.NPM(pj.Name, pj.Version)
	}

	pkg := &model.PackageData{
		PackageType:     "npm",
		Namespace:       namespace,
		Name:            name,
		Version:         pj.Version,
		Purl:            purl,
		DatasourceID:    "npm_package_json",
		PrimaryLanguage: "JavaScript",
		Description:     pj.Description,
		Keywords:        pj.Keywords,
		IsPrivate:       pj.Private,
		URLs: model.URLs{
			Homepage: pj.Homepage,
		},
	}
	if pj.Repository != nil {
		pkg.URLs.Repository = pj.Repository.url
	}
	if pj.Bugs != nil {
		pkg.URLs.Bug = pj.Bugs.url
	}
	if len(pj.License) > 0 {
		pkg.LicenseStatement = decodeLicenseField(pj.License)
	}

	if party, ok := pj.Author.toParty("author"); ok {
		pkg.Parties = append(pkg.Parties, party)
	}
	for i := range pj.Contributors {
		if party, ok := pj.Contributors[i].toParty("contributor"); ok {
			pkg.Parties = append(pkg.Parties, party)
		}
	}
	for i := range pj.Maintainers {
		if party, ok := pj.Maintainers[i].toParty("maintainer"); ok {
			pkg.Parties = append(pkg.Parties, party)
		}
	}

	pkg.Dependencies = appendDeps(pkg.Dependencies, pj.Dependencies, "dependencies", true, false)
	pkg.Dependencies = appendDeps(pkg.Dependencies, pj.DevDependencies, "devDependencies", false, false)
	pkg.Dependencies = appendDeps(pkg.Dependencies, pj.PeerDependencies, "peerDependencies", true, false)
	pkg.Dependencies = appendDeps(pkg.Dependencies, pj.OptionalDependencies, "optionalDependencies", true, true)

	if len(pj.Workspaces) > 0 {
		patterns := decodeWorkspacesField(pj.Workspaces)
		if len(patterns) > 0 {
			if pkg.ExtraData == nil {
				pkg.ExtraData = map[string]any{}
			}
			pkg.ExtraData["workspaces"] = patterns
		}
	}

	return []*model.PackageData{pkg}, nil
}

func appendDeps(into []*model.Dependency, deps map[string]string, scope string, isRuntime, isOptional bool) []*model.Dependency {
	for name, requirement := range deps {
		ns, bare := purlutil.SplitNPMScope(name)
		into = append(into, &model.Dependency{
			Purl:                 purlutil.NPM(name, ""),
			ExtractedRequirement: requirement,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             model.IsPinnedRequirement(requirement),
			IsDirect:             true,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType: "npm",
					Namespace:   ns,
					Name:        bare,
				},
			},
		})
	}
	return into
}

// decodeLicenseField accepts "license": "MIT", the deprecated
// {"type": "MIT"} object form, or an array of such objects given under
// "license", and returns a single extracted license statement. A separate
// "licenses" key is not read.
func decodeLicenseField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" {
		return obj.Type
	}
	var list []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		var out string
		for i, l := range list {
			if i > 0 {
				out += " OR "
			}
			out += l.Type
		}
		return out
	}
	return ""
}

func decodeWorkspacesField(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}
