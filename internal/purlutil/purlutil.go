// Package purlutil builds and parses canonical package URLs.
//
// Grounded on the per-ecosystem purl.go files throughout
// github.com/quay/claircore (debian/purl.go, java/purl.go, python/purl.go,
// gobin/purl.go): each constructs a packageurl.PackageURL with Type,
// Namespace, Name, Version, Qualifiers and calls String() for the wire
// form. purlutil centralizes that so every parser package shares one
// construction and round-trip path (spec §4.2 "PURL construction", spec §6
// "Purl wire format").
package purlutil

import (
	"fmt"
	"strings"

	"github.com/package-url/packageurl-go"
)

// Build constructs the canonical purl string for the given components.
// Namespace separators for npm scopes ("@scope/name") and Maven
// group/artifact are preserved unescaped by packageurl-go's String method,
// satisfying spec §4.2/§6.
func Build(pkgType, namespace, name, version string, qualifiers map[string]string, subpath string) string {
	if name == "" {
		return ""
	}
	var quals packageurl.Qualifiers
	if len(qualifiers) > 0 {
		quals = packageurl.QualifiersFromMap(qualifiers)
	}
	p := packageurl.NewPackageURL(pkgType, namespace, name, version, quals, subpath)
	return p.ToString()
}

// Parse parses a purl string back into its components, used by the
// round-trip invariant in spec §8 ("For every emitted purl: it parses back
// into the same (type, namespace, name, version, qualifiers, subpath)").
func Parse(s string) (packageurl.PackageURL, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return packageurl.PackageURL{}, fmt.Errorf("purlutil: parse %q: %w", s, err)
	}
	return p, nil
}

// Maven builds a Maven purl, where the namespace is the group id and the
// name is the artifact id (pkg:maven/group/artifact@version), mirroring
// quay-claircore/java/purl.go.
func Maven(groupID, artifactID, version string) string {
	return Build("maven", groupID, artifactID, version, nil, "")
}

// NPM builds an npm purl. Scoped packages ("@scope/name") place "@scope" in
// the namespace and "name" in the name field, per spec §4.2.
func NPM(name, version string) string {
	namespace, bare := SplitNPMScope(name)
	return Build("npm", namespace, bare, version, nil, "")
}

// SplitNPMScope splits a possibly-scoped npm package name ("@scope/name")
// into (namespace, name). Unscoped names return ("", name).
func SplitNPMScope(name string) (namespace, bare string) {
	if len(name) == 0 || name[0] != '@' {
		return "", name
	}
	for i := 1; i < len(name); i++ {
		if name[i] == '/' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}

// Golang builds a Go module purl. The module path's first segment (its
// domain, e.g. "google.golang.org") becomes the purl namespace and the
// second segment the name, matching quay-claircore/gobin/purl.go's
// splitGoModule so Go binary and Go module purls stay comparable.
func Golang(module, version string) string {
	ns, name, subpath := SplitGoModule(module)
	return Build("golang", ns, name, version, nil, subpath)
}

// SplitGoModule splits a Go import path into its domain namespace, package
// name, and any remaining subpath, per quay-claircore/gobin/purl.go.
func SplitGoModule(full string) (namespace, name, subpath string) {
	parts := strings.Split(full, "/")
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return "", parts[0], ""
	default:
		return parts[0], parts[1], strings.Join(parts[2:], "/")
	}
}
