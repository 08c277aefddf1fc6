package model

import (
	"strings"

	"github.com/Masterminds/semver"
)

// Dependency is one entry inside a PackageData's Dependencies list: an
// unresolved (or, for lockfiles, resolved) requirement on another package.
type Dependency struct {
	Purl                  string `json:"purl,omitempty"`
	ExtractedRequirement  string `json:"extracted_requirement,omitempty"`
	Scope                 string `json:"scope,omitempty"`
	IsRuntime             bool   `json:"is_runtime"`
	IsOptional            bool   `json:"is_optional"`
	// IsPinned is true iff ExtractedRequirement uniquely identifies one
	// version (spec §4.2 "Requirement pinning").
	IsPinned  bool `json:"is_pinned"`
	IsDirect  bool `json:"is_direct"`

	ResolvedPackage *ResolvedPackage `json:"resolved_package,omitempty"`

	ExtraData map[string]any `json:"extra_data,omitempty"`
}

// ResolvedPackage represents a specific resolved version of a dependency,
// shaped like PackageData but additionally carrying its own transitive
// dependency list (spec §3 Dependency.resolved_package).
type ResolvedPackage struct {
	PackageData
}

// TopLevelDependency is a Dependency promoted to top-level scope by the
// assembler (spec §3 TopLevelDependency): workspace-hoisted npm/yarn root
// dependencies, or any dependency the assembler decides to surface
// independently of the Package that declared it.
type TopLevelDependency struct {
	Dependency

	DependencyUID string `json:"dependency_uid"`
	// ForPackageUID is the owning package's uid, or "" for workspace-level
	// dependencies with no single owner.
	ForPackageUID string `json:"for_package_uid,omitempty"`
	DatafilePath  string `json:"datafile_path"`
	DatasourceID  string `json:"datasource_id,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
}

// IsPinnedRequirement reports whether req is an exact version requirement:
// a bare semver version, or "=" followed by one, with no range operator
// (spec §4.2 "Requirement pinning"). A requirement pins a version iff
// Masterminds/semver parses it as a single Version rather than a
// constraint set: "1.2.3" and "=1.2.3" parse as a Version, while "^1.2.3",
// "~1.2.3", "*", and "||"-joined unions don't.
func IsPinnedRequirement(req string) bool {
	req = strings.TrimSpace(req)
	if req == "" {
		return false
	}
	req = strings.TrimPrefix(req, "=")
	_, err := semver.NewVersion(req)
	return err == nil
}
