package assembler

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/quay/pkgscan/internal/glob"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

// nestedAnchorDirs names the directory basenames that mark a package root
// for Nested-mode assembly, following original_source's
// src/assembly/nested_merge.rs NESTED_ANCHOR_DIRS.
var nestedAnchorDirs = []string{"META-INF", "debian"}

// assembleNested implements spec §4.4 step 1's Nested mode: siblings are
// discovered by walking up from an anchor directory (or a "pom.xml" file)
// rather than by directory-exact sibling matching. Any fragment it
// consumes is marked handled so the regular per-directory pass in
// assembler.go skips it.
func assembleNested(ctx context.Context, files []*model.FileInfo, handled map[*model.PackageData]bool) ([]*model.Package, []*model.TopLevelDependency) {
	var packages []*model.Package
	var deps []*model.TopLevelDependency

	for _, desc := range registry.All() {
		if desc.Mode != registry.Nested {
			continue
		}
		matching := findMatchingFiles(files, desc)
		if len(matching) == 0 {
			continue
		}
		root, ok := findPackageRoot(files, matching)
		if !ok {
			continue
		}
		siblingIdx := findNestedSiblings(files, root, desc)
		if len(siblingIdx) < 2 {
			continue
		}
		pkg, clusterDeps := assembleFromIndices(files, siblingIdx, desc, handled)
		if pkg != nil {
			packages = append(packages, pkg)
			deps = append(deps, clusterDeps...)
		}
	}
	return packages, deps
}

func findMatchingFiles(files []*model.FileInfo, desc registry.Descriptor) []int {
	var out []int
	for _, f := range files {
		for _, frag := range f.PackageData {
			if frag.DatasourceID == desc.DatasourceID {
				out = append(out, f.Index)
				break
			}
		}
	}
	return out
}

// findPackageRoot walks each matching file's path looking for one of
// nestedAnchorDirs as a path component (the root is that component's
// parent directory) or, failing that, a literal "pom.xml" basename (the
// root is pom.xml's own directory).
func findPackageRoot(files []*model.FileInfo, matching []int) (string, bool) {
	for _, idx := range matching {
		p := files[idx].Path
		segs := strings.Split(p, "/")
		for i, seg := range segs {
			for _, anchor := range nestedAnchorDirs {
				if seg == anchor {
					return strings.Join(segs[:i], "/"), true
				}
			}
		}
		if path.Base(p) == "pom.xml" {
			return dirOf(p), true
		}
	}
	return "", false
}

func findNestedSiblings(files []*model.FileInfo, root string, desc registry.Descriptor) []int {
	var out []int
	prefix := root
	if prefix != "" {
		prefix += "/"
	}
	for _, f := range files {
		if root != "" && !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		for _, pattern := range desc.SiblingPatterns {
			if matchesNestedOrSimple(f.Path, pattern) {
				out = append(out, f.Index)
				break
			}
		}
	}
	return out
}

func matchesNestedOrSimple(filePath, pattern string) bool {
	if strings.Contains(pattern, "**") {
		return glob.Match(pattern, glob.Normalize(filePath))
	}
	return path.Base(filePath) == pattern
}

func assembleFromIndices(files []*model.FileInfo, indices []int, desc registry.Descriptor, handled map[*model.PackageData]bool) (*model.Package, []*model.TopLevelDependency) {
	sort.Ints(indices)

	var pkg *model.Package
	var deps []*model.TopLevelDependency
	var pending []fragRef // seen before any purl-bearing fragment seeded the Package

	apply := func(ref fragRef) {
		pkg.AddDatafilePath(ref.file.Path)
		pkg.AddDatasourceID(ref.frag.DatasourceID)
		ref.file.AddForPackage(pkg.PackageUID)
		deps = append(deps, topLevelDepsFor(ref.frag, ref.file.Path, pkg.PackageUID)...)
	}

	for _, pattern := range desc.SiblingPatterns {
		for _, idx := range indices {
			f := files[idx]
			if !matchesNestedOrSimple(f.Path, pattern) {
				continue
			}
			for _, frag := range f.PackageData {
				if frag.DatasourceID != desc.DatasourceID {
					continue
				}
				handled[frag] = true
				ref := fragRef{file: f, frag: frag}
				if pkg == nil {
					if !frag.HasPurl() {
						pending = append(pending, ref)
						continue
					}
					pkg = model.NewPackageFromFragment(frag, newPackageUID(frag.Purl))
					apply(ref)
					for _, p := range pending {
						pkg.Update(p.frag)
						apply(p)
					}
					pending = nil
					continue
				}
				pkg.Update(frag)
				apply(ref)
			}
		}
	}
	return pkg, deps
}
