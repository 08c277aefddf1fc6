// Package assembler implements the four-step algorithm that turns the raw
// per-file PackageData fragments the registry produced into the scan's
// final Package and TopLevelDependency lists:
//
//  1. per-directory assembly (standalone, sibling-merge, and nested modes)
//  2. npm/pnpm workspace post-processing
//  3. installed-database file-reference resolution
//  4. for_packages bookkeeping, folded into steps 1-3 as each assigns it
//
// Grounded on the scancode-rust implementation's src/assembly/*.rs: the
// directory/sibling-merge loop follows the shape implied by
// workspace_merge.rs's own description of "the per-directory assembly
// loop" that runs before it, nested.go mirrors nested_merge.rs's
// assemble_nested_patterns, workspace.go mirrors workspace_merge.rs's
// assemble_workspaces nearly function-for-function, and filerefs.go
// mirrors file_ref_resolve.rs's resolve_file_references.
package assembler

import (
	"context"
	"path"
	"runtime/trace"
	"sort"

	"github.com/google/uuid"
	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

// Assemble runs the full assembly pipeline over files, which must already
// carry every parser's PackageData fragments (phase 2 of the scan, spec
// §5). files is mutated in place: ForPackages is populated on each
// FileInfo as packages claim it.
func Assemble(ctx context.Context, files []*model.FileInfo) ([]*model.Package, []*model.TopLevelDependency) {
	ctx = zlog.ContextWithValues(ctx, "component", "assembler.Assemble")
	defer trace.StartRegion(ctx, "assembler.Assemble").End()

	handled := make(map[*model.PackageData]bool)

	packages, deps := assembleNested(ctx, files, handled)

	dirPkgs, dirDeps := assembleDirectories(ctx, files, handled)
	packages = append(packages, dirPkgs...)
	deps = append(deps, dirDeps...)

	assembleWorkspaces(ctx, files, &packages, &deps)

	resolveFileReferences(ctx, files, packages, deps)

	return packages, deps
}

// newPackageUID mints a package_uid by suffixing the seeding purl with a
// random UUID, per spec §3 Package.package_uid and §4.4 step 1.
func newPackageUID(purl string) string {
	return purl + "-" + uuid.NewString()
}

// dirOf returns the forward-slash directory component of a scan path, the
// root directory normalized to "".
func dirOf(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// assembleDirectories implements spec §4.4 step 1 for Standalone and
// SiblingMerge parsers (Nested-mode fragments are excluded via handled,
// having already been consumed by assembleNested).
func assembleDirectories(ctx context.Context, files []*model.FileInfo, handled map[*model.PackageData]bool) ([]*model.Package, []*model.TopLevelDependency) {
	var packages []*model.Package
	var deps []*model.TopLevelDependency

	byDir := map[string][]int{}
	for _, f := range files {
		byDir[dirOf(f.Path)] = append(byDir[dirOf(f.Path)], f.Index)
	}

	for _, dir := range leavesFirstDirs(byDir) {
		pkgs, ds := assembleOneDirectory(ctx, files, byDir[dir], handled)
		packages = append(packages, pkgs...)
		deps = append(deps, ds...)
	}
	return packages, deps
}

// leavesFirstDirs orders directory keys so that deeper paths (children)
// precede their ancestors, matching spec §5's "leaves-first" traversal
// guarantee; directories at equal depth are ordered alphabetically for
// determinism.
func leavesFirstDirs(byDir map[string][]int) []string {
	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}

func depth(dir string) int {
	if dir == "" {
		return 0
	}
	n := 1
	for _, c := range dir {
		if c == '/' {
			n++
		}
	}
	return n
}

func assembleOneDirectory(ctx context.Context, files []*model.FileInfo, indices []int, handled map[*model.PackageData]bool) ([]*model.Package, []*model.TopLevelDependency) {
	var packages []*model.Package
	var deps []*model.TopLevelDependency

	// Standalone fragments: one Package per purl-bearing fragment,
	// independent of everything else in the directory.
	for _, idx := range indices {
		f := files[idx]
		for _, frag := range f.PackageData {
			if handled[frag] {
				continue
			}
			desc, ok := descriptorFor(frag.DatasourceID)
			if !ok || desc.Mode != registry.Standalone {
				continue
			}
			handled[frag] = true
			if !frag.HasPurl() {
				continue
			}
			pkg, pkgDeps := seedPackage(f, frag)
			packages = append(packages, pkg)
			deps = append(deps, pkgDeps...)
		}
	}

	// Sibling-merge fragments: cluster by basename connectivity within
	// this directory, then assemble one Package per cluster.
	clusters := clusterSiblings(files, indices, handled)
	for _, cluster := range clusters {
		pkg, clusterDeps := assembleCluster(files, cluster)
		if pkg != nil {
			packages = append(packages, pkg)
			deps = append(deps, clusterDeps...)
		}
	}
	return packages, deps
}

func descriptorFor(datasourceID string) (registry.Descriptor, bool) {
	if datasourceID == "" {
		return registry.Descriptor{}, false
	}
	for _, d := range registry.All() {
		if d.DatasourceID == datasourceID {
			return d, true
		}
	}
	return registry.Descriptor{}, false
}

func seedPackage(f *model.FileInfo, frag *model.PackageData) (*model.Package, []*model.TopLevelDependency) {
	uid := newPackageUID(frag.Purl)
	pkg := model.NewPackageFromFragment(frag, uid)
	pkg.AddDatafilePath(f.Path)
	pkg.AddDatasourceID(frag.DatasourceID)
	f.AddForPackage(uid)
	return pkg, topLevelDepsFor(frag, f.Path, uid)
}

func topLevelDepsFor(frag *model.PackageData, datafilePath, forPackageUID string) []*model.TopLevelDependency {
	var out []*model.TopLevelDependency
	for _, dep := range frag.Dependencies {
		if dep.Purl == "" {
			continue
		}
		out = append(out, &model.TopLevelDependency{
			Dependency:    *dep,
			DependencyUID: newPackageUID(dep.Purl),
			ForPackageUID: forPackageUID,
			DatafilePath:  datafilePath,
			DatasourceID:  frag.DatasourceID,
		})
	}
	return out
}
