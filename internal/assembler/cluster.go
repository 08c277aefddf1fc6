package assembler

import (
	"path"
	"sort"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

// fragRef pairs a fragment with the file it came from.
type fragRef struct {
	file *model.FileInfo
	frag *model.PackageData
}

// clusterSiblings groups SiblingMerge fragments within one directory into
// the sets that will become one Package each. Two files are in the same
// cluster iff some registered descriptor lists one's basename as a
// SiblingPattern of the other's Pattern (spec §4.4 step 1 sibling-merge
// mode); files with unrelated basenames (e.g. package.json and Cargo.toml
// landing in the same directory by coincidence) never merge.
func clusterSiblings(files []*model.FileInfo, indices []int, handled map[*model.PackageData]bool) [][]fragRef {
	basenameOf := map[string]string{}
	fragsByBasename := map[string][]fragRef{}

	for _, idx := range indices {
		f := files[idx]
		base := path.Base(f.Path)
		for _, frag := range f.PackageData {
			if handled[frag] {
				continue
			}
			desc, ok := descriptorFor(frag.DatasourceID)
			if !ok || desc.Mode != registry.SiblingMerge {
				continue
			}
			handled[frag] = true
			basenameOf[base] = base
			fragsByBasename[base] = append(fragsByBasename[base], fragRef{file: f, frag: frag})
		}
	}

	uf := newUnionFind()
	for base := range fragsByBasename {
		uf.find(base)
	}
	for _, idx := range indices {
		f := files[idx]
		base := path.Base(f.Path)
		if _, present := fragsByBasename[base]; !present {
			continue
		}
		for _, frag := range f.PackageData {
			desc, ok := descriptorFor(frag.DatasourceID)
			if !ok || desc.Mode != registry.SiblingMerge {
				continue
			}
			for _, sib := range desc.SiblingPatterns {
				if _, present := fragsByBasename[sib]; present {
					uf.union(base, sib)
				}
			}
		}
	}

	groups := map[string][]fragRef{}
	for base, refs := range fragsByBasename {
		root := uf.find(base)
		groups[root] = append(groups[root], refs...)
	}

	roots := make([]string, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	out := make([][]fragRef, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}

// assembleCluster seeds and updates one Package from a cluster's
// fragments, visiting descriptors in registry registration order (spec
// §5 "sibling-merge formats tried in registration order within a
// directory").
func assembleCluster(files []*model.FileInfo, cluster []fragRef) (*model.Package, []*model.TopLevelDependency) {
	order := map[string]int{}
	for i, d := range registry.All() {
		order[d.DatasourceID] = i
	}
	sort.SliceStable(cluster, func(i, j int) bool {
		return order[cluster[i].frag.DatasourceID] < order[cluster[j].frag.DatasourceID]
	})

	var pkg *model.Package
	var deps []*model.TopLevelDependency
	var pending []fragRef // seen before any purl-bearing fragment seeded the Package

	apply := func(ref fragRef) {
		pkg.AddDatafilePath(ref.file.Path)
		pkg.AddDatasourceID(ref.frag.DatasourceID)
		ref.file.AddForPackage(pkg.PackageUID)
		deps = append(deps, topLevelDepsFor(ref.frag, ref.file.Path, pkg.PackageUID)...)
	}

	for _, ref := range cluster {
		if pkg == nil {
			if !ref.frag.HasPurl() {
				pending = append(pending, ref)
				continue
			}
			pkg = model.NewPackageFromFragment(ref.frag, newPackageUID(ref.frag.Purl))
			apply(ref)
			for _, p := range pending {
				pkg.Update(p.frag)
				apply(p)
			}
			pending = nil
			continue
		}
		pkg.Update(ref.frag)
		apply(ref)
	}
	return pkg, deps
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
