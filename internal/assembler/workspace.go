package assembler

import (
	"context"
	"path"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/glob"
	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/model"
)

// workspaceRoot is a detected npm/yarn/pnpm monorepo root, grounded on
// original_source/src/assembly/workspace_merge.rs's WorkspaceRoot.
type workspaceRoot struct {
	rootDir               string
	rootPackageJSON       *model.FileInfo
	pnpmWorkspaceYAMLFile *model.FileInfo
	patterns              []string
}

// assembleWorkspaces is the spec §4.4 step 2 post-process: it runs after
// assembleDirectories has already (incorrectly) created one Package per
// member's package.json and possibly one for the workspace root, and
// rebuilds them with workspace-aware version resolution and for_packages
// assignment.
func assembleWorkspaces(ctx context.Context, files []*model.FileInfo, packages *[]*model.Package, deps *[]*model.TopLevelDependency) {
	ctx = zlog.ContextWithValues(ctx, "component", "assembler.assembleWorkspaces")
	defer trace.StartRegion(ctx, "assembler.assembleWorkspaces").End()

	roots := findWorkspaceRoots(files)
	for _, root := range roots {
		processWorkspace(ctx, files, packages, deps, root)
	}
}

func findWorkspaceRoots(files []*model.FileInfo) []*workspaceRoot {
	byDir := map[string]*workspaceRoot{}

	for _, f := range files {
		if path.Base(f.Path) != "package.json" {
			continue
		}
		for _, frag := range f.PackageData {
			if frag.DatasourceID != "npm_package_json" {
				continue
			}
			patterns, ok := extractWorkspaces(frag)
			if !ok {
				continue
			}
			dir := dirOf(f.Path)
			byDir[dir] = &workspaceRoot{rootDir: dir, rootPackageJSON: f, patterns: patterns}
		}
	}

	for _, f := range files {
		if path.Base(f.Path) != "pnpm-workspace.yaml" {
			continue
		}
		for _, frag := range f.PackageData {
			if frag.DatasourceID != "npm_pnpm_workspace_yaml" {
				continue
			}
			patterns, ok := extractWorkspaces(frag)
			if !ok {
				continue
			}
			dir := dirOf(f.Path)
			if existing, present := byDir[dir]; present {
				existing.pnpmWorkspaceYAMLFile = f
				if len(existing.patterns) == 0 {
					existing.patterns = patterns
				}
			} else {
				byDir[dir] = &workspaceRoot{rootDir: dir, pnpmWorkspaceYAMLFile: f, patterns: patterns}
			}
		}
	}

	out := make([]*workspaceRoot, 0, len(byDir))
	for _, r := range byDir {
		out = append(out, r)
	}
	return out
}

func extractWorkspaces(frag *model.PackageData) ([]string, bool) {
	if frag.ExtraData == nil {
		return nil, false
	}
	raw, ok := frag.ExtraData["workspaces"]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	case []any:
		var out []string
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func processWorkspace(ctx context.Context, files []*model.FileInfo, packages *[]*model.Package, deps *[]*model.TopLevelDependency, root *workspaceRoot) {
	memberIdx := discoverMembers(files, root)
	if len(memberIdx) == 0 {
		zlog.Warn(ctx).Strs("patterns", root.patterns).Str("root", root.rootDir).Msg("no workspace members found")
		return
	}

	isPnpmWithRootPackage := root.pnpmWorkspaceYAMLFile != nil && root.rootPackageJSON != nil && rootHasPublishablePackage(root.rootPackageJSON)

	var rootPackageUID string
	if isPnpmWithRootPackage {
		if root.rootPackageJSON != nil {
			rootPackageUID = findPackageUIDByDatafile(*packages, root.rootPackageJSON.Path)
		}
	} else if root.rootPackageJSON != nil {
		removeRootPackage(root.rootPackageJSON, packages, deps)
	}

	removeMemberPackages(files, memberIdx, packages, deps)

	memberPackages, memberDeps := createMemberPackages(files, memberIdx)

	memberVersions := map[string]string{}
	memberUIDs := make([]string, 0, len(memberPackages))
	for _, p := range memberPackages {
		if p.Name != "" && p.Version != "" {
			memberVersions[p.Name] = p.Version
		}
		memberUIDs = append(memberUIDs, p.PackageUID)
	}

	if root.rootPackageJSON != nil {
		forUID := ""
		if isPnpmWithRootPackage {
			forUID = rootPackageUID
		}
		hoistRootDependencies(files, root, deps, memberVersions, forUID)
	}

	*packages = append(*packages, memberPackages...)
	*deps = append(*deps, memberDeps...)

	assignForPackages(files, root, memberIdx, memberUIDs, rootPackageUID)

	resolveWorkspaceVersions(*deps, memberVersions)
}

func rootHasPublishablePackage(f *model.FileInfo) bool {
	for _, frag := range f.PackageData {
		if frag.DatasourceID == "npm_package_json" && frag.Purl != "" && !frag.IsPrivate {
			return true
		}
	}
	return false
}

func findPackageUIDByDatafile(packages []*model.Package, datafilePath string) string {
	for _, p := range packages {
		for _, dp := range p.DatafilePaths {
			if dp == datafilePath {
				return p.PackageUID
			}
		}
	}
	return ""
}

func removeRootPackage(rootFile *model.FileInfo, packages *[]*model.Package, deps *[]*model.TopLevelDependency) {
	var purl string
	for _, frag := range rootFile.PackageData {
		if frag.DatasourceID == "npm_package_json" && frag.Purl != "" {
			purl = frag.Purl
			break
		}
	}
	if purl == "" {
		return
	}
	var removedUID string
	kept := (*packages)[:0]
	for _, p := range *packages {
		if p.Purl == purl {
			removedUID = p.PackageUID
			continue
		}
		kept = append(kept, p)
	}
	*packages = kept
	if removedUID != "" {
		keptDeps := (*deps)[:0]
		for _, d := range *deps {
			if d.ForPackageUID == removedUID {
				continue
			}
			keptDeps = append(keptDeps, d)
		}
		*deps = keptDeps
	}
}

func removeMemberPackages(files []*model.FileInfo, memberIdx []int, packages *[]*model.Package, deps *[]*model.TopLevelDependency) {
	memberPaths := map[string]bool{}
	for _, idx := range memberIdx {
		memberPaths[files[idx].Path] = true
	}

	removed := map[string]bool{}
	kept := (*packages)[:0]
	for _, p := range *packages {
		isMember := false
		for _, dp := range p.DatafilePaths {
			if memberPaths[dp] {
				isMember = true
				break
			}
		}
		if isMember {
			removed[p.PackageUID] = true
			continue
		}
		kept = append(kept, p)
	}
	*packages = kept

	keptDeps := (*deps)[:0]
	for _, d := range *deps {
		if d.ForPackageUID != "" && removed[d.ForPackageUID] {
			continue
		}
		keptDeps = append(keptDeps, d)
	}
	*deps = keptDeps
}

func discoverMembers(files []*model.FileInfo, root *workspaceRoot) []int {
	var excluded []string
	var include []string
	for _, p := range root.patterns {
		if strings.HasPrefix(p, "!") {
			excluded = append(excluded, strings.TrimPrefix(p, "!"))
		} else {
			include = append(include, p)
		}
	}

	prefix := root.rootDir
	if prefix != "" {
		prefix += "/"
	}

	var members []int
	for _, f := range files {
		if path.Base(f.Path) != "package.json" {
			continue
		}
		if root.rootDir != "" && !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if root.rootPackageJSON != nil && f.Path == root.rootPackageJSON.Path {
			continue
		}
		if !hasValidNpmPackage(f) {
			continue
		}
		rel := strings.TrimPrefix(dirOf(f.Path), prefix)

		matched := false
		for _, pat := range include {
			if matchesWorkspacePattern(rel, pat) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		isExcluded := false
		for _, pat := range excluded {
			if matchesWorkspacePattern(rel, pat) {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			members = append(members, f.Index)
		}
	}
	return members
}

func hasValidNpmPackage(f *model.FileInfo) bool {
	for _, frag := range f.PackageData {
		if frag.DatasourceID == "npm_package_json" && frag.Purl != "" {
			return true
		}
	}
	return false
}

// matchesWorkspacePattern matches a member's workspace-relative directory
// against a workspace glob pattern, reusing the same greedy-leftmost
// segment matcher the registry uses for parser pattern matching: "*"
// matches one directory segment, "**" matches zero or more.
func matchesWorkspacePattern(relDir, pattern string) bool {
	return glob.Match(pattern, relDir)
}

func createMemberPackages(files []*model.FileInfo, memberIdx []int) ([]*model.Package, []*model.TopLevelDependency) {
	var packages []*model.Package
	var deps []*model.TopLevelDependency
	for _, idx := range memberIdx {
		f := files[idx]
		var frag *model.PackageData
		for _, fr := range f.PackageData {
			if fr.DatasourceID == "npm_package_json" && fr.Purl != "" {
				frag = fr
				break
			}
		}
		if frag == nil {
			continue
		}
		pkg := model.NewPackageFromFragment(frag, newPackageUID(frag.Purl))
		pkg.AddDatafilePath(f.Path)
		pkg.AddDatasourceID(frag.DatasourceID)
		packages = append(packages, pkg)
		deps = append(deps, topLevelDepsFor(frag, f.Path, pkg.PackageUID)...)
	}
	return packages, deps
}

func hoistRootDependencies(files []*model.FileInfo, root *workspaceRoot, deps *[]*model.TopLevelDependency, memberVersions map[string]string, forPackageUID string) {
	var rootFrag *model.PackageData
	for _, frag := range root.rootPackageJSON.PackageData {
		if frag.DatasourceID == "npm_package_json" {
			rootFrag = frag
			break
		}
	}
	if rootFrag == nil {
		return
	}
	for _, dep := range rootFrag.Dependencies {
		if dep.Purl == "" {
			continue
		}
		top := &model.TopLevelDependency{
			Dependency:    *dep,
			DependencyUID: newPackageUID(dep.Purl),
			ForPackageUID: forPackageUID,
			DatafilePath:  root.rootPackageJSON.Path,
			DatasourceID:  "npm_package_json",
		}
		resolveOne(top, memberVersions)
		*deps = append(*deps, top)
	}

	rootDir := root.rootDir
	for _, f := range files {
		if dirOf(f.Path) != rootDir {
			continue
		}
		base := path.Base(f.Path)
		var dsid string
		switch base {
		case "package-lock.json":
			dsid = "npm_package_lock_json"
		case "yarn.lock":
			dsid = "npm_yarn_lock"
		case "pnpm-lock.yaml":
			dsid = "npm_pnpm_lock_yaml"
		default:
			continue
		}
		for _, frag := range f.PackageData {
			if frag.DatasourceID != dsid {
				continue
			}
			for _, dep := range frag.Dependencies {
				if dep.Purl == "" {
					continue
				}
				top := &model.TopLevelDependency{
					Dependency:    *dep,
					DependencyUID: newPackageUID(dep.Purl),
					ForPackageUID: forPackageUID,
					DatafilePath:  f.Path,
					DatasourceID:  dsid,
				}
				resolveOne(top, memberVersions)
				*deps = append(*deps, top)
			}
		}
	}
}

func assignForPackages(files []*model.FileInfo, root *workspaceRoot, memberIdx []int, memberUIDs []string, rootPackageUID string) {
	memberDirs := make([]string, len(memberIdx))
	for i, idx := range memberIdx {
		memberDirs[i] = dirOf(files[idx].Path)
	}

	prefix := root.rootDir
	if prefix != "" {
		prefix += "/"
	}

	for _, f := range files {
		if root.rootDir != "" && f.Path != root.rootDir && !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		f.ForPackages = nil

		assigned := false
		for i, md := range memberDirs {
			if f.Path == md || strings.HasPrefix(f.Path, md+"/") {
				f.AddForPackage(memberUIDs[i])
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		rel := strings.TrimPrefix(f.Path, prefix)
		if rel != f.Path {
			first, _, _ := strings.Cut(rel, "/")
			if first == "node_modules" {
				continue
			}
		}

		if rootPackageUID != "" {
			f.AddForPackage(rootPackageUID)
		} else {
			for _, uid := range memberUIDs {
				f.AddForPackage(uid)
			}
		}
	}
}

func resolveWorkspaceVersions(deps []*model.TopLevelDependency, memberVersions map[string]string) {
	for _, dep := range deps {
		resolveOne(dep, memberVersions)
	}
}

func resolveOne(dep *model.TopLevelDependency, memberVersions map[string]string) {
	req := dep.ExtractedRequirement
	if !strings.HasPrefix(req, "workspace:") {
		return
	}
	resolved, ok := resolveWorkspaceRequirement(req, dep.Purl, memberVersions)
	if ok {
		dep.ExtractedRequirement = resolved
	}
}

// resolveWorkspaceRequirement rewrites a "workspace:" protocol requirement
// to a concrete version drawn from memberVersions, following
// original_source/src/assembly/workspace_merge.rs's
// resolve_workspace_requirement: "workspace:*" or "workspace:" becomes the
// exact version; "workspace:^"/"~"/">="/etc keep their operator; any other
// suffix ("workspace:1.2.3") is used verbatim.
func resolveWorkspaceRequirement(requirement, depPurl string, memberVersions map[string]string) (string, bool) {
	name, ok := extractPackageNameFromPurl(depPurl)
	if !ok {
		return "", false
	}
	version, ok := memberVersions[name]
	if !ok {
		return "", false
	}
	spec := strings.TrimPrefix(requirement, "workspace:")
	if spec == "" || spec == "*" {
		return version, true
	}
	switch spec[0] {
	case '^', '~', '>', '<', '=':
		return spec + version, true
	default:
		return spec, true
	}
}

func extractPackageNameFromPurl(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	parsed, err := purlutil.Parse(p)
	if err != nil || parsed.Type != "npm" {
		return "", false
	}
	if parsed.Namespace != "" {
		return parsed.Namespace + "/" + parsed.Name, true
	}
	return parsed.Name, true
}
