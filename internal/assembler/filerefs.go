package assembler

import (
	"context"
	"runtime/trace"
	"sort"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/model"
)

// dbPathConfig pairs an installed-database datasource with the path
// suffix its datafile always ends in; stripping the suffix off the
// datafile's own scan path yields the filesystem root the database's file
// references are relative to (e.g. "rootfs/var/lib/rpm/rpmdb.sqlite" minus
// "var/lib/rpm/rpmdb.sqlite" leaves "rootfs/"). Grounded on
// original_source/src/assembly/file_ref_resolve.rs's DB_PATH_CONFIGS,
// adapted to this module's actual registered datasource ids.
type dbPathConfig struct {
	datasourceID string
	pathSuffix   string
}

var dbPathConfigs = []dbPathConfig{
	{"apk_installed", "lib/apk/db/installed"},
	{"rpm_sqlite_rpmdb", "var/lib/rpm/rpmdb.sqlite"},
	{"dpkg_status", "var/lib/dpkg/status"},
	{"dpkg_status_d", "var/lib/dpkg/status.d/"},
}

const rpmDatasourceID = "rpm_sqlite_rpmdb"

// resolveFileReferences implements spec §4.4 step 3: for every assembled
// Package backed by an installed-package database, each of its
// FileReferences is resolved against the scan's own walked files and
// turned into a for_packages claim; references that resolve to nothing are
// recorded as extra_data["missing_file_references"]. RPM packages
// additionally pick up their distro namespace from a sibling os-release
// file, propagated onto the package and its top-level dependencies.
//
// Grounded on original_source/src/assembly/file_ref_resolve.rs's
// resolve_file_references, simplified since this module's Package already
// carries its merged FileReferences list (no need to re-scan raw
// fragments).
func resolveFileReferences(ctx context.Context, files []*model.FileInfo, packages []*model.Package, deps []*model.TopLevelDependency) {
	ctx = zlog.ContextWithValues(ctx, "component", "assembler.resolveFileReferences")
	defer trace.StartRegion(ctx, "assembler.resolveFileReferences").End()

	pathIndex := make(map[string]*model.FileInfo, len(files))
	for _, f := range files {
		pathIndex[f.Path] = f
	}

	for _, pkg := range packages {
		cfg, ok := configFor(pkg.DatasourceIDs)
		if !ok || len(pkg.FileReferences) == 0 {
			continue
		}
		root := computeRoot(pkg.DatafilePaths, cfg.pathSuffix)

		var missing []string
		for _, ref := range pkg.FileReferences {
			p := strings.TrimPrefix(ref.Path, "/")
			full := root + p
			target, found := pathIndex[full]
			if !found {
				missing = append(missing, ref.Path)
				continue
			}
			target.AddForPackage(pkg.PackageUID)
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			entries := make([]map[string]string, len(missing))
			for i, p := range missing {
				entries[i] = map[string]string{"path": p}
			}
			if pkg.ExtraData == nil {
				pkg.ExtraData = map[string]any{}
			}
			pkg.ExtraData["missing_file_references"] = entries
		}

		if cfg.datasourceID == rpmDatasourceID {
			propagateRPMNamespace(pathIndex, root, pkg, deps)
		}
	}
}

func configFor(datasourceIDs []string) (dbPathConfig, bool) {
	for _, id := range datasourceIDs {
		for _, cfg := range dbPathConfigs {
			if cfg.datasourceID == id {
				return cfg, true
			}
		}
	}
	return dbPathConfig{}, false
}

// computeRoot strips pathSuffix off whichever datafile path carries it,
// following file_ref_resolve.rs's compute_root: an rfind-based suffix
// strip, empty when the suffix isn't found or consumes the whole path.
func computeRoot(datafilePaths []string, suffix string) string {
	for _, p := range datafilePaths {
		idx := strings.LastIndex(p, suffix)
		if idx < 0 {
			continue
		}
		return p[:idx]
	}
	return ""
}

func propagateRPMNamespace(pathIndex map[string]*model.FileInfo, root string, pkg *model.Package, deps []*model.TopLevelDependency) {
	namespace := resolveRPMNamespace(pathIndex, root)
	if namespace == "" {
		return
	}
	pkg.Namespace = namespace
	for _, dep := range deps {
		if dep.ForPackageUID == pkg.PackageUID {
			dep.Namespace = namespace
		}
	}
}

func resolveRPMNamespace(pathIndex map[string]*model.FileInfo, root string) string {
	for _, candidate := range []string{root + "etc/os-release", root + "usr/lib/os-release"} {
		f, ok := pathIndex[candidate]
		if !ok {
			continue
		}
		for _, frag := range f.PackageData {
			if frag.DatasourceID == "etc_os_release" && frag.Namespace != "" {
				return frag.Namespace
			}
		}
	}
	return ""
}
