package npm

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "npm_pnpm_lock_yaml",
		Description:      "pnpm-lock.yaml lockfile",
		Patterns:         []string{"pnpm-lock.yaml"},
		DefaultEcosystem: "npm",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "npm_pnpm_lock_yaml",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"package.json", "pnpm-workspace.yaml"},
		Parse:            parsePnpmLock,
	})
	registry.Register(registry.Descriptor{
		ID:               "npm_pnpm_workspace_yaml",
		Description:      "pnpm-workspace.yaml member globs",
		Patterns:         []string{"pnpm-workspace.yaml"},
		DefaultEcosystem: "npm",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "npm_pnpm_workspace_yaml",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"package.json", "pnpm-lock.yaml"},
		Parse:            parsePnpmWorkspace,
	})
}

// pnpmLockYAML covers the subset of pnpm-lock.yaml v5/v6 this engine reads:
// top-level "packages" keyed by "/name@version" (v5/v6) or "name@version"
// (v9's unprefixed key), each carrying a "resolution" with an integrity
// digest, and a "dependencies"/"devDependencies" map at the document root
// for the workspace root's own direct requirements.
type pnpmLockYAML struct {
	LockfileVersion any                    `yaml:"lockfileVersion"`
	Dependencies    map[string]pnpmRange   `yaml:"dependencies"`
	DevDependencies map[string]pnpmRange   `yaml:"devDependencies"`
	Packages        map[string]pnpmPackage `yaml:"packages"`
}

// pnpmRange covers both the v5 bare-string and v9 {version,specifier}
// dependency range shapes.
type pnpmRange struct {
	scalar    string
	Version   string `yaml:"version"`
	Specifier string `yaml:"specifier"`
}

func (r *pnpmRange) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		r.scalar = s
		return nil
	}
	type plain pnpmRange
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*r = pnpmRange(p)
	return nil
}

func (r pnpmRange) requirement() string {
	if r.scalar != "" {
		return r.scalar
	}
	if r.Specifier != "" {
		return r.Specifier
	}
	return r.Version
}

type pnpmPackage struct {
	Resolution struct {
		Integrity string `yaml:"integrity"`
		Tarball   string `yaml:"tarball"`
	} `yaml:"resolution"`
	Dev      bool `yaml:"dev"`
	Optional bool `yaml:"optional"`
}

func parsePnpmLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "npm/parsePnpmLock", "path", path)
	defer trace.StartRegion(ctx, "npm.parsePnpmLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("npm: read %s: %w", path, err)
	}
	var lf pnpmLockYAML
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("npm: parse %s: %w", path, err)
	}

	pkg := &model.PackageData{
		PackageType:     "npm",
		DatasourceID:    "npm_pnpm_lock_yaml",
		PrimaryLanguage: "JavaScript",
	}
	pkg.Dependencies = append(pkg.Dependencies, directPnpmDeps(lf.Dependencies, "dependencies", true)...)
	pkg.Dependencies = append(pkg.Dependencies, directPnpmDeps(lf.DevDependencies, "devDependencies", false)...)

	for key, entry := range lf.Packages {
		name, version := splitPnpmPackageKey(key)
		if name == "" || version == "" {
			continue
		}
		ns, bare := purlutil.SplitNPMScope(name)
		sha1, sha512 := decodeIntegrity(entry.Resolution.Integrity)
		scope := "dependencies"
		isRuntime := true
		if entry.Dev {
			scope, isRuntime = "devDependencies", false
		}
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.NPM(name, version),
			ExtractedRequirement: version,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           entry.Optional,
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "npm",
					Namespace:       ns,
					Name:            bare,
					Version:         version,
					PrimaryLanguage: "JavaScript",
					URLs:            model.URLs{Download: entry.Resolution.Tarball},
					IsVirtual:       true,
					Checksums:       checksumsOf(sha1, sha512),
				},
			},
		})
	}
	return []*model.PackageData{pkg}, nil
}

func directPnpmDeps(m map[string]pnpmRange, scope string, isRuntime bool) []*model.Dependency {
	var out []*model.Dependency
	for name, r := range m {
		ns, bare := purlutil.SplitNPMScope(name)
		req := r.requirement()
		out = append(out, &model.Dependency{
			Purl:                 purlutil.NPM(name, ""),
			ExtractedRequirement: req,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsPinned:             model.IsPinnedRequirement(req),
			IsDirect:             true,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{PackageType: "npm", Namespace: ns, Name: bare},
			},
		})
	}
	return out
}

// splitPnpmPackageKey splits a pnpm-lock.yaml package key like
// "/lodash@4.17.21" or "/@types/node@18.0.0(typescript@5.0.0)" into
// (name, version), discarding peer-dependency suffixes in parens.
func splitPnpmPackageKey(key string) (name, version string) {
	key = strings.TrimPrefix(key, "/")
	if idx := strings.Index(key, "("); idx >= 0 {
		key = key[:idx]
	}
	if strings.HasPrefix(key, "@") {
		rest := key[1:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", ""
		}
		afterScope := rest[slash+1:]
		at := strings.LastIndex(afterScope, "@")
		if at < 0 {
			return "", ""
		}
		return "@" + rest[:slash] + "/" + afterScope[:at], afterScope[at+1:]
	}
	at := strings.LastIndex(key, "@")
	if at <= 0 {
		return "", ""
	}
	return key[:at], key[at+1:]
}

type pnpmWorkspaceYAML struct {
	Packages []string `yaml:"packages"`
}

func parsePnpmWorkspace(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "npm/parsePnpmWorkspace", "path", path)
	defer trace.StartRegion(ctx, "npm.parsePnpmWorkspace").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("npm: read %s: %w", path, err)
	}
	var ws pnpmWorkspaceYAML
	if err := yaml.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("npm: parse %s: %w", path, err)
	}
	pkg := &model.PackageData{
		PackageType:  "npm",
		DatasourceID: "npm_pnpm_workspace_yaml",
		ExtraData:    map[string]any{"workspaces": ws.Packages},
	}
	return []*model.PackageData{pkg}, nil
}
