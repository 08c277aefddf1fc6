package npm

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "npm_package_lock_json",
		Description:      "npm package-lock.json / npm-shrinkwrap.json lockfile",
		Patterns:         []string{"package-lock.json", ".package-lock.json", "npm-shrinkwrap.json", ".npm-shrinkwrap.json"},
		DefaultEcosystem: "npm",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "npm_package_lock_json",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"package.json"},
		Parse:            parsePackageLock,
	})
}

type npmLockFile struct {
	LockfileVersion int                        `json:"lockfileVersion"`
	Name            string                     `json:"name"`
	Version         string                     `json:"version"`
	Packages        map[string]npmLockPackage  `json:"packages"`
	Dependencies    map[string]npmLockDepV1    `json:"dependencies"`
}

type npmLockPackage struct {
	Version      string `json:"version"`
	Resolved     string `json:"resolved"`
	Integrity    string `json:"integrity"`
	Dev          bool   `json:"dev"`
	Optional     bool   `json:"optional"`
	DevOptional  bool   `json:"devOptional"`
}

type npmLockDepV1 struct {
	Version      string                  `json:"version"`
	Resolved     string                  `json:"resolved"`
	Integrity    string                  `json:"integrity"`
	Dev          bool                    `json:"dev"`
	Optional     bool                    `json:"optional"`
	Dependencies map[string]npmLockDepV1 `json:"dependencies"`
}

// parsePackageLock implements spec §4.2's npm lockfile design note:
// lockfileVersion 1 is tree-shaped under "dependencies"; 2+ is flat, keyed
// by "packages" paths like "node_modules/@scope/name". Grounded on
// original_source/src/parsers/npm_lock.rs, which this Go port follows
// field-for-field (integrity decoding, resolved-URL sha1 fallback,
// dev/optional scope classification).
func parsePackageLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "npm/parsePackageLock", "path", path)
	defer trace.StartRegion(ctx, "npm.parsePackageLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("npm: read %s: %w", path, err)
	}
	var lf npmLockFile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("npm: parse %s: %w", path, err)
	}
	if lf.LockfileVersion == 0 {
		lf.LockfileVersion = 1
	}

	namespace, name := purlutil.SplitNPMScope(lf.Name)
	pkg := &model.PackageData{
		PackageType:     "npm",
		Namespace:       namespace,
		Name:            name,
		Version:         lf.Version,
		Purl:            purlutil.NPM(lf.Name, lf.Version),
		DatasourceID:    "npm_package_lock_json",
		PrimaryLanguage: "JavaScript",
	}

	if lf.LockfileVersion == 1 {
		pkg.Dependencies = flattenV1(lf.Dependencies)
	} else {
		pkg.Dependencies = flattenV2Plus(lf.Packages)
	}
	return []*model.PackageData{pkg}, nil
}

func flattenV2Plus(packages map[string]npmLockPackage) []*model.Dependency {
	var deps []*model.Dependency
	for key, entry := range packages {
		if key == "" {
			continue
		}
		pkgName := packageNameFromNodeModulesPath(key)
		if pkgName == "" || entry.Version == "" {
			continue
		}
		ns, bare := purlutil.SplitNPMScope(pkgName)
		scope, isRuntime, isOptional := classifyScope(entry.Dev, entry.DevOptional, entry.Optional)
		sha1, sha512 := decodeIntegrity(entry.Integrity)
		if sha1 == "" {
			sha1 = sha1FromResolvedURL(entry.Resolved)
		}
		deps = append(deps, &model.Dependency{
			Purl:                 purlutil.NPM(pkgName, entry.Version),
			ExtractedRequirement: entry.Version,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "npm",
					Namespace:       ns,
					Name:            bare,
					Version:         entry.Version,
					PrimaryLanguage: "JavaScript",
					URLs:            model.URLs{Download: entry.Resolved},
					IsVirtual:       true,
					Checksums:       checksumsOf(sha1, sha512),
				},
			},
		})
	}
	return deps
}

func flattenV1(deps map[string]npmLockDepV1) []*model.Dependency {
	var out []*model.Dependency
	for name, entry := range deps {
		if entry.Version == "" {
			continue
		}
		ns, bare := purlutil.SplitNPMScope(name)
		scope, isRuntime, isOptional := classifyScope(entry.Dev, false, entry.Optional)
		sha1, sha512 := decodeIntegrity(entry.Integrity)
		if sha1 == "" {
			sha1 = sha1FromResolvedURL(entry.Resolved)
		}
		out = append(out, &model.Dependency{
			Purl:                 purlutil.NPM(name, entry.Version),
			ExtractedRequirement: entry.Version,
			Scope:                scope,
			IsRuntime:            isRuntime,
			IsOptional:           isOptional,
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "npm",
					Namespace:       ns,
					Name:            bare,
					Version:         entry.Version,
					PrimaryLanguage: "JavaScript",
					URLs:            model.URLs{Download: entry.Resolved},
					IsVirtual:       true,
					Checksums:       checksumsOf(sha1, sha512),
					Dependencies:    flattenV1(entry.Dependencies),
				},
			},
		})
	}
	return out
}

func checksumsOf(sha1, sha512 string) []model.Checksum {
	var out []model.Checksum
	if sha1 != "" {
		out = append(out, model.Checksum{Algorithm: "sha1", Value: sha1})
	}
	if sha512 != "" {
		out = append(out, model.Checksum{Algorithm: "sha512", Value: sha512})
	}
	return out
}

// packageNameFromNodeModulesPath extracts "express" from
// "node_modules/express" or "@types/node" from
// "node_modules/foo/node_modules/@types/node" (last occurrence wins, per
// original_source/src/parsers/npm_lock.rs's rfind-based logic).
func packageNameFromNodeModulesPath(key string) string {
	const marker = "node_modules/"
	idx := strings.LastIndex(key, marker)
	if idx < 0 {
		return ""
	}
	rest := key[idx+len(marker):]
	if strings.HasPrefix(rest, "@") {
		firstSlash := strings.Index(rest, "/")
		if firstSlash < 0 {
			return rest
		}
		remaining := rest[firstSlash+1:]
		if nextSlash := strings.Index(remaining, "/"); nextSlash >= 0 {
			return rest[:firstSlash+1] + remaining[:nextSlash]
		}
		return rest
	}
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return rest[:slash]
	}
	return rest
}

func classifyScope(isDev, isDevOptional, isOptional bool) (scope string, isRuntime, isOptionalFlag bool) {
	switch {
	case isDev || isDevOptional:
		return "devDependencies", false, true
	case isOptional:
		return "dependencies", true, true
	default:
		return "dependencies", true, false
	}
}

// decodeIntegrity decodes npm's Subresource Integrity field
// ("sha512-<base64>" or "sha1-<base64>") into hex digests.
func decodeIntegrity(integrity string) (sha1Hex, sha512Hex string) {
	if integrity == "" {
		return "", ""
	}
	algo, b64, ok := strings.Cut(integrity, "-")
	if !ok {
		return "", ""
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", ""
	}
	h := hex.EncodeToString(raw)
	switch algo {
	case "sha1":
		return h, ""
	case "sha512":
		return "", h
	default:
		return "", ""
	}
}

// sha1FromResolvedURL extracts a trailing "#<sha1>" fragment some older
// lockfiles append to the tarball URL.
func sha1FromResolvedURL(url string) string {
	idx := strings.LastIndex(url, "#")
	if idx < 0 {
		return ""
	}
	hash := url[idx+1:]
	if len(hash) != 40 {
		return ""
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return ""
		}
	}
	return hash
}
