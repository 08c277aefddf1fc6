package cocoapods

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
		ID:               "cocoapods_podfile_lock",
		Description:      "CocoaPods Podfile.lock resolution lockfile",
		Patterns:         []string{"**/Podfile.lock"},
		DefaultEcosystem: "cocoapods",
		PrimaryLanguage:  "Objective-C",
		DocumentationURL: "https://guides.cocoapods.org/using/the-podfile.html",
		DatasourceID:     "cocoapods_podfile_lock",
		Mode:             registry.Standalone,
		Parse:            parsePodfileLock,
	})
}

type podfileLockYAML struct {
	Pods            []any             `yaml:"PODS"`
	Dependencies    []string          `yaml:"DEPENDENCIES"`
	SpecRepos       map[string][]string `yaml:"SPEC REPOS"`
	SpecChecksums   map[string]string `yaml:"SPEC CHECKSUMS"`
	CheckoutOptions map[string]map[string]string `yaml:"CHECKOUT OPTIONS"`
	ExternalSources map[string]map[string]string `yaml:"EXTERNAL SOURCES"`
	Cocoapods       string            `yaml:"COCOAPODS"`
	PodfileChecksum string            `yaml:"PODFILE CHECKSUM"`
}

type podLockData struct {
	versionsByBasePurl map[string]string
	directPurls        map[string]bool
	specByBasePurl     map[string]string
	checksumByBasePurl map[string]string
	externalByBasePurl map[string]string
}

func parsePodfileLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "cocoapods/parsePodfileLock", "path", path)
	defer trace.StartRegion(ctx, "cocoapods.parsePodfileLock").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read Podfile.lock")
		return []*model.PackageData{{PackageType: "cocoapods", PrimaryLanguage: "Objective-C", DatasourceID: "cocoapods_podfile_lock"}}, nil
	}
	var lock podfileLockYAML
	if err := yaml.Unmarshal(raw, &lock); err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to parse Podfile.lock")
		return []*model.PackageData{{PackageType: "cocoapods", PrimaryLanguage: "Objective-C", DatasourceID: "cocoapods_podfile_lock"}}, nil
	}

	data := collectPodLockData(&lock)

	pkg := &model.PackageData{
		PackageType:     "cocoapods",
		PrimaryLanguage: "Objective-C",
		DatasourceID:    "cocoapods_podfile_lock",
	}
	for _, pod := range lock.Pods {
		switch v := pod.(type) {
		case string:
			pkg.Dependencies = append(pkg.Dependencies, buildPodDependency(data, v, nil))
		case map[any]any:
			for key, nested := range v {
				mainPod, ok := key.(string)
				if !ok {
					continue
				}
				var depPods []string
				if seq, ok := nested.([]any); ok {
					for _, item := range seq {
						if s, ok := item.(string); ok {
							depPods = append(depPods, s)
						}
					}
				}
				nestedDeps := buildNestedPodDependencies(data, depPods)
				pkg.Dependencies = append(pkg.Dependencies, buildPodDependency(data, mainPod, nestedDeps))
			}
		}
	}

	extra := map[string]any{}
	if lock.Cocoapods != "" {
		extra["cocoapods"] = lock.Cocoapods
	}
	if lock.PodfileChecksum != "" {
		extra["podfile_checksum"] = lock.PodfileChecksum
	}
	if len(extra) > 0 {
		pkg.ExtraData = extra
	}
	return []*model.PackageData{pkg}, nil
}

func collectPodLockData(lock *podfileLockYAML) *podLockData {
	d := &podLockData{
		versionsByBasePurl: map[string]string{},
		directPurls:        map[string]bool{},
		specByBasePurl:     map[string]string{},
		checksumByBasePurl: map[string]string{},
		externalByBasePurl: map[string]string{},
	}
	for _, pod := range lock.Pods {
		var mainPod string
		switch v := pod.(type) {
		case string:
			mainPod = v
		case map[any]any:
			for key := range v {
				if s, ok := key.(string); ok {
					mainPod = s
				}
				break
			}
		}
		if mainPod == "" {
			continue
		}
		ns, name, _, requirement := parsePodDepRequirements(mainPod)
		basePurl := makeBasePurl(ns, name)
		if requirement != "" {
			d.versionsByBasePurl[basePurl] = requirement
		}
	}
	for _, dep := range lock.Dependencies {
		ns, name, _, _ := parsePodDepRequirements(dep)
		d.directPurls[makeBasePurl(ns, name)] = true
	}
	for repo, pkgs := range lock.SpecRepos {
		for _, p := range pkgs {
			ns, name, _, _ := parsePodDepRequirements(p)
			d.specByBasePurl[makeBasePurl(ns, name)] = repo
		}
	}
	for name, checksum := range lock.SpecChecksums {
		ns, n, _, _ := parsePodDepRequirements(name)
		d.checksumByBasePurl[makeBasePurl(ns, n)] = checksum
	}
	for name, source := range lock.CheckoutOptions {
		base := makeBasePurl("", name)
		d.externalByBasePurl[base] = processExternalSource(source)
	}
	for name, source := range lock.ExternalSources {
		base := makeBasePurl("", name)
		if _, ok := d.externalByBasePurl[base]; ok {
			continue
		}
		d.externalByBasePurl[base] = processExternalSource(source)
	}
	return d
}

func buildPodDependency(data *podLockData, mainPod string, nested []*model.Dependency) *model.Dependency {
	ns, name, version, requirement := parsePodDepRequirements(mainPod)
	basePurl := makeBasePurl(ns, name)
	isDirect := data.directPurls[basePurl]
	checksum := data.checksumByBasePurl[basePurl]
	specRepo := data.specByBasePurl[basePurl]
	external := data.externalByBasePurl[basePurl]

	resolvedExtra := map[string]any{}
	if specRepo != "" {
		resolvedExtra["spec_repo"] = specRepo
	}
	if external != "" {
		resolvedExtra["external_source"] = external
	}

	resolved := &model.ResolvedPackage{PackageData: model.PackageData{
		PackageType:     "cocoapods",
		Namespace:       ns,
		Name:            name,
		Version:         version,
		PrimaryLanguage: "Objective-C",
		IsVirtual:       true,
		DatasourceID:    "cocoapods_podfile_lock",
		Dependencies:    nested,
	}}
	if checksum != "" {
		resolved.Checksums = []model.Checksum{{Algorithm: "sha1", Value: checksum}}
	}
	if len(resolvedExtra) > 0 {
		resolved.ExtraData = resolvedExtra
	}

	return &model.Dependency{
		Purl:                 createCocoapodsPurl(ns, name, version),
		ExtractedRequirement: requirement,
		Scope:                "requires",
		IsRuntime:            false,
		IsOptional:           true,
		IsPinned:             true,
		IsDirect:             isDirect,
		ResolvedPackage:      resolved,
	}
}

func buildNestedPodDependencies(data *podLockData, depPods []string) []*model.Dependency {
	var out []*model.Dependency
	for _, depPod := range depPods {
		ns, name, version, requirement := parsePodDepRequirements(depPod)
		basePurl := makeBasePurl(ns, name)
		if version == "" {
			if v, ok := data.versionsByBasePurl[basePurl]; ok {
				version = v
				if requirement == "" {
					requirement = v
				}
			}
		}
		out = append(out, &model.Dependency{
			Purl:                 createCocoapodsPurl(ns, name, version),
			ExtractedRequirement: requirement,
			Scope:                "requires",
			IsRuntime:            false,
			IsOptional:           true,
			IsPinned:             true,
			IsDirect:             true,
		})
	}
	return out
}

// parsePodDepRequirements splits a lockfile pod entry like "AFNetworking
// (4.0.1)" or "Alamofire/Core (~> 5.0)" into namespace (subspec parent),
// name, bare version and the raw parenthesized requirement.
func parsePodDepRequirements(dep string) (namespace, name, version, requirement string) {
	dep = strings.TrimSpace(dep)
	namePart := dep
	if idx := strings.IndexByte(dep, '('); idx >= 0 {
		namePart = strings.TrimSpace(dep[:idx])
		versionPart := strings.Trim(dep[idx:], "() ")
		requirement = versionPart
		version = strings.TrimLeftFunc(versionPart, func(r rune) bool {
			return !(r >= '0' && r <= '9') && r != '.'
		})
		version = strings.TrimSpace(version)
	} else {
		namePart = strings.TrimSuffix(namePart, ")")
	}
	if strings.Contains(namePart, "/") {
		parts := strings.SplitN(namePart, "/", 2)
		namespace = strings.TrimSpace(parts[0])
		name = strings.TrimSpace(parts[1])
	} else {
		name = strings.TrimSpace(namePart)
	}
	return namespace, name, version, requirement
}

func makeBasePurl(namespace, name string) string {
	if namespace != "" {
		return fmt.Sprintf("pkg:cocoapods/%s/%s", namespace, name)
	}
	return "pkg:cocoapods/" + name
}

func createCocoapodsPurl(namespace, name, version string) string {
	return purlutil.Build("cocoapods", namespace, name, version, nil, "")
}

func processExternalSource(source map[string]string) string {
	if len(source) == 1 {
		for _, v := range source {
			return v
		}
	}
	if gitURL, ok := source[":git"]; ok {
		repoURL := strings.TrimSuffix(gitURL, ".git")
		repoURL = strings.Replace(repoURL, "git@", "https://", 1)
		repoURL = strings.TrimRight(repoURL, "/")
		if commit, ok := source[":commit"]; ok {
			return fmt.Sprintf("%s/tree/%s", repoURL, commit)
		}
		if branch, ok := source[":branch"]; ok {
			return fmt.Sprintf("%s/tree/%s", repoURL, branch)
		}
	}
	return fmt.Sprintf("%v", source)
}
