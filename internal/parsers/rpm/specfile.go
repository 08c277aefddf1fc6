package rpm

import (
	"context"
	"os"
	"regexp"
	"runtime/trace"
	"strings"
	"unicode"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "rpm_specfile",
		Description:      "RPM specfile",
		Patterns:         []string{"**/*.spec"},
		DefaultEcosystem: "rpm",
		DatasourceID:     "rpm_specfile",
		Mode:             registry.Standalone,
		Parse:            parseSpecfile,
	})
	registry.Register(registry.Descriptor{
		ID:               "rpm_mariner_manifest",
		Description:      "RPM Mariner distroless package manifest",
		Patterns:         []string{"**/var/lib/rpmmanifest/container-manifest-2"},
		DefaultEcosystem: "rpm",
		DatasourceID:     "rpm_mariner_manifest",
		Mode:             registry.Standalone,
		Parse:            parseMarinerManifest,
	})
}

var reConditionalMacro = regexp.MustCompile(`%\{\?[^}]+\}`)

// parseSpecfile extracts metadata from an RPM .spec file's preamble.
//
// Grounded on original_source/src/parsers/rpm_specfile.rs, which documents
// itself as going beyond the distilled spec's stub handler: it extracts
// Name/Version/Release/Summary/License/URL/packager, BuildRequires/Requires
// (including scoped Requires(post) etc.) and Provides, with simple
// %{name}/%{version}/%{release} macro expansion and %description capture.
// Only the preamble, the section before %prep/%build/etc, is parsed;
// %define and %global are allowed to appear ahead of that boundary.
func parseSpecfile(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "rpm/parseSpecfile", "path", path)
	defer trace.StartRegion(ctx, "rpm.parseSpecfile").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read specfile")
		return []*model.PackageData{{PackageType: "rpm", DatasourceID: "rpm_specfile"}}, nil
	}
	return []*model.PackageData{parseSpecfileContent(string(raw))}, nil
}

func parseSpecfileContent(content string) *model.PackageData {
	tags := map[string]string{}
	macros := map[string]string{}
	var buildRequires []string
	type scopedRequire struct{ value, scope string }
	var requires []scopedRequire
	var provides []string
	var description string

	lines := strings.Split(content, "\n")
	i := 0

	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if strings.HasPrefix(line, "%") && !strings.HasPrefix(line, "%define") && !strings.HasPrefix(line, "%global") {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if stripped, ok := stripMacroDirective(line); ok {
			parts := strings.SplitN(strings.TrimSpace(stripped), " ", 2)
			if len(parts) == 2 {
				macros[parts[0]] = strings.TrimSpace(parts[1])
			}
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		tag := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])

		switch {
		case tag == "buildrequires":
			for _, dep := range strings.Split(value, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					buildRequires = append(buildRequires, dep)
				}
			}
		case strings.HasPrefix(tag, "requires"):
			scope := "runtime"
			if start := strings.IndexByte(tag, '('); start >= 0 {
				if end := strings.IndexByte(tag, ')'); end > start {
					scope = tag[start+1 : end]
				}
			}
			for _, dep := range strings.Split(value, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					requires = append(requires, scopedRequire{dep, scope})
				}
			}
		case tag == "provides":
			for _, prov := range strings.Split(value, ",") {
				if prov = strings.TrimSpace(prov); prov != "" {
					provides = append(provides, prov)
				}
			}
		default:
			tags[tag] = value
		}
	}

	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "%description") {
			continue
		}
		i++
		var descLines []string
		for ; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			if strings.HasPrefix(trimmed, "%") {
				break
			}
			if len(descLines) > 0 || trimmed != "" {
				descLines = append(descLines, lines[i])
			}
		}
		for len(descLines) > 0 && strings.TrimSpace(descLines[len(descLines)-1]) == "" {
			descLines = descLines[:len(descLines)-1]
		}
		if len(descLines) > 0 {
			description = strings.Join(descLines, "\n")
		}
		break
	}

	if n, ok := tags["name"]; ok {
		macros["name"] = n
	}
	if v, ok := tags["version"]; ok {
		macros["version"] = v
	}
	if r, ok := tags["release"]; ok {
		macros["release"] = r
	}

	expanded := make(map[string]string, len(tags))
	for tag, value := range tags {
		expanded[tag] = expandMacros(value, macros)
	}

	name := expanded["name"]
	version := expanded["version"]
	release := expanded["release"]
	summary := expanded["summary"]
	license := expanded["license"]
	url := expanded["url"]
	group := expanded["group"]
	epoch := expanded["epoch"]
	packager := expanded["packager"]

	downloadURL := expanded["source"]
	if downloadURL == "" {
		downloadURL = expanded["source0"]
	}

	pkg := &model.PackageData{
		PackageType:      "rpm",
		Name:             name,
		Version:          version,
		DatasourceID:     "rpm_specfile",
		LicenseStatement: license,
	}
	pkg.URLs.Homepage = url
	pkg.URLs.Download = downloadURL
	if description != "" {
		pkg.Description = description
	} else {
		pkg.Description = summary
	}
	if packager != "" {
		partyName, email := splitNameEmail(packager)
		pkg.Parties = append(pkg.Parties, model.Party{Role: "packager", Name: partyName, Email: email})
	}

	for _, dep := range buildRequires {
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Build("rpm", "", extractDepName(dep), "", nil, ""),
			ExtractedRequirement: dep,
			Scope:                "build",
			IsRuntime:            false,
			IsDirect:             true,
		})
	}
	for _, r := range requires {
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.Build("rpm", "", extractDepName(r.value), "", nil, ""),
			ExtractedRequirement: r.value,
			Scope:                r.scope,
			IsRuntime:            true,
			IsDirect:             true,
		})
	}

	extra := map[string]any{}
	if release != "" {
		extra["release"] = release
	}
	if epoch != "" {
		extra["epoch"] = epoch
	}
	if group != "" {
		extra["group"] = group
	}
	if len(provides) > 0 {
		extra["provides"] = provides
	}
	if len(extra) > 0 {
		pkg.ExtraData = extra
	}

	if name != "" {
		pkg.Purl = purlutil.Build("rpm", "", name, version, nil, "")
	}
	return pkg
}

// stripMacroDirective recognizes a %define/%global line and returns its
// remainder.
func stripMacroDirective(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "%define"); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(line, "%global"); ok {
		return rest, true
	}
	return "", false
}

func expandMacros(s string, macros map[string]string) string {
	result := reConditionalMacro.ReplaceAllString(s, "")
	for key, value := range macros {
		result = strings.ReplaceAll(result, "%{"+key+"}", value)
	}
	return result
}

func extractDepName(dep string) string {
	idx := strings.IndexAny(dep, "><=")
	if idx < 0 {
		return strings.TrimSpace(dep)
	}
	return strings.TrimSpace(dep[:idx])
}

// splitNameEmail splits an "RPM Packager <email@example.com>"-style string.
func splitNameEmail(s string) (name, email string) {
	start := strings.IndexByte(s, '<')
	end := strings.IndexByte(s, '>')
	if start >= 0 && end > start {
		return strings.TrimSpace(s[:start]), strings.TrimSpace(s[start+1 : end])
	}
	return strings.TrimSpace(s), ""
}

// parseMarinerManifest reads the tab-separated container-manifest-2 file
// Mariner distroless images carry at /var/lib/rpmmanifest, one installed RPM
// per line. Grounded on
// original_source/src/parsers/rpm_mariner_manifest.rs: only
// name/version/arch/filename (fields 0, 1, 7, 9 of the 10-field schema) are
// read; the remaining fields (n1/n2/party/n3/n4/checksum_algo) are not
// surfaced by the upstream Python reference either.
func parseMarinerManifest(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "rpm/parseMarinerManifest", "path", path)
	defer trace.StartRegion(ctx, "rpm.parseMarinerManifest").End()

	def := []*model.PackageData{{PackageType: "rpm", Namespace: "mariner", DatasourceID: "rpm_mariner_manifest"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read mariner manifest")
		return def, nil
	}

	var out []*model.PackageData
	for _, line := range strings.Split(string(raw), "\n") {
		// Trim whitespace but preserve tabs, since the tab-separated field
		// layout below depends on them.
		line := strings.TrimFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) && r != '\t'
		})
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 10 {
			zlog.Warn(ctx).Str("line", line).Msg("invalid mariner manifest line, expected 10 fields")
			continue
		}
		name, version, arch, filename := parts[0], parts[1], parts[7], parts[9]

		pkg := &model.PackageData{
			PackageType:  "rpm",
			Namespace:    "mariner",
			Name:         name,
			Version:      version,
			DatasourceID: "rpm_mariner_manifest",
		}
		if arch != "" {
			pkg.Qualifiers = map[string]string{"arch": arch}
		}
		if filename != "" {
			pkg.ExtraData = map[string]any{"filename": filename}
		}
		out = append(out, pkg)
	}
	if len(out) == 0 {
		return def, nil
	}
	return out, nil
}
