package npm

import (
	"bufio"
	"context"
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
		ID:               "npm_yarn_lock",
		Description:      "yarn.lock classic (v1) lockfile",
		Patterns:         []string{"yarn.lock"},
		DefaultEcosystem: "npm",
		PrimaryLanguage:  "JavaScript",
		DatasourceID:     "npm_yarn_lock",
		Mode:             registry.SiblingMerge,
		SiblingPatterns:  []string{"package.json"},
		Parse:            parseYarnLock,
	})
}

// yarnEntry is one block of yarn.lock: one or more comma-separated
// "name@range" selectors sharing a single resolved version.
type yarnEntry struct {
	selectors []string
	version   string
	resolved  string
	integrity string
}

// parseYarnLock implements a line-oriented reader for yarn.lock's classic
// (v1) custom format. No YAML or TOML library in the corpus targets this
// format — it predates yarn's move to YAML in Berry (v2+) — so this is a
// from-scratch lexer, grounded on the same selector/version/resolved shape
// original_source/src/parsers/npm_lock.rs consumes from package-lock.json
// (spec §4.2's npm family).
func parseYarnLock(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "npm/parseYarnLock", "path", path)
	defer trace.StartRegion(ctx, "npm.parseYarnLock").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npm: open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := scanYarnEntries(f)
	if err != nil {
		return nil, fmt.Errorf("npm: parse %s: %w", path, err)
	}

	pkg := &model.PackageData{
		PackageType:     "npm",
		DatasourceID:    "npm_yarn_lock",
		PrimaryLanguage: "JavaScript",
	}
	for _, e := range entries {
		if e.version == "" || len(e.selectors) == 0 {
			continue
		}
		name := selectorName(e.selectors[0])
		if name == "" {
			continue
		}
		ns, bare := purlutil.SplitNPMScope(name)
		sha1, _ := decodeIntegrity(e.integrity)
		if sha1 == "" {
			sha1 = sha1FromResolvedURL(e.resolved)
		}
		pkg.Dependencies = append(pkg.Dependencies, &model.Dependency{
			Purl:                 purlutil.NPM(name, e.version),
			ExtractedRequirement: strings.Join(requirementRanges(e.selectors), " || "),
			IsPinned:             true,
			IsDirect:             false,
			ResolvedPackage: &model.ResolvedPackage{
				PackageData: model.PackageData{
					PackageType:     "npm",
					Namespace:       ns,
					Name:            bare,
					Version:         e.version,
					PrimaryLanguage: "JavaScript",
					URLs:            model.URLs{Download: e.resolved},
					IsVirtual:       true,
					Checksums:       checksumsOf(sha1, ""),
				},
			},
		})
	}
	return []*model.PackageData{pkg}, nil
}

func scanYarnEntries(f *os.File) ([]yarnEntry, error) {
	var entries []yarnEntry
	var cur *yarnEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimRight(line, " \t")
		switch {
		case trimmed == "" || strings.HasPrefix(strings.TrimSpace(trimmed), "#"):
			continue
		case !strings.HasPrefix(trimmed, " ") && !strings.HasPrefix(trimmed, "\t"):
			// A new block header, e.g.: "lodash@^4.17.0, lodash@^4.17.21:"
			if cur != nil {
				entries = append(entries, *cur)
			}
			header := strings.TrimSuffix(strings.TrimSpace(trimmed), ":")
			cur = &yarnEntry{selectors: splitSelectors(header)}
		case cur != nil:
			kv := strings.TrimSpace(trimmed)
			switch {
			case strings.HasPrefix(kv, "version"):
				cur.version = unquote(strings.TrimSpace(strings.TrimPrefix(kv, "version")))
			case strings.HasPrefix(kv, "resolved"):
				cur.resolved = unquote(strings.TrimSpace(strings.TrimPrefix(kv, "resolved")))
			case strings.HasPrefix(kv, "integrity"):
				cur.integrity = unquote(strings.TrimSpace(strings.TrimPrefix(kv, "integrity")))
			}
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, sc.Err()
}

func splitSelectors(header string) []string {
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = unquote(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// selectorName extracts "lodash" from "lodash@^4.17.0", respecting scoped
// names like "@types/node@^18".
func selectorName(selector string) string {
	if strings.HasPrefix(selector, "@") {
		if i := strings.Index(selector[1:], "@"); i >= 0 {
			return selector[:i+1]
		}
		return ""
	}
	if i := strings.Index(selector, "@"); i >= 0 {
		return selector[:i]
	}
	return selector
}

func requirementRanges(selectors []string) []string {
	out := make([]string, 0, len(selectors))
	for _, s := range selectors {
		name := selectorName(s)
		out = append(out, strings.TrimPrefix(s[len(name):], "@"))
	}
	return out
}
