// Package apk parses Alpine's "lib/apk/db/installed" package database: a
// custom, case-sensitive, single-letter-keyed stanza format (not RFC822,
// since apk's keys collide under MIME's case-insensitive matching).
//
// Grounded directly on quay-claircore/apk/scanner.go's byte-level stanza
// splitter.
package apk

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime/trace"

	version "github.com/knqyf263/go-apk-version"
	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "apk_installed",
		Description:      "Alpine apk installed-package database",
		Patterns:         []string{"lib/apk/db/installed", "**/lib/apk/db/installed"},
		DefaultEcosystem: "apk",
		DocumentationURL: "https://wiki.alpinelinux.org/wiki/Alpine_Package_Keeper",
		DatasourceID:     "apk_installed",
		Mode:             registry.Standalone,
		Parse:            parseInstalled,
	})
}

func parseInstalled(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "apk/parseInstalled", "path", path)
	defer trace.StartRegion(ctx, "apk.parseInstalled").End()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apk: read %s: %w", path, err)
	}

	var out []*model.PackageData
	for _, entry := range bytes.Split(raw, []byte("\n\n")) {
		if len(bytes.TrimSpace(entry)) == 0 {
			continue
		}
		pkg := parseStanza(ctx, entry)
		if pkg != nil {
			out = append(out, pkg)
		}
	}
	return out, nil
}

func parseStanza(ctx context.Context, entry []byte) *model.PackageData {
	pkg := &model.PackageData{
		PackageType:  "apk",
		DatasourceID: "apk_installed",
	}
	arch := ""
	origin := ""
	curDir := ""
	sc := bufio.NewScanner(bytes.NewReader(entry))
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) < 2 || line[1] != ':' {
			continue
		}
		val := string(bytes.TrimSpace(line[2:]))
		switch line[0] {
		case 'P':
			pkg.Name = val
		case 'V':
			pkg.Version = val
		case 'A':
			arch = val
		case 'o':
			origin = val
		case 'L':
			pkg.LicenseStatement = val
		case 't':
			pkg.Description = val
		case 'U':
			pkg.URLs.Homepage = val
		case 'F':
			// F: introduces a directory; subsequent R: lines list the
			// files apk installed into it, until the next F: stanza.
			curDir = val
		case 'R':
			if val == "" {
				continue
			}
			path := val
			if curDir != "" {
				path = curDir + "/" + val
			}
			pkg.FileReferences = append(pkg.FileReferences, model.FileReference{Path: path})
		}
	}
	if pkg.Name == "" {
		return nil
	}
	quals := map[string]string{}
	if arch != "" {
		quals["arch"] = arch
	}
	pkg.Purl = purlutil.Build("apk", "alpine", pkg.Name, pkg.Version, quals, "")
	if origin != "" && origin != pkg.Name {
		if pkg.ExtraData == nil {
			pkg.ExtraData = map[string]any{}
		}
		pkg.ExtraData["origin"] = origin
	}
	if _, err := version.NewVersion(pkg.Version); err != nil {
		zlog.Debug(ctx).Str("package", pkg.Name).Str("version", pkg.Version).Err(err).Msg("unparseable apk version")
	}
	return pkg
}
