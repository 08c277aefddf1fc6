// Package dpkg parses Debian package databases: the dpkg "status" file and
// its distroless variant (a directory of one-stanza-per-file
// /var/lib/dpkg/status.d/ entries).
//
// Grounded on quay-claircore/dpkg/scanner.go's RFC822-via-net/textproto
// reading of the status file (adapted here from "layer tarball" to "single
// file path", since the registry hands parsers one already-located file).
package dpkg

import (
	"bufio"
	"context"
	"fmt"
	"net/textproto"
	"os"
	"runtime/trace"

	version "github.com/knqyf263/go-deb-version"
	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "dpkg_status",
		Description:      "dpkg installed-package status database",
		Patterns:         []string{"var/lib/dpkg/status", "**/var/lib/dpkg/status"},
		DefaultEcosystem: "deb",
		DocumentationURL: "https://www.debian.org/doc/debian-policy/ch-controlfields.html",
		DatasourceID:     "dpkg_status",
		Mode:             registry.Standalone,
		Parse:            parseStatus,
	})
	registry.Register(registry.Descriptor{
		ID:               "dpkg_status_d",
		Description:      "distroless dpkg status.d single-package stanza",
		Patterns:         []string{"var/lib/dpkg/status.d/*", "**/var/lib/dpkg/status.d/*"},
		DefaultEcosystem: "deb",
		DatasourceID:     "dpkg_status_d",
		Mode:             registry.Standalone,
		Parse: func(ctx context.Context, path string) ([]*model.PackageData, error) {
			frags, err := parseStatus(ctx, path)
			for _, p := range frags {
				p.DatasourceID = "dpkg_status_d"
			}
			return frags, err
		},
	})
}

// parseStatus reads one or more RFC822-style stanzas (separated by a blank
// line) from a dpkg status database, exactly as
// quay-claircore/dpkg/scanner.go does via net/textproto.
func parseStatus(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "dpkg/parseStatus", "path", path)
	defer trace.StartRegion(ctx, "dpkg.parseStatus").End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dpkg: open %s: %w", path, err)
	}
	defer f.Close()

	tp := textproto.NewReader(bufio.NewReader(f))
	var out []*model.PackageData
	for {
		hdr, err := tp.ReadMIMEHeader()
		if len(hdr) == 0 {
			break
		}
		name := hdr.Get("Package")
		ver := hdr.Get("Version")
		if name == "" {
			continue
		}
		pkg := &model.PackageData{
			PackageType:     "deb",
			Name:            name,
			Version:         ver,
			Purl:            purlutil.Build("deb", "debian", name, ver, map[string]string{"arch": hdr.Get("Architecture")}, ""),
			DatasourceID:    "dpkg_status",
			PrimaryLanguage: "",
			Description:     hdr.Get("Description"),
		}
		if _, verr := version.NewVersion(ver); verr != nil {
			zlog.Debug(ctx).Str("package", name).Str("version", ver).Err(verr).Msg("unparseable debian version")
		}
		if src := hdr.Get("Source"); src != "" {
			if pkg.ExtraData == nil {
				pkg.ExtraData = map[string]any{}
			}
			pkg.ExtraData["source_package"] = src
		}
		out = append(out, pkg)
		if err != nil {
			break
		}
	}
	return out, nil
}
