// Package osrelease parses /etc/os-release (or /usr/lib/os-release), the
// freedesktop.org key=value distribution identity file. It contributes no
// Package of its own (it is not a package manifest); instead the assembler
// reads its PackageData.Namespace field directly off the walked file to
// stamp RPM packages with a distro namespace (spec §4.4 step 3, "RPM
// namespace propagation").
//
// Grounded on quay-claircore/osrelease/scanner.go's parse function: same
// key=value line scanner, same single/double-quote unwrapping rules, same
// ID field selection (generalized here from claircore.Distribution.DID to
// PackageData.Namespace).
package osrelease

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"runtime/trace"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "etc_os_release",
		Description:      "freedesktop.org os-release distribution identity",
		Patterns:         []string{"etc/os-release", "**/etc/os-release", "usr/lib/os-release", "**/usr/lib/os-release"},
		DefaultEcosystem: "",
		DatasourceID:     "etc_os_release",
		Mode:             registry.Standalone,
		Parse:            parseOSRelease,
	})
}

func parseOSRelease(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "osrelease/parseOSRelease", "path", path)
	defer trace.StartRegion(ctx, "osrelease.parseOSRelease").End()

	def := []*model.PackageData{{DatasourceID: "etc_os_release"}}

	raw, err := os.ReadFile(path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("failed to read os-release")
		return def, nil
	}

	pkg := &model.PackageData{DatasourceID: "etc_os_release"}
	s := bufio.NewScanner(bytes.NewReader(raw))
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		eq := bytes.IndexRune(line, '=')
		if eq == -1 {
			continue
		}
		key := strings.TrimSpace(string(line[:eq]))
		value := strings.TrimSpace(string(line[eq+1:]))
		value = unquote(value)

		switch key {
		case "ID":
			pkg.Namespace = value
		case "VERSION_ID":
			if pkg.ExtraData == nil {
				pkg.ExtraData = map[string]any{}
			}
			pkg.ExtraData["version_id"] = value
		case "PRETTY_NAME":
			pkg.Description = value
		}
	}
	return []*model.PackageData{pkg}, nil
}

// unquote strips the shell-like quoting os-release values may carry,
// matching the teacher scanner's single/double quote handling.
func unquote(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '\'':
		value = strings.Trim(value, "'")
		value = strings.ReplaceAll(value, `'\''`, `'`)
	case '"':
		value = strings.Trim(value, `"`)
		value = strings.NewReplacer(
			"\\`", "`",
			`\\`, `\`,
			`\"`, `"`,
			`\$`, `$`,
		).Replace(value)
	}
	return value
}
