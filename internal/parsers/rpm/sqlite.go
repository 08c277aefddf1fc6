package rpm

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime/trace"
	"strconv"
	"strings"

	rpmversion "github.com/knqyf263/go-rpm-version"
	"github.com/quay/zlog"
	_ "modernc.org/sqlite"

	"github.com/quay/pkgscan/internal/purlutil"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

func init() {
	registry.Register(registry.Descriptor{
		ID:               "rpm_sqlite_rpmdb",
		Description:      "RPM SQLite-backed package database (/var/lib/rpm/rpmdb.sqlite)",
		Patterns:         []string{"var/lib/rpm/rpmdb.sqlite", "**/var/lib/rpm/rpmdb.sqlite"},
		DefaultEcosystem: "rpm",
		DocumentationURL: "https://rpm-software-management.github.io/rpm/manual/",
		DatasourceID:     "rpm_sqlite_rpmdb",
		Mode:             registry.Standalone,
		Parse:            parseRPMDB,
	})
}

// allPackagesQuery, modeled on quay-claircore/rpm/sqlite/sql/allpackages.sql,
// selects every header blob out of the Packages table in hnum order.
const allPackagesQuery = `SELECT hnum, blob FROM Packages ORDER BY hnum;`

// parseRPMDB opens path as a SQLite RPM database (the "Packages" table maps
// header number to a binary header blob) and decodes each header into a
// package fragment, following quay-claircore/rpm/sqlite.go's
// packagesFromInfos.
func parseRPMDB(ctx context.Context, path string) ([]*model.PackageData, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "rpm/parseRPMDB", "path", path)
	defer trace.StartRegion(ctx, "rpm.parseRPMDB").End()

	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"query_only(1)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("rpm: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, allPackagesQuery)
	if err != nil {
		return nil, fmt.Errorf("rpm: query %s: %w", path, err)
	}
	defer rows.Close()

	var out []*model.PackageData
	var hnum int64
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&hnum, &blob); err != nil {
			return nil, fmt.Errorf("rpm: scan row: %w", err)
		}
		pkg, err := decodeHeaderBlob(ctx, blob)
		if err != nil {
			zlog.Warn(ctx).Int64("hnum", hnum).Err(err).Msg("skipping unreadable rpm header")
			continue
		}
		if pkg != nil {
			out = append(out, pkg)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rpm: iterate rows: %w", err)
	}
	return out, nil
}

func decodeHeaderBlob(ctx context.Context, blob []byte) (*model.PackageData, error) {
	h := &header{}
	if err := h.parse(blob); err != nil {
		return nil, err
	}
	var info rpmInfo
	if err := info.load(ctx, h); err != nil {
		return nil, err
	}
	if info.Name == "" {
		return nil, fmt.Errorf("rpm: header has no Name tag")
	}

	evr := constructEVR(&info)
	pkg := &model.PackageData{
		PackageType:  "rpm",
		Namespace:    "",
		Name:         info.Name,
		Version:      evr,
		DatasourceID: "rpm_sqlite_rpmdb",
		Description:  info.Summary,
		LicenseStatement: info.License,
	}
	quals := map[string]string{}
	if info.Arch != "" {
		quals["arch"] = info.Arch
	}
	pkg.Purl = purlutil.Build("rpm", "", info.Name, evr, quals, "")
	if info.URL != "" {
		pkg.URLs.Homepage = info.URL
	}
	if info.SourceNEVR != "" {
		if pkg.ExtraData == nil {
			pkg.ExtraData = map[string]any{}
		}
		pkg.ExtraData["source_rpm"] = info.SourceNEVR
	}
	pkg.FileReferences = info.buildFileReferences()
	if _, err := rpmversion.NewVersion(evr); err != nil {
		zlog.Debug(ctx).Str("package", info.Name).Str("version", evr).Msg("unparseable rpm evr")
	}
	return pkg, nil
}

// constructEVR builds the epoch:version-release string, matching
// quay-claircore/rpm/sqlite.go's constructEVR.
func constructEVR(info *rpmInfo) string {
	var b strings.Builder
	if info.Epoch != 0 {
		b.WriteString(strconv.Itoa(info.Epoch))
		b.WriteByte(':')
	}
	b.WriteString(info.Version)
	b.WriteByte('-')
	b.WriteString(info.Release)
	return b.String()
}
