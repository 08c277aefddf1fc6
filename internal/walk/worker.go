package walk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/quay/pkgscan/internal/assembler"
	"github.com/quay/pkgscan/internal/copyright"
	"github.com/quay/pkgscan/internal/registry"
	"github.com/quay/pkgscan/model"
)

// Scan runs the full three-phase pipeline (spec §5) over opts.Root: Phase 1
// walks the tree, Phase 2 runs the registry's matched parsers plus the
// copyright detector on every file in a bounded worker pool, and Phase 3
// runs the assembler once, serially, over the finished file set.
func Scan(ctx context.Context, opts Options) ([]*model.FileInfo, []*model.Package, []*model.TopLevelDependency, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "walk.Scan")

	files, err := walkTree(opts.Root)
	if err != nil {
		return nil, nil, nil, err
	}
	zlog.Debug(ctx).Int("count", len(files)).Msg("walk complete")

	if err := scanFiles(ctx, opts, files); err != nil {
		return nil, nil, nil, err
	}

	packages, deps := assembler.Assemble(ctx, files)
	return files, packages, deps, nil
}

// scanFiles is Phase 2: an errgroup-managed pool bounded by a weighted
// semaphore, one job per file, following
// quay-claircore/indexer/layerscanner/layerscanner.go's Scan method (there
// bounding (layer, scanner) pairs, here bounding files).
func scanFiles(ctx context.Context, opts Options, files []*model.FileInfo) error {
	sem := semaphore.NewWeighted(int64(opts.workers()))
	g, ctx := errgroup.WithContext(ctx)

	for _, f := range files {
		if f.FileType != model.File {
			continue
		}
		f := f
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			scanOneFile(ctx, opts, f)
			return nil
		})
	}
	return g.Wait()
}

// scanOneFile mutates only f (spec §5 "The worker writes only into its own
// FileInfo"). No parser error ever propagates out of a worker (spec §7):
// registry.Parse turns a parser failure into a default fragment, and a
// per-file timeout or a failed read of the file becomes a scan_errors
// entry.
func scanOneFile(ctx context.Context, opts Options, f *model.FileInfo) {
	start := time.Now()
	defer func() { fileScanDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := withSoftTimeout(ctx, opts.PerFileTimeout)
	defer cancel()

	full := filepath.Join(opts.Root, filepath.FromSlash(f.Path))

	parserIDs := registry.FindParsers(f.Path)
	for _, id := range parserIDs {
		if ctx.Err() != nil {
			f.ScanErrors = append(f.ScanErrors, fmt.Sprintf("pkgscan/walk: %s: timed out before running parser %q", f.Path, id))
			fileScanTimeouts.Inc()
			break
		}
		d, ok := registry.Get(id)
		if !ok || !opts.ecosystemEnabled(d.DefaultEcosystem) {
			continue
		}
		parserInvocations.WithLabelValues(id).Inc()
		frags := registry.Parse(ctx, id, full)
		if len(frags) == 1 && isDefaultFragment(frags[0], d) {
			parserErrors.WithLabelValues(id).Inc()
		}
		for _, frag := range frags {
			frag.SetSourceFileIndex(f.Index)
		}
		f.PackageData = append(f.PackageData, frags...)
	}

	if ctx.Err() != nil {
		return
	}

	content, err := os.ReadFile(full)
	if err != nil {
		f.ScanErrors = append(f.ScanErrors, fmt.Sprintf("pkgscan/walk: read %s: %v", f.Path, err))
		return
	}
	f.MimeType = sniffMimeType(content)
	if isTextMimeType(f.MimeType) {
		copyrights, holders, authors := copyright.Detect(string(content))
		f.Copyrights = copyrights
		f.Holders = holders
		f.Authors = authors
	}
}

// isDefaultFragment reports whether frag is indistinguishable from the
// registry's own fallback fragment for d (registry.Parse's "Read
// failures"/"Malformed content" degradation, spec §7): only PackageType
// and DatasourceID set, everything else zero.
func isDefaultFragment(frag *model.PackageData, d registry.Descriptor) bool {
	return frag.PackageType == d.DefaultEcosystem &&
		frag.DatasourceID == d.DatasourceID &&
		frag.Name == "" && frag.Version == "" && frag.Purl == "" &&
		frag.Namespace == "" && len(frag.Dependencies) == 0 &&
		len(frag.FileReferences) == 0 && len(frag.ExtraData) == 0
}

func isTextMimeType(mt string) bool {
	return strings.HasPrefix(mt, "text/") ||
		strings.Contains(mt, "json") ||
		strings.Contains(mt, "xml")
}

// withSoftTimeout returns ctx unchanged (and a no-op cancel) when d is
// zero, matching spec §5 "Zero means no per-file timeout."
func withSoftTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
