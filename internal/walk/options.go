// Package walk is the glue that drives the core (path matcher, registry,
// parsers, copyright detector, assembler) across a real filesystem tree:
// a single-threaded Phase 1 walk that builds the FileInfo slice, a bounded
// parallel Phase 2 that runs parsers and copyright detection per file, and
// a serial Phase 3 assembly pass (spec §5 "Scheduling model").
//
// Grounded on quay-claircore/indexer/layerscanner/layerscanner.go for the
// errgroup+semaphore worker-pool shape, adapted from "layers x scanners"
// to "files x (matcher, parsers, copyright detector)".
package walk

import (
	"runtime"
	"time"
)

// Options configures a Scan, constructed directly by cmd/pkgscan the way
// indexer.Opts is constructed by claircore's libindex.
type Options struct {
	// Root is the filesystem path to walk.
	Root string

	// Workers bounds the number of in-flight Phase 2 jobs. Zero or
	// negative means GOMAXPROCS.
	Workers int

	// PerFileTimeout is a soft ceiling on how long Phase 2 may spend on a
	// single file before that file gets a scan_errors entry and produces
	// no package_data (spec §5 "Cancellation and timeouts"). Zero means
	// no per-file timeout.
	PerFileTimeout time.Duration

	// Ecosystems, when non-empty, restricts which parsers run: only
	// descriptors whose DefaultEcosystem is in this set (plus descriptors
	// with no DefaultEcosystem, which are never ecosystem-specific) are
	// invoked. Empty means every registered parser runs.
	Ecosystems []string
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) ecosystemEnabled(ecosystem string) bool {
	if len(o.Ecosystems) == 0 || ecosystem == "" {
		return true
	}
	for _, e := range o.Ecosystems {
		if e == ecosystem {
			return true
		}
	}
	return false
}
