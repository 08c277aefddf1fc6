// Package registry is the process-wide, build-time-populated parser table
// (spec §4.1). Parser packages register a Descriptor from their own init()
// function; cmd/pkgscan blank-imports every parser package so registration
// happens once, before any scanning begins, and never again afterward —
// mirroring the "no dynamic registration after initialization" contract.
//
// Grounded on quay-claircore/indexer/ecosystem.go's Ecosystem grouping and
// EcosystemsToScanners dedup pass, generalized here from "ecosystem of
// versioned scanners" to "parser descriptor with glob patterns".
package registry

import (
	"context"
	"fmt"
	"runtime/trace"

	"github.com/quay/zlog"

	"github.com/quay/pkgscan/internal/glob"
	"github.com/quay/pkgscan/model"
)

// AssemblyMode tags how the assembler should treat fragments this parser
// produces (spec §4.4).
type AssemblyMode int

const (
	// Standalone: one file yields one Package, no sibling merging.
	Standalone AssemblyMode = iota
	// SiblingMerge: one Package per directory containing any matching
	// sibling pattern; multiple patterns can contribute to one Package.
	SiblingMerge
	// Nested: the package root is found by walking up from an anchor
	// directory; siblings are discovered across the nested subtree.
	Nested
)

// ParseFunc reads the file at path and yields zero or more PackageData
// fragments. Implementations must not recurse into the filesystem (spec
// §4.2: "Parsers must not recurse into the filesystem; they receive the
// one path the registry selected them for") and must never panic.
type ParseFunc func(ctx context.Context, path string) ([]*model.PackageData, error)

// Descriptor is a parser's static registration record (spec §4.1).
type Descriptor struct {
	ID               string
	Description      string
	Patterns         []string
	DefaultEcosystem string
	PrimaryLanguage  string
	DocumentationURL string
	DatasourceID     string
	Mode             AssemblyMode
	// SiblingPatterns lists the other glob patterns that, when found in
	// the same directory, contribute to the same Package this parser
	// seeds (spec §4.4 Sibling-merge mode). Unused outside SiblingMerge.
	SiblingPatterns []string
	// NestedAnchor names the directory basename (e.g. "META-INF",
	// "debian") that marks the package root for Nested mode.
	NestedAnchor string

	Parse ParseFunc
}

var (
	order []string
	byID  = map[string]Descriptor{}
)

// Register adds a parser descriptor to the process-wide table. Intended to
// be called only from parser package init() functions, before Scan starts.
// Registering the same ID twice is a programmer error and panics, per spec
// §4.3's "registry inconsistency" programmer-error category (spec §7).
func Register(d Descriptor) {
	if _, exists := byID[d.ID]; exists {
		panic(fmt.Sprintf("registry: duplicate parser id %q", d.ID))
	}
	if d.Parse == nil {
		panic(fmt.Sprintf("registry: parser %q registered without a Parse function", d.ID))
	}
	order = append(order, d.ID)
	byID[d.ID] = d
}

// Get returns the descriptor for id.
func Get(id string) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// All returns every registered descriptor, in registration order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// FindParsers returns the IDs of every parser whose glob patterns match
// path, in registration order (spec §4.1 find_parsers contract).
func FindParsers(path string) []string {
	var matched []string
	for _, id := range order {
		d := byID[id]
		if matchesAny(d.Patterns, path) {
			matched = append(matched, id)
		}
	}
	return matched
}

// Parse invokes the named parser against path. Any error the parser
// returns, or any panic it raises, is converted into the "default"
// PackageData the spec mandates (spec §4.1 "parse" contract, §4.2
// "Graceful degradation", §7 "Read failures"/"Malformed content"): only
// PackageType and DatasourceID populated, plus a logged warning. Parse
// never returns an error to its caller.
func Parse(ctx context.Context, id string, path string) (result []*model.PackageData) {
	d, ok := byID[id]
	if !ok {
		zlog.Warn(ctx).Str("parser", id).Msg("unknown parser id")
		return nil
	}

	ctx = zlog.ContextWithValues(ctx, "component", "registry/Parse", "parser", id, "path", path)
	defer trace.StartRegion(ctx, "registry.Parse").End()

	defer func() {
		if r := recover(); r != nil {
			zlog.Warn(ctx).Interface("panic", r).Msg("parser panicked; falling back to default PackageData")
			result = []*model.PackageData{defaultFragment(d)}
		}
	}()

	frags, err := d.Parse(ctx, path)
	if err != nil {
		zlog.Warn(ctx).Err(err).Msg("parser failed; falling back to default PackageData")
		return []*model.PackageData{defaultFragment(d)}
	}
	return frags
}

func defaultFragment(d Descriptor) *model.PackageData {
	return &model.PackageData{
		PackageType:  d.DefaultEcosystem,
		DatasourceID: d.DatasourceID,
	}
}

func matchesAny(patterns []string, path string) bool {
	normalized := glob.Normalize(path)
	for _, p := range patterns {
		if glob.Match(p, normalized) {
			return true
		}
	}
	return false
}
