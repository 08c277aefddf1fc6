// Command pkgscan walks a filesystem tree, runs the parser/copyright/
// assembly core over it, and writes the resulting report as JSON.
//
// Flag parsing and signal handling follow
// quay-claircore/cmd/cctool/main.go's stdlib flag.FlagSet shape; logging
// bootstrap follows quay-claircore/cmd/libvulnhttp/main.go's
// zerolog+zlog.Set pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quay/zlog"
	"github.com/rs/zerolog"

	"github.com/quay/pkgscan/internal/serialize"
	"github.com/quay/pkgscan/internal/walk"
	"github.com/quay/pkgscan/model"

	_ "github.com/quay/pkgscan/internal/parsers/about"
	_ "github.com/quay/pkgscan/internal/parsers/apk"
	_ "github.com/quay/pkgscan/internal/parsers/bower"
	_ "github.com/quay/pkgscan/internal/parsers/cargo"
	_ "github.com/quay/pkgscan/internal/parsers/chef"
	_ "github.com/quay/pkgscan/internal/parsers/cocoapods"
	_ "github.com/quay/pkgscan/internal/parsers/composer"
	_ "github.com/quay/pkgscan/internal/parsers/conda"
	_ "github.com/quay/pkgscan/internal/parsers/cpan"
	_ "github.com/quay/pkgscan/internal/parsers/cran"
	_ "github.com/quay/pkgscan/internal/parsers/dart"
	_ "github.com/quay/pkgscan/internal/parsers/dpkg"
	_ "github.com/quay/pkgscan/internal/parsers/golang"
	_ "github.com/quay/pkgscan/internal/parsers/haxe"
	_ "github.com/quay/pkgscan/internal/parsers/maven"
	_ "github.com/quay/pkgscan/internal/parsers/misc"
	_ "github.com/quay/pkgscan/internal/parsers/npm"
	_ "github.com/quay/pkgscan/internal/parsers/nuget"
	_ "github.com/quay/pkgscan/internal/parsers/osrelease"
	_ "github.com/quay/pkgscan/internal/parsers/recognizers"
	_ "github.com/quay/pkgscan/internal/parsers/rpm"
	_ "github.com/quay/pkgscan/internal/parsers/ruby"
	_ "github.com/quay/pkgscan/internal/parsers/swift"
)

// toolVersion is overridden at build time with -ldflags.
var toolVersion = "dev"

func main() {
	ctx, done := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger()

	fs := flag.NewFlagSet("pkgscan", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [flags] <root>\n", os.Args[0])
		fs.PrintDefaults()
	}
	out := fs.String("o", "-", "output file for the JSON report ('-' for stdout)")
	workers := fs.Int("workers", 0, "Phase 2 worker count (0 means GOMAXPROCS)")
	timeout := fs.Duration("file-timeout", 0, "per-file soft timeout (0 means none)")
	ecosystems := fs.String("ecosystems", "", "comma-separated ecosystem allowlist (empty means all)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to parse flags")
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	root := fs.Arg(0)

	lvl, err := zerolog.ParseLevel(strings.ToLower(*logLevel))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)
	zlog.Set(&log)

	var ecos []string
	if *ecosystems != "" {
		ecos = strings.Split(*ecosystems, ",")
	}

	opts := walk.Options{
		Root:           root,
		Workers:        *workers,
		PerFileTimeout: *timeout,
		Ecosystems:     ecos,
	}

	start := time.Now()
	files, packages, deps, err := walk.Scan(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}
	finished := time.Now()

	report := &model.Report{
		Headers: []model.Header{{
			ToolName:     "pkgscan",
			ToolVersion:  toolVersion,
			Root:         root,
			StartedAt:    start.UTC().Format(time.RFC3339Nano),
			FinishedAt:   finished.UTC().Format(time.RFC3339Nano),
			FileCount:    len(files),
			PackageCount: len(packages),
		}},
		Files:        files,
		Packages:     packages,
		Dependencies: deps,
	}

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Str("path", *out).Msg("failed to create output file")
		}
		defer f.Close()
		w = f
	}

	if err := serialize.Write(w, report); err != nil {
		log.Fatal().Err(err).Msg("failed to write report")
	}
}
