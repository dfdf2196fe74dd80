// Command filecompare lists the files whose content differs between two
// directory trees. Only relative paths present in both trees and matching the
// configured extensions are compared. Content hashes are cached between runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"TreeCompare/internal/cache"
	"TreeCompare/internal/config"
	"TreeCompare/internal/logging"
	"TreeCompare/internal/metrics"
	"TreeCompare/internal/progress"
	"TreeCompare/internal/runner"
	"TreeCompare/internal/tree"
	"TreeCompare/internal/verify"
)

const (
	exitOK         = 0
	exitFatal      = 1
	exitUsage      = 2
	exitIncomplete = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("filecompare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: filecompare [flags] dir1 dir2")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to INI config file")
	output := fs.String("output", "", "write the differing paths to this file instead of the console")
	fs.StringVar(output, "o", "", "shorthand for -output")
	ext := fs.String("ext", "", "comma-separated file extensions to compare, empty for all files")
	workers := fs.Int("workers", 0, "number of concurrent workers (0 = number of CPUs)")
	cacheFile := fs.String("cache", "", "hash cache file")
	noCache := fs.Bool("no-cache", false, "neither load nor save the hash cache")
	alg := fs.String("alg", "", "hash algorithm: SHA256, SHA1, SHA384, SHA512, MD5")
	noMtime := fs.Bool("no-mtime", false, "compare content even when modification times are equal")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	metricsFile := fs.String("metrics-file", "", "write run statistics in Prometheus text format to this file")
	noProgress := fs.Bool("no-progress", false, "disable the progress bar")
	showStats := fs.Bool("stats", false, "print run statistics")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(config.Discover(*configPath))
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["ext"] {
		cfg.Compare.Extensions = config.ParseExtensions(*ext)
	}
	if set["workers"] {
		cfg.Performance.Workers = *workers
	}
	if set["cache"] {
		cfg.Compare.CacheFile = *cacheFile
	}
	if set["alg"] {
		cfg.Compare.Algorithm = *alg
	}
	if *noMtime {
		cfg.Compare.TrustModTime = false
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["metrics-file"] {
		cfg.Metrics.Textfile = *metricsFile
	}

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFatal
	}
	defer func() { _ = logging.Sync() }()
	if cfg.Path != "" {
		logging.Debug("loaded config", logging.String("path", cfg.Path))
	}

	a, err := tree.Open(fs.Arg(0))
	if err != nil {
		logging.Error("cannot open first tree", logging.Err(err))
		return exitFatal
	}
	b, err := tree.Open(fs.Arg(1))
	if err != nil {
		logging.Error("cannot open second tree", logging.Err(err))
		return exitFatal
	}

	var hc *cache.HashCache
	cacheFS, cacheName, err := cache.Location(cfg.Compare.CacheFile)
	if err != nil {
		logging.Error("invalid cache location", logging.Err(err))
		return exitFatal
	}
	if !*noCache {
		hc, err = cache.Load(cacheFS, cacheName)
		if err != nil {
			logging.Warn("ignoring hash cache", logging.Err(err))
		}
		logging.Debug("hash cache loaded", logging.String("path", cfg.Compare.CacheFile), logging.Int("records", hc.Len()))
	}

	stats := &metrics.Stats{}
	stats.Start()
	bar := progress.New(stderr, "comparing", !*noProgress && isTerminal(stderr), stats.Snapshot)

	r := runner.New(runner.Options{
		Workers:    cfg.Performance.Workers,
		Strategy:   runner.Shared,
		Extensions: cfg.Compare.Extensions,
		Compare: verify.Options{
			Algorithm:    cfg.Compare.Algorithm,
			BufferSize:   cfg.Performance.HashBuffer,
			TrustModTime: cfg.Compare.TrustModTime,
		},
	}, hc, stats, bar)

	rep, runErr := r.Compare(ctx, a, b)
	bar.Close()
	stats.Stop()
	logging.Info("run finished",
		logging.Duration("duration", stats.Duration()),
		logging.Int64("processed", stats.Snapshot().Processed),
	)

	// Records computed before an interruption are still valid.
	if hc != nil {
		if err := hc.Persist(cacheFS, cacheName); err != nil {
			logging.Warn("hash cache not saved", logging.Err(err))
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, "compare", stats); err != nil {
			logging.Warn("metrics not written", logging.Err(err))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logging.Error("interrupted", logging.Int64("processed", stats.Snapshot().Processed))
		} else {
			logging.Error("comparison failed", logging.Err(runErr))
		}
		return exitFatal
	}

	if err := printResults(stdout, *output, cfg.Compare.Extensions, rep.Different); err != nil {
		logging.Error("cannot write results", logging.Err(err))
		return exitFatal
	}
	printSummary(stderr, rep)
	if *showStats {
		metrics.Print(stderr, stats)
	}

	if len(rep.Failed) > 0 {
		return exitIncomplete
	}
	return exitOK
}

func printResults(w io.Writer, output string, exts, different []string) error {
	if output != "" {
		var sb strings.Builder
		for _, rel := range different {
			sb.WriteString(filepath.FromSlash(rel))
			sb.WriteByte('\n')
		}
		if err := os.WriteFile(output, []byte(sb.String()), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(w, "Results saved to %s\n", output)
		return nil
	}

	if len(different) == 0 {
		kind := "files"
		if len(exts) > 0 {
			kind = strings.Join(exts, ", ") + " files"
		}
		fmt.Fprintf(w, "All common %s have identical content.\n", kind)
		return nil
	}
	fmt.Fprintln(w, "Files with different content:")
	for _, rel := range different {
		fmt.Fprintln(w, filepath.FromSlash(rel))
	}
	return nil
}

func printSummary(w io.Writer, rep *runner.Report) {
	if len(rep.Failed) > 0 {
		fmt.Fprintf(w, "Could not compare %d file(s):\n", len(rep.Failed))
		for _, f := range rep.Failed {
			fmt.Fprintf(w, "  %s: %v\n", filepath.FromSlash(f.Path), f.Err)
		}
	}
	fmt.Fprintf(w, "identical: %d, different: %d, could not compare: %d\n",
		len(rep.Identical), len(rep.Different), len(rep.Failed))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
