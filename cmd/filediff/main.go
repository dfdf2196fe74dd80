// Command filediff writes a unified diff for every file of dir1 whose content
// differs from the file at the same relative path in dir2. Artifacts are named
// <relative path>.diff below the output directory.
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
	"syscall"

	"golang.org/x/term"

	"TreeCompare/internal/config"
	"TreeCompare/internal/diffgen"
	"TreeCompare/internal/logging"
	"TreeCompare/internal/metrics"
	"TreeCompare/internal/progress"
	"TreeCompare/internal/prompt"
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
	code := run(ctx, os.Args[1:], prompt.Terminal(os.Stdin, os.Stdout), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, confirm prompt.Confirm, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("filediff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: filediff [flags] dir1 dir2 output_dir")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to INI config file")
	ext := fs.String("ext", "", "comma-separated file extensions to diff, empty for all files")
	workers := fs.Int("workers", 0, "number of concurrent workers (0 = number of CPUs)")
	alg := fs.String("alg", "", "hash algorithm: SHA256, SHA1, SHA384, SHA512, MD5")
	contextLines := fs.Int("context", diffgen.DefaultContext, "unchanged lines shown around each change")
	trustMtime := fs.Bool("mtime", false, "treat files with equal modification times as identical")
	yes := fs.Bool("yes", false, "clear the output directory without asking")
	keep := fs.Bool("keep", false, "do not clear the output directory")
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
	if fs.NArg() != 3 {
		fs.Usage()
		return exitUsage
	}
	if *contextLines < 0 {
		fmt.Fprintln(stderr, "Error: -context must not be negative")
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
		cfg.Diff.Extensions = config.ParseExtensions(*ext)
	}
	if set["workers"] {
		cfg.Performance.Workers = *workers
	}
	if set["alg"] {
		cfg.Diff.Algorithm = *alg
	}
	if set["context"] {
		cfg.Diff.Context = *contextLines
	}
	if set["mtime"] {
		cfg.Diff.TrustModTime = *trustMtime
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["metrics-file"] {
		cfg.Metrics.Textfile = *metricsFile
	}
	if *yes {
		confirm = prompt.Always(true)
	}

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFatal
	}
	defer func() { _ = logging.Sync() }()

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

	outDir := fs.Arg(2)
	if !*keep {
		if _, err := prompt.ClearDirectory(outDir, confirm, stdout); err != nil {
			logging.Error("cannot clear output directory", logging.Err(err))
			return exitFatal
		}
	}
	out, err := diffgen.OpenOutput(outDir)
	if err != nil {
		logging.Error("cannot open output directory", logging.Err(err))
		return exitFatal
	}

	stats := &metrics.Stats{}
	stats.Start()
	bar := progress.New(stderr, "diffing", !*noProgress && isTerminal(stderr), stats.Snapshot)

	r := runner.New(runner.Options{
		Workers:    cfg.Performance.Workers,
		Strategy:   runner.Isolated,
		Extensions: cfg.Diff.Extensions,
		Compare: verify.Options{
			Algorithm:    cfg.Diff.Algorithm,
			BufferSize:   cfg.Performance.HashBuffer,
			TrustModTime: cfg.Diff.TrustModTime,
		},
		DiffContext: cfg.Diff.Context,
	}, nil, stats, bar)

	rep, runErr := r.Diff(ctx, a, b, out)
	bar.Close()
	stats.Stop()
	logging.Info("run finished",
		logging.Duration("duration", stats.Duration()),
		logging.Int64("processed", stats.Snapshot().Processed),
	)

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, "diff", stats); err != nil {
			logging.Warn("metrics not written", logging.Err(err))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logging.Error("interrupted", logging.Int64("processed", stats.Snapshot().Processed))
		} else {
			logging.Error("diff failed", logging.Err(runErr))
		}
		return exitFatal
	}

	if len(rep.Artifacts) == 0 {
		fmt.Fprintln(stdout, "No differences found.")
	} else {
		fmt.Fprintf(stdout, "Wrote %d diff file(s) to %s\n", len(rep.Artifacts), out.Dir)
	}
	if len(rep.Failed) > 0 {
		fmt.Fprintf(stderr, "Could not compare %d file(s):\n", len(rep.Failed))
		for _, f := range rep.Failed {
			fmt.Fprintf(stderr, "  %s: %v\n", filepath.FromSlash(f.Path), f.Err)
		}
	}
	fmt.Fprintf(stderr, "identical: %d, different: %d, diff files: %d, could not compare: %d\n",
		len(rep.Identical), len(rep.Different), len(rep.Artifacts), len(rep.Failed))
	if *showStats {
		metrics.Print(stderr, stats)
	}

	if len(rep.Failed) > 0 {
		return exitIncomplete
	}
	return exitOK
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
