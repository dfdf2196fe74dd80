// Package runner schedules per-file comparisons of two trees across a pool of
// workers and aggregates their outcomes into a Report.
package runner

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"TreeCompare/internal/cache"
	"TreeCompare/internal/diffgen"
	"TreeCompare/internal/logging"
	"TreeCompare/internal/metrics"
	"TreeCompare/internal/tree"
	"TreeCompare/internal/verify"
)

// Runner runs one comparison or diff session.
type Runner struct {
	opts     Options
	cache    *cache.HashCache
	stats    *metrics.Stats
	progress Reporter
}

// New returns a Runner. hc is only consulted with the Shared strategy and may
// be nil. stats and progress may be nil.
func New(opts Options, hc *cache.HashCache, stats *metrics.Stats, progress Reporter) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if stats == nil {
		stats = &metrics.Stats{}
	}
	return &Runner{opts: opts, cache: hc, stats: stats, progress: progress}
}

// Stats returns the counters updated by the session.
func (r *Runner) Stats() *metrics.Stats { return r.stats }

// unit decides one relative path. ok is false when the unit was abandoned
// because ctx was cancelled.
type unit func(ctx context.Context, cmp *verify.Comparator, rel string) (outcome Outcome, ok bool)

// Compare decides, for every relative path present in both trees and matching
// the configured extensions, whether the content differs. Paths present in
// only one tree are not examined. A pair that cannot be read is recorded in
// Report.Failed and the run continues.
func (r *Runner) Compare(ctx context.Context, a, b *tree.Tree) (*Report, error) {
	rep := &Report{}

	listA, err := r.walk(a, rep)
	if err != nil {
		return nil, err
	}
	listB, err := r.walk(b, rep)
	if err != nil {
		return nil, err
	}

	files := tree.Intersect(
		tree.FilterExt(listA.Files, r.opts.Extensions),
		tree.FilterExt(listB.Files, r.opts.Extensions),
	)
	logging.Info("comparing common files",
		logging.Int("common", len(files)),
		logging.Int("left", len(listA.Files)),
		logging.Int("right", len(listB.Files)),
	)

	var mu sync.Mutex
	decide := func(ctx context.Context, cmp *verify.Comparator, rel string) (Outcome, bool) {
		verdict, err := cmp.Compare(ctx, a, b, rel)
		if err != nil {
			return r.fail(ctx, rep, &mu, rel, err)
		}
		return r.decided(rep, &mu, rel, verdict), true
	}

	err = r.run(ctx, files, decide)
	rep.sort()
	return rep, err
}

// Diff pairs every file of a, filtered by the configured extensions, with the
// same relative path in b. Pairs with differing content get a unified diff
// artifact in out. A file of a without a counterpart in b is a failure of that
// pair only.
func (r *Runner) Diff(ctx context.Context, a, b *tree.Tree, out *diffgen.Output) (*Report, error) {
	rep := &Report{}

	listA, err := r.walk(a, rep)
	if err != nil {
		return nil, err
	}
	files := tree.FilterExt(listA.Files, r.opts.Extensions)
	logging.Info("diffing files", logging.Int("files", len(files)), logging.String("output", out.Dir))

	var mu sync.Mutex
	decide := func(ctx context.Context, cmp *verify.Comparator, rel string) (Outcome, bool) {
		verdict, err := cmp.Compare(ctx, a, b, rel)
		if err != nil {
			return r.fail(ctx, rep, &mu, rel, err)
		}
		if verdict == verify.Same {
			return r.decided(rep, &mu, rel, verdict), true
		}

		text, warnings, err := diffgen.Unified(a, b, rel, r.opts.DiffContext)
		if err != nil {
			return r.fail(ctx, rep, &mu, rel, err)
		}
		name, err := out.Write(rel, text)
		if err != nil {
			return r.fail(ctx, rep, &mu, rel, err)
		}

		atomic.AddInt64(&r.stats.DecodeWarnings, int64(len(warnings)))
		mu.Lock()
		for _, w := range warnings {
			rep.Warnings = append(rep.Warnings, w)
		}
		if name != "" {
			rep.Artifacts = append(rep.Artifacts, name)
		}
		mu.Unlock()
		for _, w := range warnings {
			logging.Warn("decoded with replacement characters", logging.String("path", w.Path))
		}

		if name != "" {
			atomic.AddInt64(&r.stats.ArtifactsWritten, 1)
			logging.Debug("artifact written", logging.String("artifact", name))
		} else {
			logging.Debug("content differs without line-level difference", logging.String("path", rel))
		}
		return r.decided(rep, &mu, rel, verdict), true
	}

	err = r.run(ctx, files, decide)
	rep.sort()
	return rep, err
}

func (r *Runner) walk(t *tree.Tree, rep *Report) (*tree.Listing, error) {
	listing, err := t.Walk()
	if err != nil {
		return nil, err
	}
	for _, w := range listing.Skipped {
		logging.Warn("skipping unreadable directory", logging.String("path", w.Path), logging.Err(w.Err))
		rep.Warnings = append(rep.Warnings, w)
	}
	return listing, nil
}

func (r *Runner) decided(rep *Report, mu *sync.Mutex, rel string, v verify.Verdict) Outcome {
	mu.Lock()
	defer mu.Unlock()
	if v == verify.Same {
		atomic.AddInt64(&r.stats.Identical, 1)
		rep.Identical = append(rep.Identical, rel)
		return Identical
	}
	atomic.AddInt64(&r.stats.Different, 1)
	rep.Different = append(rep.Different, rel)
	return Different
}

func (r *Runner) fail(ctx context.Context, rep *Report, mu *sync.Mutex, rel string, err error) (Outcome, bool) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return Failed, false
	}
	logging.Warn("could not compare", logging.String("path", rel), logging.Err(err))
	atomic.AddInt64(&r.stats.Failed, 1)

	mu.Lock()
	rep.Failed = append(rep.Failed, Failure{Path: rel, Err: err})
	mu.Unlock()
	return Failed, true
}

// run feeds files to the worker pool and waits for every worker to finish.
// Cancellation stops new units from starting; units already running see ctx
// between hash chunks. The returned error is ctx.Err() when the run was cut short.
func (r *Runner) run(ctx context.Context, files []string, decide unit) error {
	hc := r.cache
	if r.opts.Strategy == Isolated {
		hc = nil
	}
	shared, err := verify.NewComparator(r.opts.Compare, hc, r.stats)
	if err != nil {
		return err
	}

	atomic.StoreInt64(&r.stats.Total, int64(len(files)))
	if r.progress != nil {
		r.progress.Start(len(files))
	}

	jobs := make(chan string)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()

		for rel := range jobs {
			if ctx.Err() != nil {
				continue
			}

			cmp := shared
			if r.opts.Strategy == Isolated {
				// Options were validated by the shared comparator.
				cmp, _ = verify.NewComparator(r.opts.Compare, nil, r.stats)
			}

			outcome, ok := decide(ctx, cmp, rel)
			if !ok {
				continue
			}
			atomic.AddInt64(&r.stats.Processed, 1)
			if r.progress != nil {
				r.progress.Advance(rel, outcome)
			}
		}
	}

	wg.Add(r.opts.Workers)
	for i := 0; i < r.opts.Workers; i++ {
		go worker()
	}

feed:
	for _, rel := range files {
		select {
		case jobs <- rel:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
