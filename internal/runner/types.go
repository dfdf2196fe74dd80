package runner

import (
	"sort"

	"go.uber.org/multierr"

	"TreeCompare/internal/verify"
)

// Outcome is the result of one unit of work.
type Outcome int

const (
	Identical Outcome = iota
	Different
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Identical:
		return "identical"
	case Different:
		return "different"
	default:
		return "failed"
	}
}

// Reporter receives progress as units complete, in completion order.
// Advance is called from worker goroutines and must be safe for concurrent use.
type Reporter interface {
	Start(total int)
	Advance(rel string, outcome Outcome)
}

// Strategy selects how units share state.
type Strategy int

const (
	// Shared units use one Comparator and one hash cache.
	Shared Strategy = iota
	// Isolated units each get their own Comparator and no hash cache.
	Isolated
)

func (s Strategy) String() string {
	if s == Isolated {
		return "isolated"
	}
	return "shared"
}

// Options configures a Runner.
type Options struct {
	Workers     int
	Strategy    Strategy
	Extensions  []string
	Compare     verify.Options
	DiffContext int
}

// Failure is a pair that could not be compared.
type Failure struct {
	Path string
	Err  error
}

// Report is the sorted outcome of a run. Different lists every relative path
// whose content differs; in diff mode Artifacts lists the .diff files written,
// which may be fewer when differing content has no line-level difference.
type Report struct {
	Identical []string
	Different []string
	Failed    []Failure
	Artifacts []string
	Warnings  []error
}

// Total is the number of pairs that were decided or failed.
func (r *Report) Total() int {
	return len(r.Identical) + len(r.Different) + len(r.Failed)
}

// Err combines the errors of all failed pairs, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}

func (r *Report) sort() {
	sort.Strings(r.Identical)
	sort.Strings(r.Different)
	sort.Strings(r.Artifacts)
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Path < r.Failed[j].Path })
	sort.SliceStable(r.Warnings, func(i, j int) bool { return r.Warnings[i].Error() < r.Warnings[j].Error() })
}
