package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"TreeCompare/internal/metrics"
	"TreeCompare/internal/runner"
)

type SnapshotFn func() metrics.Snapshot

// Bar renders completed pairs against the total and implements runner.Reporter.
// The description is refreshed every second from the run statistics.
type Bar struct {
	w       io.Writer
	verb    string
	visible bool

	bar  *progressbar.ProgressBar
	ch   chan struct{}
	done chan struct{}
	stop chan struct{}

	snap   SnapshotFn
	lastB  int64
	lastAt time.Time
}

// New returns a Bar writing to w. verb prefixes the description, e.g. "comparing".
// An invisible bar still consumes progress but renders nothing.
func New(w io.Writer, verb string, visible bool, snap SnapshotFn) *Bar {
	return &Bar{w: w, verb: verb, visible: visible, snap: snap}
}

func (b *Bar) Start(total int) {
	b.ch = make(chan struct{}, 16384)
	b.done = make(chan struct{})
	b.stop = make(chan struct{})
	b.lastAt = time.Now()

	b.bar = progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetVisibility(b.visible),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetDescription(b.verb),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(120*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	_ = b.bar.RenderBlank()

	go func() {
		defer close(b.done)
		for range b.ch {
			_ = b.bar.Add64(1)
		}
		_ = b.bar.Finish()
	}()

	go func() {
		t := time.NewTicker(1 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				b.updateDescription()
			case <-b.stop:
				return
			}
		}
	}()
}

func (b *Bar) Advance(_ string, _ runner.Outcome) {
	b.ch <- struct{}{}
}

// Close flushes pending progress and stops rendering. It is a no-op when Start
// was never called.
func (b *Bar) Close() {
	if b.bar == nil {
		return
	}
	close(b.stop)
	close(b.ch)
	<-b.done
}

func (b *Bar) updateDescription() {
	if b.snap == nil {
		return
	}
	s := b.snap()

	now := time.Now()
	dt := now.Sub(b.lastAt).Seconds()

	mbps := 0.0
	if dt > 0 {
		dBytes := s.BytesHashed - b.lastB
		mbps = (float64(dBytes) / 1_000_000.0) / dt
	}

	b.lastB = s.BytesHashed
	b.lastAt = now

	desc := fmt.Sprintf("%s %d/%d files | same=%d diff=%d err=%d | %.1f MB/s",
		b.verb, s.Processed, s.Total, s.Identical, s.Different, s.Failed, mbps,
	)
	b.bar.Describe(desc)
}
