package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

type Snapshot struct {
	DurationMs       int64
	Total            int64
	Processed        int64
	Identical        int64
	Different        int64
	Failed           int64
	ShortCircuits    int64
	CacheHits        int64
	FilesHashed      int64
	BytesHashed      int64
	ArtifactsWritten int64
	DecodeWarnings   int64
}

func (s *Stats) Snapshot() Snapshot {
	dur := s.Duration()

	return Snapshot{
		DurationMs:       dur.Milliseconds(),
		Total:            atomic.LoadInt64(&s.Total),
		Processed:        atomic.LoadInt64(&s.Processed),
		Identical:        atomic.LoadInt64(&s.Identical),
		Different:        atomic.LoadInt64(&s.Different),
		Failed:           atomic.LoadInt64(&s.Failed),
		ShortCircuits:    atomic.LoadInt64(&s.ShortCircuits),
		CacheHits:        atomic.LoadInt64(&s.CacheHits),
		FilesHashed:      atomic.LoadInt64(&s.FilesHashed),
		BytesHashed:      atomic.LoadInt64(&s.BytesHashed),
		ArtifactsWritten: atomic.LoadInt64(&s.ArtifactsWritten),
		DecodeWarnings:   atomic.LoadInt64(&s.DecodeWarnings),
	}
}

func Print(w io.Writer, s *Stats) {
	snap := s.Snapshot()

	fmt.Fprintln(w, "--- stats ---")
	fmt.Fprintln(w, "duration_ms:", snap.DurationMs)
	fmt.Fprintln(w, "total:", snap.Total)
	fmt.Fprintln(w, "processed:", snap.Processed)
	fmt.Fprintln(w, "identical:", snap.Identical)
	fmt.Fprintln(w, "different:", snap.Different)
	fmt.Fprintln(w, "failed:", snap.Failed)
	fmt.Fprintln(w, "mtime_short_circuits:", snap.ShortCircuits)
	fmt.Fprintln(w, "cache_hits:", snap.CacheHits)
	fmt.Fprintln(w, "files_hashed:", snap.FilesHashed)
	fmt.Fprintln(w, "bytes_hashed:", snap.BytesHashed)
	if snap.ArtifactsWritten > 0 || snap.DecodeWarnings > 0 {
		fmt.Fprintln(w, "artifacts_written:", snap.ArtifactsWritten)
		fmt.Fprintln(w, "decode_warnings:", snap.DecodeWarnings)
	}

	if snap.DurationMs > 0 {
		secs := float64(snap.DurationMs) / 1000.0
		bps := float64(snap.BytesHashed) / secs
		fmt.Fprintln(w, "throughput_bytes_per_sec:", bps)
		fmt.Fprintln(w, "throughput_mb_per_sec:", bps/1_000_000.0)
	}
}
