package metrics

import "time"

// Stats are the counters of one comparison or diff run. All counters are
// updated with sync/atomic while workers are running.
type Stats struct {
	Total     int64
	Processed int64
	Identical int64
	Different int64
	Failed    int64

	ShortCircuits    int64 // pairs decided by equal modification times
	CacheHits        int64 // hashes served from the cache
	FilesHashed      int64
	BytesHashed      int64
	ArtifactsWritten int64
	DecodeWarnings   int64

	Started  time.Time
	Finished time.Time
}

func (s *Stats) Start() { s.Started = time.Now() }
func (s *Stats) Stop()  { s.Finished = time.Now() }
func (s *Stats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
