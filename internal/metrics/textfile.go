package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry builds a Prometheus registry holding the final values of s, labelled
// with the run mode ("compare" or "diff").
func Registry(mode string, s *Stats) (*prometheus.Registry, error) {
	snap := s.Snapshot()
	reg := prometheus.NewRegistry()

	gauges := []struct {
		name, help string
		value      float64
	}{
		{"files_total", "Files scheduled for comparison.", float64(snap.Total)},
		{"files_processed", "Files whose comparison finished.", float64(snap.Processed)},
		{"files_identical", "Files confirmed identical.", float64(snap.Identical)},
		{"files_different", "Files confirmed different.", float64(snap.Different)},
		{"files_failed", "Files that could not be compared.", float64(snap.Failed)},
		{"mtime_short_circuits", "Pairs decided by equal modification times.", float64(snap.ShortCircuits)},
		{"cache_hits", "Hashes served from the hash cache.", float64(snap.CacheHits)},
		{"files_hashed", "Files whose content was hashed.", float64(snap.FilesHashed)},
		{"bytes_hashed", "Bytes read while hashing.", float64(snap.BytesHashed)},
		{"artifacts_written", "Diff artifacts written.", float64(snap.ArtifactsWritten)},
		{"decode_warnings", "Files with invalid UTF-8 replaced during diffing.", float64(snap.DecodeWarnings)},
		{"duration_seconds", "Wall-clock duration of the run.", float64(snap.DurationMs) / 1000.0},
		{"last_run_timestamp_seconds", "Unix time the run finished.", float64(s.Finished.Unix())},
	}

	for _, g := range gauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "treecompare",
			Name:        g.name,
			Help:        g.help,
			ConstLabels: prometheus.Labels{"mode": mode},
		})
		gauge.Set(g.value)
		if err := reg.Register(gauge); err != nil {
			return nil, fmt.Errorf("register %s: %w", g.name, err)
		}
	}
	return reg, nil
}

// WriteTextfile writes the run statistics in the Prometheus text format to
// path, for pickup by the node exporter textfile collector.
func WriteTextfile(path, mode string, s *Stats) error {
	reg, err := Registry(mode, s)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
