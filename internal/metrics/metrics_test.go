package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedStats() *Stats {
	s := &Stats{
		Total:       3,
		Processed:   3,
		Identical:   1,
		Different:   1,
		Failed:      1,
		CacheHits:   2,
		FilesHashed: 2,
		BytesHashed: 4096,
	}
	s.Started = time.Unix(1700000000, 0)
	s.Finished = s.Started.Add(2 * time.Second)
	return s
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, finishedStats())

	out := buf.String()
	assert.Contains(t, out, "duration_ms: 2000\n")
	assert.Contains(t, out, "different: 1\n")
	assert.Contains(t, out, "failed: 1\n")
	assert.Contains(t, out, "cache_hits: 2\n")
	assert.Contains(t, out, "throughput_bytes_per_sec: 2048\n")
	assert.NotContains(t, out, "artifacts_written")
}

func TestRegistry(t *testing.T) {
	reg, err := Registry("compare", finishedStats())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		require.Len(t, m.GetLabel(), 1)
		assert.Equal(t, "compare", m.GetLabel()[0].GetValue())
		values[mf.GetName()] = m.GetGauge().GetValue()
	}

	assert.Equal(t, 1.0, values["treecompare_files_different"])
	assert.Equal(t, 4096.0, values["treecompare_bytes_hashed"])
	assert.Equal(t, 2.0, values["treecompare_duration_seconds"])
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treecompare.prom")
	require.NoError(t, WriteTextfile(path, "diff", finishedStats()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `treecompare_files_failed{mode="diff"} 1`)
}
