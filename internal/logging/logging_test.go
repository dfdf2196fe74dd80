package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func reset() {
	globalLogger.Store(nil)
	fallbackOnce = sync.Once{}
}

func TestL_ConcurrentFirstUse(t *testing.T) {
	reset()
	t.Cleanup(InitNop)

	const n = 32
	got := make([]*zap.Logger, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = L()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
}

func TestInit_LevelAndOutput(t *testing.T) {
	reset()
	t.Cleanup(InitNop)

	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Init(Config{Level: "warn", Format: "json", OutputPath: path}))

	Info("hidden")
	Warn("shown", String("path", "a/b.DAT"), Duration("elapsed", 2*time.Second))
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"path":"a/b.DAT"`)
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	reset()
	t.Cleanup(InitNop)

	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Init(Config{Level: "loud", Format: "json", OutputPath: path}))

	Debug("hidden")
	Info("shown")
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
