package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, root, rel, content string, mod time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

type env struct {
	dirA, dirB string
	cache      string
	config     string
}

func newEnv(t *testing.T) env {
	t.Helper()
	work := t.TempDir()
	e := env{
		dirA:   filepath.Join(work, "a"),
		dirB:   filepath.Join(work, "b"),
		cache:  filepath.Join(work, "hash_cache.json"),
		config: filepath.Join(work, "treecompare.ini"),
	}
	require.NoError(t, os.MkdirAll(e.dirA, 0o755))
	require.NoError(t, os.MkdirAll(e.dirB, 0o755))
	require.NoError(t, os.WriteFile(e.config, []byte("[log]\nlevel = error\n"), 0o600))
	return e
}

func (e env) run(t *testing.T, extra ...string) (int, string, string) {
	t.Helper()
	args := append([]string{"-config", e.config, "-cache", e.cache, "-no-progress"}, extra...)
	args = append(args, e.dirA, e.dirB)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_ReportsDifferences(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "payload", baseTime)
	writeFile(t, e.dirB, "x.DAT", "payload", baseTime)
	writeFile(t, e.dirA, "sub/diff.DAT", "left", baseTime)
	writeFile(t, e.dirB, "sub/diff.DAT", "right", baseTime.Add(time.Hour))
	writeFile(t, e.dirA, "only-a.DAT", "a", baseTime)

	code, stdout, stderr := e.run(t)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Files with different content:\n"+filepath.FromSlash("sub/diff.DAT")+"\n", stdout)
	assert.Contains(t, stderr, "identical: 1, different: 1, could not compare: 0")

	_, err := os.Stat(e.cache)
	assert.NoError(t, err)
}

func TestRun_AllIdentical(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "same", baseTime)
	writeFile(t, e.dirB, "x.DAT", "same", baseTime.Add(time.Minute))
	writeFile(t, e.dirA, "notes.txt", "left", baseTime)
	writeFile(t, e.dirB, "notes.txt", "right", baseTime.Add(time.Minute))

	code, stdout, _ := e.run(t)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "All common .DAT files have identical content.\n", stdout)
}

func TestRun_OutputFile(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "b.DAT", "1", baseTime)
	writeFile(t, e.dirB, "b.DAT", "2", baseTime.Add(time.Hour))
	writeFile(t, e.dirA, "a.DAT", "1", baseTime)
	writeFile(t, e.dirB, "a.DAT", "2", baseTime.Add(time.Hour))

	results := filepath.Join(t.TempDir(), "results.txt")
	code, stdout, _ := e.run(t, "-o", results)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Results saved to "+results+"\n", stdout)

	data, err := os.ReadFile(results)
	require.NoError(t, err)
	assert.Equal(t, "a.DAT\nb.DAT\n", string(data))
}

func TestRun_ExtensionOverride(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "c.yml", "k: 1\n", baseTime)
	writeFile(t, e.dirB, "c.yml", "k: 2\n", baseTime.Add(time.Hour))

	code, stdout, _ := e.run(t, "-ext", ".yml", "-no-cache")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "c.yml")

	_, err := os.Stat(e.cache)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_NoMtimeDetectsSameTimestampChange(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "payload", baseTime)
	writeFile(t, e.dirB, "x.DAT", "corrupt", baseTime)

	_, stdout, _ := e.run(t)
	assert.True(t, strings.HasPrefix(stdout, "All common"))

	_, stdout, _ = e.run(t, "-no-mtime")
	assert.Contains(t, stdout, "x.DAT")
}

func TestRun_MetricsFile(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "1", baseTime)
	writeFile(t, e.dirB, "x.DAT", "2", baseTime.Add(time.Hour))

	prom := filepath.Join(t.TempDir(), "treecompare.prom")
	code, _, stderr := e.run(t, "-metrics-file", prom, "-stats")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "--- stats ---")

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `treecompare_files_different{mode="compare"} 1`)
}

func TestRun_UnreadableFileIsRecordedAndSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "payload", baseTime)
	writeFile(t, e.dirB, "x.DAT", "payload", baseTime)
	writeFile(t, e.dirA, "locked.DAT", "left", baseTime)
	writeFile(t, e.dirB, "locked.DAT", "right", baseTime.Add(time.Hour))
	writeFile(t, e.dirA, "z.DAT", "1", baseTime)
	writeFile(t, e.dirB, "z.DAT", "2", baseTime.Add(time.Hour))

	locked := filepath.Join(e.dirB, "locked.DAT")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o600) })

	code, stdout, stderr := e.run(t)
	assert.Equal(t, exitIncomplete, code)
	assert.Equal(t, "Files with different content:\nz.DAT\n", stdout)
	assert.Contains(t, stderr, "Could not compare 1 file(s):")
	assert.Contains(t, stderr, "locked.DAT")
	assert.Contains(t, stderr, "permission denied")
	assert.Contains(t, stderr, "identical: 1, different: 1, could not compare: 1")
}

func TestRun_CorruptCacheIsIgnored(t *testing.T) {
	e := newEnv(t)
	writeFile(t, e.dirA, "x.DAT", "same", baseTime)
	writeFile(t, e.dirB, "x.DAT", "same", baseTime.Add(time.Hour))
	writeFile(t, e.dirA, "y.DAT", "1", baseTime)
	writeFile(t, e.dirB, "y.DAT", "2", baseTime.Add(time.Hour))
	require.NoError(t, os.WriteFile(e.cache, []byte("not json{"), 0o644))

	code, stdout, stderr := e.run(t)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Files with different content:\ny.DAT\n", stdout)
	assert.Contains(t, stderr, "identical: 1, different: 1, could not compare: 0")

	data, err := os.ReadFile(e.cache)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestRun_CachePersistFailureKeepsReport(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	e := newEnv(t)
	writeFile(t, e.dirA, "y.DAT", "1", baseTime)
	writeFile(t, e.dirB, "y.DAT", "2", baseTime.Add(time.Hour))

	readOnly := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(readOnly, 0o500))
	t.Cleanup(func() { _ = os.Chmod(readOnly, 0o755) })
	cacheFile := filepath.Join(readOnly, "hash_cache.json")

	code, stdout, stderr := e.run(t, "-cache", cacheFile)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Files with different content:\ny.DAT\n", stdout)
	assert.Contains(t, stderr, "identical: 0, different: 1, could not compare: 0")

	_, err := os.Stat(cacheFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), []string{"only-one"}, &stdout, &stderr))
	assert.Equal(t, exitUsage, run(context.Background(), []string{"-bogus", "a", "b"}, &stdout, &stderr))
	assert.Equal(t, exitOK, run(context.Background(), []string{"-h"}, &stdout, &stderr))
}

func TestRun_MissingDirectoryIsFatal(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.RemoveAll(e.dirB))

	code, _, _ := e.run(t)
	assert.Equal(t, exitFatal, code)
}

func TestRun_UnsupportedAlgorithmIsFatal(t *testing.T) {
	e := newEnv(t)
	code, _, _ := e.run(t, "-alg", "CRC32")
	assert.Equal(t, exitFatal, code)
}
