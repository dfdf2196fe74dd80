// Package cache holds the persisted content-hash cache used to skip re-hashing
// files whose modification time has not moved since they were last hashed.
//
// The cache is a pure optimization. A missing or malformed cache file loads as an
// empty cache, and results never depend on what the cache contains.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"TreeCompare/internal/failure"
)

// DefaultFile is the cache file name used when none is configured.
const DefaultFile = "hash_cache.json"

// Record is one cached hash. ModTime is the file's modification time, in
// seconds since the epoch, at the moment it was hashed.
type Record struct {
	Hash    string  `json:"hash"`
	ModTime float64 `json:"mod_time"`
}

// HashCache maps absolute file paths to Records. It is safe for concurrent use.
type HashCache struct {
	mu      sync.RWMutex
	records map[string]Record
}

// New returns an empty cache.
func New() *HashCache {
	return &HashCache{records: make(map[string]Record)}
}

// ModTimeSeconds converts t to the float representation stored in Records.
// The conversion is monotonic, so freshness comparisons between two converted
// times agree with comparisons of the times themselves.
func ModTimeSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Location splits a host path into an OS filesystem rooted at its directory
// and the file name within it.
func Location(path string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve cache path %s: %w", path, err)
	}
	return osfs.New(filepath.Dir(abs), osfs.WithBoundOS()), filepath.Base(abs), nil
}

// Load reads the cache stored at name. A missing file yields an empty cache and
// no error. An unreadable or malformed file yields an empty cache together with a
// *failure.CacheLoadError, which callers report and otherwise ignore.
func Load(fsys billy.Filesystem, name string) (*HashCache, error) {
	c := New()

	data, err := util.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return c, &failure.CacheLoadError{Path: name, Err: err}
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return c, &failure.CacheLoadError{Path: name, Err: err}
	}
	for path, rec := range records {
		if rec.Hash == "" {
			continue
		}
		c.records[path] = rec
	}
	return c, nil
}

// GetIfFresh returns the cached hash for path when the record was taken at or
// after modTime.
func (c *HashCache) GetIfFresh(path string, modTime time.Time) (string, bool) {
	c.mu.RLock()
	rec, ok := c.records[path]
	c.mu.RUnlock()

	if !ok || rec.ModTime < ModTimeSeconds(modTime) {
		return "", false
	}
	return rec.Hash, true
}

// Put records hash for path as of modTime, replacing any previous record.
func (c *HashCache) Put(path, hash string, modTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[path] = Record{Hash: hash, ModTime: ModTimeSeconds(modTime)}
}

// Get returns the raw record for path regardless of freshness.
func (c *HashCache) Get(path string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[path]
	return rec, ok
}

// Len returns the number of records.
func (c *HashCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Persist writes the cache to name by writing a temporary file in the same
// directory and renaming it over name. The file keeps the permissions of the
// file it replaces, or 0644 when new. A failure leaves any previous file intact
// and is returned as a *failure.CacheWriteError.
func (c *HashCache) Persist(fsys billy.Filesystem, name string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.records, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return &failure.CacheWriteError{Path: name, Err: err}
	}

	dir := filepath.Dir(name)
	if dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return &failure.CacheWriteError{Path: name, Err: err}
		}
	}

	perm := os.FileMode(0o644)
	if info, err := fsys.Stat(name); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := util.TempFile(fsys, dir, "."+filepath.Base(name)+".tmp-")
	if err != nil {
		return &failure.CacheWriteError{Path: name, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data, perm); err != nil {
		_ = fsys.Remove(tmpName)
		return &failure.CacheWriteError{Path: name, Err: err}
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		_ = fsys.Remove(tmpName)
		return &failure.CacheWriteError{Path: name, Err: err}
	}
	return nil
}

// writeAndClose writes data, sets perm where the file supports it and closes f.
func writeAndClose(f billy.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if ch, ok := f.(interface{ Chmod(os.FileMode) error }); ok {
		if err := ch.Chmod(perm); err != nil {
			_ = f.Close()
			return err
		}
	}
	if s, ok := f.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
