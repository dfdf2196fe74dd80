package verify

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"TreeCompare/internal/cache"
	"TreeCompare/internal/failure"
	"TreeCompare/internal/metrics"
	"TreeCompare/internal/tree"
)

// Comparator decides whether the same relative path holds the same content in
// two trees. It is safe for concurrent use on distinct paths.
type Comparator struct {
	opts   Options
	hexLen int
	cache  *cache.HashCache
	stats  *metrics.Stats
}

// NewComparator returns a Comparator. hc may be nil, in which case every
// comparison that is not decided by modification time hashes both files.
// stats may be nil.
func NewComparator(opts Options, hc *cache.HashCache, stats *metrics.Stats) (*Comparator, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	hexLen, err := HexLen(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &metrics.Stats{}
	}
	return &Comparator{
		opts:   opts,
		hexLen: hexLen,
		cache:  hc,
		stats:  stats,
	}, nil
}

// Compare reports whether rel differs between a and b.
//
// Modification times are read first; with TrustModTime set, equal times decide
// "same" without touching content. Otherwise each side's hash comes from the
// cache when the cached record is at least as new as the file, and is computed
// and cached when not. A file that cannot be stat'ed or read yields a
// *failure.FileAccessError.
func (c *Comparator) Compare(ctx context.Context, a, b *tree.Tree, rel string) (Verdict, error) {
	modA, err := modTime(a, rel)
	if err != nil {
		return Same, err
	}
	modB, err := modTime(b, rel)
	if err != nil {
		return Same, err
	}

	if c.opts.TrustModTime && modA.Equal(modB) {
		atomic.AddInt64(&c.stats.ShortCircuits, 1)
		return Same, nil
	}

	hashA, err := c.hash(ctx, a, rel, modA)
	if err != nil {
		return Same, err
	}
	hashB, err := c.hash(ctx, b, rel, modB)
	if err != nil {
		return Same, err
	}

	if strings.EqualFold(hashA, hashB) {
		return Same, nil
	}
	return Different, nil
}

func (c *Comparator) hash(ctx context.Context, t *tree.Tree, rel string, mod time.Time) (string, error) {
	key := t.Abs(rel)

	if c.cache != nil {
		// Digests of another algorithm have another length and are never reused.
		if h, ok := c.cache.GetIfFresh(key, mod); ok && len(h) == c.hexLen {
			atomic.AddInt64(&c.stats.CacheHits, 1)
			return h, nil
		}
	}

	h, err := FileHashHex(ctx, t.FS, rel, c.opts.Algorithm, c.opts.BufferSize, func(n int64) {
		atomic.AddInt64(&c.stats.BytesHashed, n)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", failure.NewFileAccess("hash", key, err)
	}
	atomic.AddInt64(&c.stats.FilesHashed, 1)

	if c.cache != nil {
		c.cache.Put(key, h, mod)
	}
	return h, nil
}

func modTime(t *tree.Tree, rel string) (time.Time, error) {
	info, err := t.FS.Stat(rel)
	if err != nil {
		return time.Time{}, failure.NewFileAccess("stat", t.Abs(rel), err)
	}
	return info.ModTime(), nil
}
