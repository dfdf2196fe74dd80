package verify

import (
	"context"
	"crypto/md5"  // #nosec G501 -- used for content comparison only
	"crypto/sha1" // #nosec G505 -- used for content comparison only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// DefaultAlgorithm is a 256-bit collision-resistant hash.
const DefaultAlgorithm = "SHA256"

// DefaultBufferSize is the chunk size files are streamed in.
const DefaultBufferSize = 1 << 20 // 1 MiB

func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "SHA256":
		return sha256.New(), nil
	case "SHA1":
		return sha1.New(), nil // #nosec G401 -- used for content comparison only
	case "SHA512":
		return sha512.New(), nil
	case "SHA384":
		return sha512.New384(), nil
	case "MD5":
		return md5.New(), nil // #nosec G401 -- used for content comparison only
	default:
		return nil, fmt.Errorf("unsupported algorithm: %q", algorithm)
	}
}

// HexLen returns the length of a hex digest produced by algorithm.
func HexLen(algorithm string) (int, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return 0, err
	}
	return h.Size() * 2, nil
}

// HashHex streams r through algorithm in bufSize chunks and returns the
// upper-case hex digest. ctx is checked between chunks.
func HashHex(ctx context.Context, r io.Reader, algorithm string, bufSize int, onProgress func(n int64)) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	buf := make([]byte, bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", werr
			}
			if onProgress != nil {
				onProgress(int64(n))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", rerr
		}
	}

	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// FileHashHex hashes the file name in fsys.
func FileHashHex(ctx context.Context, fsys billy.Filesystem, name, algorithm string, bufSize int, onProgress func(n int64)) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	return HashHex(ctx, f, algorithm, bufSize, onProgress)
}
