// Package failure defines the error taxonomy shared by the comparison and diff runs.
//
// Every error carries a Code so callers can classify it without string matching.
// Per-file errors never abort a run on their own; the runner collects them next to
// the successful results.
package failure

import (
	"errors"
	"fmt"
	"io/fs"
)

// Code identifies an error condition. Codes are strings so they print and log cleanly.
type Code string

const (
	// CodeFileAccess indicates a file could not be stat'ed, opened or read.
	CodeFileAccess Code = "FILE_ACCESS"

	// CodeCacheLoad indicates the hash cache file was unreadable or malformed.
	CodeCacheLoad Code = "CACHE_LOAD"

	// CodeCacheWrite indicates the hash cache could not be persisted.
	CodeCacheWrite Code = "CACHE_WRITE"

	// CodeDecode indicates invalid text was replaced while decoding a file.
	CodeDecode Code = "DECODE_WARNING"

	// CodeWalk indicates a subtree was skipped during the tree walk.
	CodeWalk Code = "WALK_SKIPPED"
)

// Reason narrows down why a file could not be accessed.
type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonPermission Reason = "permission denied"
	ReasonUnreadable Reason = "unreadable"
)

// ReasonOf classifies err into a Reason.
func ReasonOf(err error) Reason {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ReasonMissing
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermission
	default:
		return ReasonUnreadable
	}
}

// FileAccessError reports a file that could not be compared, hashed or diffed.
type FileAccessError struct {
	Path   string
	Op     string
	Reason Reason
	Err    error
}

// NewFileAccess wraps err for path, classifying the reason.
func NewFileAccess(op, path string, err error) *FileAccessError {
	return &FileAccessError{
		Path:   path,
		Op:     op,
		Reason: ReasonOf(err),
		Err:    err,
	}
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Reason, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// Code returns CodeFileAccess.
func (e *FileAccessError) Code() Code { return CodeFileAccess }

// CacheLoadError reports a cache file that was ignored. The run proceeds with an empty cache.
type CacheLoadError struct {
	Path string
	Err  error
}

func (e *CacheLoadError) Error() string {
	return fmt.Sprintf("load hash cache %s: %v", e.Path, e.Err)
}

func (e *CacheLoadError) Unwrap() error { return e.Err }

func (e *CacheLoadError) Code() Code { return CodeCacheLoad }

// CacheWriteError reports a failed persist. Results computed in the run stay valid.
type CacheWriteError struct {
	Path string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("persist hash cache %s: %v", e.Path, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

func (e *CacheWriteError) Code() Code { return CodeCacheWrite }

// DecodeWarning records that undecodable bytes in Path were replaced with U+FFFD.
type DecodeWarning struct {
	Path string
}

func (w *DecodeWarning) Error() string {
	return fmt.Sprintf("%s: invalid UTF-8 replaced with U+FFFD", w.Path)
}

func (w *DecodeWarning) Code() Code { return CodeDecode }

// WalkError records a subtree that could not be listed and was skipped.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("skipped %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

func (e *WalkError) Code() Code { return CodeWalk }

// CodeOf returns the Code carried by err, or "" when err is not part of the taxonomy.
func CodeOf(err error) Code {
	var c interface{ Code() Code }
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}
