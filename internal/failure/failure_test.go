package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"not exist", fs.ErrNotExist, ReasonMissing},
		{"wrapped not exist", fmt.Errorf("stat: %w", fs.ErrNotExist), ReasonMissing},
		{"permission", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, ReasonPermission},
		{"other", errors.New("i/o error"), ReasonUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReasonOf(tt.err))
		})
	}
}

func TestFileAccessError(t *testing.T) {
	err := NewFileAccess("stat", "/b/x.DAT", fs.ErrNotExist)

	assert.Equal(t, "stat /b/x.DAT: missing: file does not exist", err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	wrapped := fmt.Errorf("compare x.DAT: %w", err)
	var fae *FileAccessError
	require.ErrorAs(t, wrapped, &fae)
	assert.Equal(t, "/b/x.DAT", fae.Path)
	assert.Equal(t, CodeFileAccess, CodeOf(wrapped))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeCacheLoad, CodeOf(&CacheLoadError{Path: "c.json", Err: errors.New("bad json")}))
	assert.Equal(t, CodeCacheWrite, CodeOf(&CacheWriteError{Path: "c.json", Err: errors.New("disk full")}))
	assert.Equal(t, CodeDecode, CodeOf(&DecodeWarning{Path: "y.txt"}))
	assert.Equal(t, CodeWalk, CodeOf(&WalkError{Path: "sub", Err: fs.ErrPermission}))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
