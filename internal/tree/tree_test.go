package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.DAT", "b")
	writeFile(t, root, "a/x.DAT", "x")
	writeFile(t, root, "a/deep/y.txt", "y")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	tr, err := Open(root)
	require.NoError(t, err)

	got, err := tr.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/deep/y.txt", "a/x.DAT", "b.DAT"}, got.Files)
	assert.Empty(t, got.Skipped)
}

func TestWalk_EmptyTree(t *testing.T) {
	tr, err := Open(t.TempDir())
	require.NoError(t, err)

	got, err := tr.Walk()
	require.NoError(t, err)
	assert.Empty(t, got.Files)
}

func TestWalk_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real/x.DAT", "x")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	tr, err := Open(root)
	require.NoError(t, err)

	got, err := tr.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"real/x.DAT"}, got.Files)
}

func TestWalk_UnreadableSubtreeIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	writeFile(t, root, "ok/x.DAT", "x")
	writeFile(t, root, "locked/y.DAT", "y")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	tr, err := Open(root)
	require.NoError(t, err)

	got, err := tr.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok/x.DAT"}, got.Files)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, locked, got.Skipped[0].Path)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.DAT", "x")

	_, err := Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(filepath.Join(dir, "file.DAT"))
	assert.Error(t, err)
}

func TestFilterExt(t *testing.T) {
	files := []string{"a/x.DAT", "a/x.dat", "b.txt", "DAT"}

	assert.Equal(t, []string{"a/x.DAT"}, FilterExt(files, []string{".DAT"}))
	assert.Equal(t, []string{"a/x.DAT", "a/x.dat"}, FilterExt(files, []string{".DAT", ".dat"}))
	assert.Equal(t, files, FilterExt(files, nil))
}

func TestIntersect(t *testing.T) {
	a := []string{"only-a.DAT", "shared/x.DAT", "z.DAT"}
	b := []string{"z.DAT", "shared/x.DAT", "only-b.DAT"}

	assert.Equal(t, []string{"shared/x.DAT", "z.DAT"}, Intersect(a, b))
	assert.Equal(t, Intersect(a, b), Intersect(b, a))
	assert.Empty(t, Intersect(a, nil))
}

func TestAbs(t *testing.T) {
	tr := &Tree{Root: filepath.FromSlash("/data/a")}
	assert.Equal(t, filepath.FromSlash("/data/a/sub/x.DAT"), tr.Abs("sub/x.DAT"))
}
