package iox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))

	dst := filepath.Join(dir, "sub", "dir", "b.txt")
	require.NoError(t, CopyFile(dst, src))
	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(raw))

	require.Error(t, CopyFile(dst, filepath.Join(dir, "missing.txt")))
}
