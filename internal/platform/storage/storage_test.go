package storage

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveOpenRemove(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	stored, err := local.Save(strings.NewReader("hello"), ".txt", 1024)
	require.NoError(t, err)
	require.EqualValues(t, 5, stored.Size)
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", stored.Checksum)
	require.True(t, strings.HasSuffix(stored.Name, ".txt"))

	f, err := local.Open(stored.Name)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, "hello", string(content))

	require.NoError(t, local.Remove(stored.Name))
	require.NoError(t, local.Remove(stored.Name))
	_, err = local.Open(stored.Name)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveEnforcesLimit(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = local.Save(strings.NewReader("0123456789"), ".bin", 4)
	require.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpenIgnoresTraversal(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = local.Open("../../etc/passwd")
	require.ErrorIs(t, err, os.ErrNotExist)
}
