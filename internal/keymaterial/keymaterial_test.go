package keymaterial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_WritesKeyWithRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".key")

	key, err := Create(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(key), 6)
	assert.LessOrEqual(t, len(key), 1024)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, string(data))
}

func TestCreate_DifferentKeysEachTime(t *testing.T) {
	dir := t.TempDir()

	key1, err := Create(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	key2, err := Create(filepath.Join(dir, "b.key"))
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestCreate_InvalidPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing-dir", ".key"))
	assert.Error(t, err)
}
