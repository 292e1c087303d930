package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "group.dlog")
	content := []byte("DLG1 frame payload")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, content, f.Bytes())
	assert.Equal(t, len(content), f.Len())
	assert.Equal(t, path, f.Path())

	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.Nil(t, f.Bytes())
}

func TestOpenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dlog")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.NoError(t, f.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.dlog"))
	assert.Error(t, err)
}
