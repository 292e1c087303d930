package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &Manifest{
		ID:       "3f1c",
		BaseName: "walk",
		Created:  created,
		Updated:  created.Add(time.Minute),
		Host:     HostInfo{Hostname: "robot", OS: "linux", Arch: "arm64", CPUs: 8},
		Codec:    "lz4",
		Level:    "fastest",
		Groups: []ManifestGroup{
			{Name: "base", File: "base.dlog", Columns: 4, Rows: 100, Frames: 2},
		},
	}
	require.NoError(t, WriteManifest(dir, m))

	m.Closed = true
	m.Groups[0].Rows = 150
	require.NoError(t, WriteManifest(dir, m))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.True(t, got.Closed)
	assert.Equal(t, int64(150), got.Groups[0].Rows)
	assert.True(t, created.Equal(got.Created))
	assert.Equal(t, "robot", got.Host.Hostname)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary manifest files must not remain")
}

func TestReadManifestErrors(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeNotFound))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("groups: [\n"), 0o600))
	_, err = ReadManifest(dir)
	assert.True(t, dlerrors.IsType(err, dlerrors.ErrorTypeRead))
}
