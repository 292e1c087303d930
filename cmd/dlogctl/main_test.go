package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/config"
	"github.com/ajitpratap0/datalogger/pkg/reader"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func TestRecordInspectExport(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "effective.yaml")

	require.NoError(t, execute(t, "record",
		"--dir", dir, "--name", "cli", "--samples", "3000", "--budget", "32768",
		"--codec", "zstd", "--save-config", saved))

	runs, err := filepath.Glob(filepath.Join(dir, "cli_*"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]

	r, err := reader.Open(run)
	require.NoError(t, err)
	assert.Equal(t, []string{"control", "imu"}, r.Groups())
	control, err := r.DataSet("control")
	require.NoError(t, err)
	assert.Equal(t, 3000, control.Rows)
	assert.Contains(t, control.Columns, "jacobian_6_12")
	imu, err := r.DataSet("imu")
	require.NoError(t, err)
	assert.Equal(t, 1500, imu.Rows)

	cfg, err := config.Load(saved)
	require.NoError(t, err)
	assert.Equal(t, int64(32768), cfg.AllowedBufferSize)
	assert.Equal(t, "zstd", cfg.Compression.Algorithm)
	assert.Equal(t, "cli", cfg.BaseName)

	require.NoError(t, execute(t, "inspect", run, "--columns"))

	out := filepath.Join(dir, "parquet")
	require.NoError(t, execute(t, "export", run, "--format", "parquet", "--out", out))
	for _, group := range []string{"control", "imu"} {
		_, err := os.Stat(filepath.Join(out, group+".parquet"))
		assert.NoError(t, err)
	}

	out = filepath.Join(dir, "csv-zstd")
	require.NoError(t, execute(t, "export", run, "--out", out, "--compress", "zstd", "--compress-level", "best"))
	zst, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Zstd, Level: compression.Best})
	require.NoError(t, err)
	f, err := os.Open(filepath.Join(out, "imu.csv.zst"))
	require.NoError(t, err)
	defer f.Close()
	rc, err := zst.DecompressStream(f)
	require.NoError(t, err)
	defer rc.Close()
	records, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, imu.Rows+1)
	assert.Equal(t, []string{"time", "acc_1", "acc_2", "acc_3", "gyro_1", "gyro_2", "gyro_3"}, records[0])
}

func TestCommandErrors(t *testing.T) {
	assert.Error(t, execute(t, "export", t.TempDir(), "--format", "xlsx"))
	assert.Error(t, execute(t, "export", t.TempDir(), "--compress", "rar"))
	assert.Error(t, execute(t, "export", t.TempDir(), "--compress", "gzip", "--compress-level", "max"))
	assert.Error(t, execute(t, "inspect", filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, execute(t, "record", "--dir", t.TempDir(), "--codec", "rar"))
	assert.Error(t, execute(t, "record", "--dir", t.TempDir(), "--samples", "0"))
	assert.NoError(t, execute(t, "version"))
}
