package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestRotatingFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datalogger.log")
	l, err := New(Config{
		Level:       "debug",
		Encoding:    "console",
		OutputPaths: []string{os.DevNull},
		File:        &FileConfig{Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	l.Info("group registered", zap.String("group", "base"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"message":"group registered"`)
	assert.Contains(t, line, `"group":"base"`)
}

func TestInitAndContext(t *testing.T) {
	require.NoError(t, Init(Config{Level: "warn", OutputPaths: []string{os.DevNull}}))
	assert.False(t, Get().Core().Enabled(zap.InfoLevel))

	ctx := context.WithValue(context.Background(), RunIDKey, "abc")
	assert.NotNil(t, WithContext(ctx))
	_ = Sync()
}
