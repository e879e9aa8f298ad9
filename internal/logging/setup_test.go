package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ConsoleLevels(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"info console", false, false},
		{"verbose console", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console bytes.Buffer
			dir := t.TempDir()

			logger, closeFn, err := Setup(Options{Verbose: tt.verbose, LogDir: dir, Console: &console})
			require.NoError(t, err)

			logger.Debug("debug line")
			logger.Info("info line", ThreadID("t1"))
			require.NoError(t, closeFn())

			out := console.String()
			assert.Contains(t, out, "info line")
			assert.Contains(t, out, "thread_id=t1")
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))

			// The file always gets DEBUG.
			data, err := os.ReadFile(filepath.Join(dir, LogFileName))
			require.NoError(t, err)
			assert.Contains(t, string(data), "debug line")
			assert.Contains(t, string(data), "info line")
		})
	}
}

func TestSetup_DisableFile(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var console bytes.Buffer
	dir := t.TempDir()
	logger, closeFn, err := Setup(Options{LogDir: dir, Console: &console, DisableFile: true})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closeFn())

	_, err = os.Stat(filepath.Join(dir, LogFileName))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, console.String(), "hello")
}

func TestFanoutHandler_WithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("k", "v").WithGroup("g")

	logger.Info("only a", "x", 1)
	logger.Warn("both", "y", 2)

	assert.Contains(t, a.String(), "only a")
	assert.Contains(t, a.String(), "k=v")
	assert.Contains(t, a.String(), "g.x=1")
	assert.NotContains(t, b.String(), "only a")
	assert.Contains(t, b.String(), "g.y=2")
}

func TestDailyRotatingFile_RotatesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	f, err := openDailyRotatingFile(path, func() time.Time { return now })
	require.NoError(t, err)

	_, err = f.Write([]byte("day one\n"))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("day two\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rotated, err := os.ReadFile(RotatedName(path, "2024_03_01"))
	require.NoError(t, err)
	assert.Equal(t, "day one\n", string(rotated))

	active, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "day two\n", string(active))
}

func TestDailyRotatingFile_RecoversFromFailedRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	f, err := openDailyRotatingFile(path, func() time.Time { return now })
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	_, err = f.Write([]byte("day one\n"))
	require.NoError(t, err)

	// A non-empty directory at the target makes the rename fail.
	blocker := RotatedName(path, "2024_03_01")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0700))

	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("lost\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotating log file")

	require.NoError(t, os.RemoveAll(blocker))

	_, err = f.Write([]byte("day two\n"))
	require.NoError(t, err)
	_, err = f.Write([]byte("still day two\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rotated, err := os.ReadFile(blocker)
	require.NoError(t, err)
	assert.Equal(t, "day one\n", string(rotated))

	active, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "day two\nstill day two\n", string(active))
}

func TestDailyRotatingFile_WriteAfterClose(t *testing.T) {
	f, err := OpenDailyRotatingFile(filepath.Join(t.TempDir(), LogFileName))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatedName(t *testing.T) {
	assert.Equal(t, "/tmp/app.log.2024_01_02.log", RotatedName("/tmp/app.log", "2024_01_02"))
}
