package history_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EdenNelson/wimwitch-tng/internal/history"
)

func TestLoadOrCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.yaml")

	// A fresh file is created on first load.
	h, err := history.LoadOrCreate(path)
	require.NoError(t, err)
	require.Empty(t, h.Builds)
	require.FileExists(t, path)

	err = h.Add(history.Build{
		ID:         "run-1",
		Image:      "install.wim",
		Family:     "windows-11",
		Release:    "23H2",
		State:      "completed",
		ExportPath: "/out/custom.wim",
		StartedAt:  time.Now().Add(-time.Hour),
		FinishedAt: time.Now(),
	})
	require.NoError(t, err)

	// The record survives a reload.
	h, err = history.LoadOrCreate(path)
	require.NoError(t, err)
	require.Len(t, h.Builds, 1)
	require.Equal(t, "run-1", h.Builds[0].ID)
	require.Equal(t, "completed", h.Builds[0].State)
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o600))

	_, err := history.LoadOrCreate(path)
	require.Error(t, err)
}

func TestAddCapsRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.yaml")

	h, err := history.LoadOrCreate(path)
	require.NoError(t, err)

	for i := range 60 {
		err = h.Add(history.Build{ID: string(rune('a' + i%26))})
		require.NoError(t, err)
	}

	require.Len(t, h.Builds, 50)
}
