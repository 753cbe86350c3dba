package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

func TestYAMLReportStore_SaveAndLoad(t *testing.T) {
	dir := m.Path(filepath.Join(t.TempDir(), "reports"))
	store := NewReportStore()

	reports := []m.RunReport{
		{
			RunID:   "run-b",
			Project: "cases/b",
			Status:  m.Failed,
			State:   m.StateFailed,
			Stages: []m.StageReport{{
				Stage:           1,
				Applied:         []string{"new src/B.kt"},
				ExpectSucceeded: true,
				Expected:        map[string][]string{"kotlin": {"src/B.kt"}},
				Actual:          map[string][]string{"kotlin": {"src/A.kt", "src/B.kt"}},
			}},
			Error:    "stage 1: compiled files differ (exact comparison)",
			Output:   "=== build #1 (initial): succeeded ===\n",
			Duration: 1500 * time.Millisecond,
		},
		{RunID: "run-a", Project: "cases/a", Status: m.Skipped, State: m.StateUnsupported, Reason: "no known sources found"},
	}

	require.NoError(t, store.SaveReports(context.Background(), dir, reports))

	loaded, err := store.LoadReports(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "cases/a", loaded[0].Project)
	assert.Equal(t, m.Skipped, loaded[0].Status)
	assert.Equal(t, reports[0], loaded[1])

	_, err = os.Stat(filepath.Join(string(dir), reportFileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestYAMLReportStore_LoadMissing(t *testing.T) {
	_, err := NewReportStore().LoadReports(context.Background(), m.Path(t.TempDir()))
	require.ErrorIs(t, err, ErrNoReports)
}

func TestYAMLReportStore_RejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, reportFileName), []byte("version: 99\nreports: []\n"), 0o600))

	_, err := NewReportStore().LoadReports(context.Background(), m.Path(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestYAMLReportStore_ShardDirs(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore()

	require.NoError(t, store.SaveReports(context.Background(), ShardDir(m.Path(dir), 1), nil))
	require.NoError(t, store.SaveReports(context.Background(), ShardDir(m.Path(dir), 0), nil))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "other"), 0o755))

	shards, err := store.ShardDirs(context.Background(), m.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, []m.Path{
		m.Path(filepath.Join(dir, "shard_0")),
		m.Path(filepath.Join(dir, "shard_1")),
	}, shards)
}
