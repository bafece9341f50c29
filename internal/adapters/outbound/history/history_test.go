package history_test

import (
	"testing"
	"time"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/history"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_SaveRunUpserts(t *testing.T) {
	dir := t.TempDir()
	h := history.New("")
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	run := domain.NewScanRun("run-b", dir, nil, false, t0.Add(time.Minute))
	require.NoError(t, h.SaveRun(dir, *run))
	require.NoError(t, h.SaveRun(dir, *domain.NewScanRun("run-a", dir, []string{"sales"}, false, t0)))

	require.NoError(t, run.Start(t0.Add(2*time.Minute)))
	require.NoError(t, h.SaveRun(dir, *run))

	runs, err := h.ListRuns(dir)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID, "oldest first")
	assert.Equal(t, []string{"sales"}, runs[0].ModuleFilter)
	assert.Equal(t, domain.RunRunning, runs[1].State)
}

func TestHistory_ListRunsEmpty(t *testing.T) {
	runs, err := history.New("").ListRuns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistory_Reports(t *testing.T) {
	dir := t.TempDir()
	h := history.New(".state")

	_, err := h.LoadReport(dir, "missing")
	assert.ErrorIs(t, err, domain.ErrNoCompletedRun)

	report := &domain.Report{RunID: "run-1", HealthScore: 85, HealthStatus: "Good", ModulesAnalyzed: []string{"sales"}}
	require.NoError(t, h.SaveReport(dir, report))

	loaded, err := h.LoadReport(dir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 85, loaded.HealthScore)
	assert.Equal(t, []string{"sales"}, loaded.ModulesAnalyzed)

	assert.Error(t, h.SaveReport(dir, &domain.Report{}))
}
