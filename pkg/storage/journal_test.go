package storage

import (
	"testing"
	"time"

	"github.com/relatorhq/relator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalReconcileRuns(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	run := &types.ReconcileRun{
		ID:        "run-1",
		StartedAt: time.Now(),
		Resources: 5,
		Status:    types.RunStatusRunning,
	}
	require.NoError(t, j.SaveReconcileRun(run))

	// Finish and overwrite under the same ID
	done := time.Now()
	run.FinishedAt = &done
	run.Status = types.RunStatusSucceeded
	require.NoError(t, j.SaveReconcileRun(run))

	got, err := j.GetReconcileRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, got.Status)
	assert.Equal(t, 5, got.Resources)
	assert.NotNil(t, got.FinishedAt)

	runs, err := j.ListReconcileRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestJournalGetMissingRun(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	_, err = j.GetReconcileRun("nope")
	assert.Error(t, err)
}

func TestJournalSessionRunFilter(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.SaveSessionRun(&types.SessionRun{ID: "a", SessionID: "71", Status: types.RunStatusSucceeded}))
	require.NoError(t, j.SaveSessionRun(&types.SessionRun{ID: "b", SessionID: "72", Status: types.RunStatusFailed}))
	require.NoError(t, j.SaveSessionRun(&types.SessionRun{ID: "c", SessionID: "71", Status: types.RunStatusFailed}))

	all, err := j.ListSessionRuns("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	only71, err := j.ListSessionRuns("71")
	require.NoError(t, err)
	assert.Len(t, only71, 2)
	for _, r := range only71 {
		assert.Equal(t, "71", r.SessionID)
	}
}
