package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relatorhq/relator/pkg/storage"
	"github.com/relatorhq/relator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubInvoker returns the queued exit codes in order; the last one repeats
type stubInvoker struct {
	codes    []int
	startErr error
	calls    int
	docNames []string
}

func (s *stubInvoker) Invoke(_ context.Context, _ types.Session, docName string) (int, error) {
	s.calls++
	s.docNames = append(s.docNames, docName)
	if s.startErr != nil {
		return 0, s.startErr
	}
	idx := s.calls - 1
	if idx >= len(s.codes) {
		idx = len(s.codes) - 1
	}
	return s.codes[idx], nil
}

func testSession(t *testing.T, maxAttempts int) types.Session {
	t.Helper()
	base := t.TempDir()
	return types.Session{
		ID:          "73",
		DateFrom:    "01/11/2025",
		DateTo:      "30/11/2025",
		DownloadDir: filepath.Join(base, "downloads"),
		OutputDir:   filepath.Join(base, "output"),
		Retry:       types.RetryPolicy{MaxAttempts: maxAttempts},
	}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	inv := &stubInvoker{codes: []int{0}}
	var sleeps []time.Duration
	r := New(inv, nil)
	r.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	session := testSession(t, 1)
	// Pre-populate the download dir with a stale partial download
	require.NoError(t, os.MkdirAll(session.DownloadDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(session.DownloadDir, "stale.xlsx"), []byte("x"), 0o644))

	result, err := r.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, 1, inv.calls)
	assert.Empty(t, sleeps, "no retry sleep on first-attempt success")

	// Working dir was reset to empty before executing
	entries, err := os.ReadDir(session.DownloadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunRetryExhaustion(t *testing.T) {
	inv := &stubInvoker{codes: []int{7}}
	var sleeps []time.Duration
	r := New(inv, nil).WithBackoff(ConstantBackoff(25 * time.Millisecond))
	r.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	result, err := r.Run(context.Background(), testSession(t, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session 73")
	assert.Contains(t, err.Error(), "3 attempts")

	// Exactly N invocations, a pause between each consecutive pair
	assert.Equal(t, 3, inv.calls)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 7, result.ExitCode)
	require.Len(t, sleeps, 2)
	assert.Equal(t, 25*time.Millisecond, sleeps[0])
}

func TestRunSucceedsOnAttemptK(t *testing.T) {
	inv := &stubInvoker{codes: []int{1, 1, 0}}
	r := New(inv, nil).WithBackoff(ConstantBackoff(0))

	result, err := r.Run(context.Background(), testSession(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, inv.calls)
}

func TestRunStartFailureIsNotRetried(t *testing.T) {
	inv := &stubInvoker{startErr: errors.New("executable not found")}
	r := New(inv, nil).WithBackoff(ConstantBackoff(0))

	_, err := r.Run(context.Background(), testSession(t, 3))
	require.Error(t, err)
	assert.Equal(t, 1, inv.calls)
}

func TestOutputCollisionRemovesPreviousFile(t *testing.T) {
	inv := &stubInvoker{codes: []int{0}}
	r := New(inv, nil)

	session := testSession(t, 1)
	session.OutputDocName = "SONP_73_2025.docx"
	require.NoError(t, os.MkdirAll(session.OutputDir, 0o755))
	prev := filepath.Join(session.OutputDir, "SONP_73_2025.docx")
	require.NoError(t, os.WriteFile(prev, []byte("old"), 0o644))

	result, err := r.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, prev, result.OutputPath)
	assert.NoFileExists(t, prev)
	assert.Equal(t, []string{"SONP_73_2025.docx"}, inv.docNames)
}

func TestOutputCollisionFallsBackToResendName(t *testing.T) {
	inv := &stubInvoker{codes: []int{0}}
	r := New(inv, nil)

	session := testSession(t, 1)
	session.OutputDocName = "SONP_73_2025.docx"
	// A non-empty directory at the output path makes os.Remove fail the
	// same way a locked file does
	locked := filepath.Join(session.OutputDir, "SONP_73_2025.docx")
	require.NoError(t, os.MkdirAll(filepath.Join(locked, "held"), 0o755))

	result, err := r.Run(context.Background(), session)
	require.NoError(t, err)

	assert.NotEqual(t, locked, result.OutputPath)
	assert.Contains(t, result.OutputPath, "reenvio")
	assert.Regexp(t, `SONP_73_2025_reenvio_\d{8}_\d{6}\.docx$`, result.OutputPath)
	require.Len(t, inv.docNames, 1)
	assert.Contains(t, inv.docNames[0], "reenvio")
}

func TestOutputStatErrorFallsBackToResendName(t *testing.T) {
	inv := &stubInvoker{codes: []int{0}}
	r := New(inv, nil)

	session := testSession(t, 1)
	session.OutputDocName = "SONP_73_2025.docx"
	// A regular file where the output dir should be makes os.Stat on the
	// output path fail with an error that is not "does not exist"
	require.NoError(t, os.WriteFile(session.OutputDir, []byte("x"), 0o644))

	result, err := r.Run(context.Background(), session)
	require.NoError(t, err)
	assert.Contains(t, result.OutputPath, "reenvio")
	require.Len(t, inv.docNames, 1)
	assert.Contains(t, inv.docNames[0], "reenvio")
}

func TestResendNameSkipsTakenTimestamp(t *testing.T) {
	dir := t.TempDir()
	stamp := "20251130_101500"

	name := resendName(dir, "SONP_73_2025", ".docx", stamp)
	assert.Equal(t, "SONP_73_2025_reenvio_20251130_101500.docx", name)

	// Same-second collision: the first choice is taken, a numeric suffix
	// disambiguates
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	name = resendName(dir, "SONP_73_2025", ".docx", stamp)
	assert.Equal(t, "SONP_73_2025_reenvio_20251130_101500_2.docx", name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	name = resendName(dir, "SONP_73_2025", ".docx", stamp)
	assert.Equal(t, "SONP_73_2025_reenvio_20251130_101500_3.docx", name)
}

func TestRunBatchAbortsOnFirstFailure(t *testing.T) {
	inv := &stubInvoker{codes: []int{1}}
	r := New(inv, nil).WithBackoff(ConstantBackoff(0))

	sessions := []types.Session{testSession(t, 1), testSession(t, 1)}
	sessions[1].ID = "74"

	err := r.RunBatch(context.Background(), sessions, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session 73")
	assert.Equal(t, 1, inv.calls, "second session must not run after abort")
}

func TestRunBatchContinueOnError(t *testing.T) {
	inv := &stubInvoker{codes: []int{1}}
	r := New(inv, nil).WithBackoff(ConstantBackoff(0))

	sessions := []types.Session{testSession(t, 1), testSession(t, 1)}
	sessions[1].ID = "74"

	err := r.RunBatch(context.Background(), sessions, true)
	require.Error(t, err)
	assert.Equal(t, 2, inv.calls)
	assert.Contains(t, err.Error(), "session 73")
	assert.Contains(t, err.Error(), "session 74")
}

func TestRunRecordsJournal(t *testing.T) {
	journal, err := storage.OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer journal.Close()

	inv := &stubInvoker{codes: []int{1}}
	r := New(inv, journal).WithBackoff(ConstantBackoff(0))

	_, runErr := r.Run(context.Background(), testSession(t, 2))
	require.Error(t, runErr)

	runs, err := journal.ListSessionRuns("73")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusFailed, runs[0].Status)
	assert.Equal(t, 2, runs[0].Attempts)
	assert.NotNil(t, runs[0].FinishedAt)
}
