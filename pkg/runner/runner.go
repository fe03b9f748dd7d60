package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/metrics"
	"github.com/relatorhq/relator/pkg/pipeline"
	"github.com/relatorhq/relator/pkg/storage"
	"github.com/relatorhq/relator/pkg/types"
)

// resendMarker disambiguates an output name when the previous file at that
// path cannot be removed (e.g. held open by a document viewer)
const resendMarker = "reenvio"

// Result is the outcome of one session run
type Result struct {
	SessionID  string
	Attempts   int
	OutputPath string
	ExitCode   int
}

// Runner drives sessions through the pipeline with bounded retry. One
// session is one unit of work: prepare the working directories, invoke the
// pipeline, retry on nonzero exit until the budget is spent.
type Runner struct {
	invoker pipeline.Invoker
	journal *storage.Journal
	backoff BackoffPolicy

	// sleep is swapped out in tests to observe backoff pauses
	sleep func(time.Duration)
}

// New creates a runner. The journal may be nil.
func New(inv pipeline.Invoker, journal *storage.Journal) *Runner {
	return &Runner{
		invoker: inv,
		journal: journal,
		sleep:   time.Sleep,
	}
}

// WithBackoff overrides the session's own backoff interval with a policy.
// When unset, ConstantBackoff(session.Retry.Backoff) applies.
func (r *Runner) WithBackoff(p BackoffPolicy) *Runner {
	r.backoff = p
	return r
}

// Run executes one session: PREPARING (reset working dir, resolve output
// collision), then EXECUTING with up to Retry.MaxAttempts invocations and a
// backoff pause between consecutive attempts. A nonzero exit after the last
// attempt is returned as an error naming the session and the attempt count.
func (r *Runner) Run(ctx context.Context, session types.Session) (*Result, error) {
	logger := log.WithSession(session.ID)
	maxAttempts := session.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := r.backoff
	if backoff == nil {
		backoff = ConstantBackoff(session.Retry.Backoff)
	}

	record := &types.SessionRun{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		StartedAt: time.Now(),
		Status:    types.RunStatusRunning,
	}
	r.recordRun(record)
	timer := metrics.NewTimer()

	result, err := r.run(ctx, session, logger, maxAttempts, backoff)
	timer.ObserveDuration(metrics.SessionDuration)

	finished := time.Now()
	record.FinishedAt = &finished
	if result != nil {
		record.Attempts = result.Attempts
		record.OutputPath = result.OutputPath
	}
	if err != nil {
		record.Status = types.RunStatusFailed
		record.Error = err.Error()
		metrics.SessionRunsTotal.WithLabelValues("failed").Inc()
	} else {
		record.Status = types.RunStatusSucceeded
		metrics.SessionRunsTotal.WithLabelValues("succeeded").Inc()
	}
	r.recordRun(record)

	return result, err
}

func (r *Runner) run(ctx context.Context, session types.Session, logger zerolog.Logger, maxAttempts int, backoff BackoffPolicy) (*Result, error) {
	// PREPARING: stale partial downloads must not leak into a new attempt
	if err := resetDir(session.DownloadDir); err != nil {
		return nil, fmt.Errorf("session %s: failed to reset download dir: %w", session.ID, err)
	}
	logger.Info().Str("dir", session.DownloadDir).Msg("download dir cleared")

	docName, outputPath := resolveOutputName(session, logger)

	result := &Result{SessionID: session.ID, OutputPath: outputPath}

	// EXECUTING with bounded retry
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		logger.Info().Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("pipeline attempt starting")
		metrics.SessionAttemptsTotal.Inc()

		code, err := r.invoker.Invoke(ctx, session, docName)
		if err != nil {
			// Not an execution failure: the pipeline never started.
			// Retrying the same broken command cannot help.
			return result, fmt.Errorf("session %s: %w", session.ID, err)
		}
		result.ExitCode = code

		if code == 0 {
			logger.Info().Int("attempt", attempt).Msg("pipeline attempt succeeded")
			return result, nil
		}

		logger.Warn().Int("attempt", attempt).Int("exit_code", code).Msg("pipeline attempt failed")
		if attempt < maxAttempts {
			pause := backoff(attempt)
			if pause > 0 {
				logger.Info().Dur("backoff", pause).Msg("pausing before retry")
				r.sleep(pause)
			}
		}
	}

	return result, fmt.Errorf("session %s exhausted retry budget after %d attempts (last exit code %d)",
		session.ID, maxAttempts, result.ExitCode)
}

// RunBatch executes sessions strictly sequentially in declared order. By
// default the batch aborts on the first terminal failure; with
// continueOnError every session is attempted and the failures are reported
// together.
func (r *Runner) RunBatch(ctx context.Context, sessions []types.Session, continueOnError bool) error {
	var failures []error
	for _, session := range sessions {
		if _, err := r.Run(ctx, session); err != nil {
			l := log.WithSession(session.ID)
			l.Error().Err(err).Msg("session run failed")
			if !continueOnError {
				return err
			}
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (r *Runner) recordRun(run *types.SessionRun) {
	if r.journal == nil {
		return
	}
	if err := r.journal.SaveSessionRun(run); err != nil {
		l := log.WithSession(run.SessionID)
		l.Warn().Err(err).Msg("failed to record session run")
	}
}

// resetDir recursively removes dir and recreates it empty
func resetDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// resolveOutputName ensures the output document path is free before the
// pipeline writes to it. A pre-existing file is deleted; when deletion
// fails, or the path cannot be inspected at all, the run proceeds under a
// disambiguated resend name instead of blocking on a locked file.
func resolveOutputName(session types.Session, logger zerolog.Logger) (docName, outputPath string) {
	docName = session.OutputDocName
	if docName == "" {
		return "", ""
	}
	outputPath = filepath.Join(session.OutputDir, docName)

	_, err := os.Stat(outputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return docName, outputPath
	case err != nil:
		logger.Warn().Err(err).Str("path", outputPath).Msg("cannot inspect previous output document, using resend name")
	default:
		if rmErr := os.Remove(outputPath); rmErr == nil {
			logger.Info().Str("path", outputPath).Msg("removed previous output document")
			return docName, outputPath
		}
		logger.Warn().Str("path", outputPath).Msg("previous output document is locked, using resend name")
	}

	ext := filepath.Ext(docName)
	base := strings.TrimSuffix(docName, ext)
	docName = resendName(session.OutputDir, base, ext, time.Now().Format("20060102_150405"))
	outputPath = filepath.Join(session.OutputDir, docName)
	return docName, outputPath
}

// resendName derives a free disambiguated name under dir. The timestamp has
// second granularity, so a taken first choice gets a numeric suffix.
func resendName(dir, base, ext, stamp string) string {
	name := fmt.Sprintf("%s_%s_%s%s", base, resendMarker, stamp, ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return name
		}
		name = fmt.Sprintf("%s_%s_%s_%d%s", base, resendMarker, stamp, n, ext)
	}
}
