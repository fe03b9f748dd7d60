package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatorhq/relator/pkg/runner"
	"github.com/relatorhq/relator/pkg/types"
)

type stubInvoker struct {
	calls []string
	code  int
}

func (s *stubInvoker) Invoke(ctx context.Context, session types.Session, outputDocName string) (int, error) {
	s.calls = append(s.calls, session.ID)
	return s.code, nil
}

func testSession(t *testing.T, id string) types.Session {
	t.Helper()
	return types.Session{
		ID:          id,
		DateFrom:    "01/08/2025",
		DateTo:      "31/08/2025",
		DownloadDir: filepath.Join(t.TempDir(), "downloads"),
		Retry:       types.RetryPolicy{MaxAttempts: 1},
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(runner.New(&stubInvoker{}, nil), []types.Session{testSession(t, "73")}, false, "test")

	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}

func TestRunEndpointExecutesBatch(t *testing.T) {
	inv := &stubInvoker{}
	sessions := []types.Session{testSession(t, "73"), testSession(t, "74")}
	srv := NewServer(runner.New(inv, nil), sessions, false, "test")

	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, []string{"73", "74"}, resp.Sessions)
	assert.Equal(t, []string{"73", "74"}, inv.calls)
}

func TestRunEndpointSessionFilter(t *testing.T) {
	inv := &stubInvoker{}
	sessions := []types.Session{testSession(t, "73"), testSession(t, "74")}
	srv := NewServer(runner.New(inv, nil), sessions, false, "test")

	body := bytes.NewBufferString(`{"session":"74"}`)
	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"74"}, inv.calls)
}

func TestRunEndpointUnknownSession(t *testing.T) {
	srv := NewServer(runner.New(&stubInvoker{}, nil), []types.Session{testSession(t, "73")}, false, "test")

	body := bytes.NewBufferString(`{"session":"99"}`)
	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunEndpointReportsFailure(t *testing.T) {
	inv := &stubInvoker{code: 2}
	srv := NewServer(runner.New(inv, nil), []types.Session{testSession(t, "73")}, false, "test")

	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Contains(t, resp.Error, "exhausted retry budget")
}

func TestRunEndpointRejectsConcurrentRun(t *testing.T) {
	srv := NewServer(runner.New(&stubInvoker{}, nil), []types.Session{testSession(t, "73")}, false, "test")

	// Simulate a batch in flight
	require.True(t, srv.acquire())
	defer srv.release()

	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "busy", resp.Status)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(runner.New(&stubInvoker{}, nil), []types.Session{testSession(t, "73")}, false, "test")

	rec := httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	srv.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
