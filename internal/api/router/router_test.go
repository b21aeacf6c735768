package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/api/dto"
	"github.com/cuongbtq/scout-jobs/internal/api/handler"
	"github.com/cuongbtq/scout-jobs/internal/api/router"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/queue"
	"github.com/cuongbtq/scout-jobs/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type staticTargets []int64

func (s staticTargets) ListIDs(context.Context) ([]int64, error) { return s, nil }

type env struct {
	engine    *gin.Engine
	queue     *queue.Memory
	records   *memory.Records
	submitted []jobs.Kind
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &env{
		queue:   queue.NewMemory(),
		records: memory.NewRecords(fixedNow),
	}
	svc := jobs.NewService(&jobs.ServiceConfig{
		Logger:  logger,
		Records: e.records,
		Queue:   e.queue,
		Targets: staticTargets{1, 2, 3},
		Now:     fixedNow,
	})
	e.engine = router.SetupRouter(&handler.Dependencies{
		Logger:      logger,
		Jobs:        svc,
		ServiceName: "scout-jobs-api",
		HealthCheck: map[string]handler.HealthCheck{
			"redis": func(context.Context) error { return nil },
		},
		OnSubmit: func(k jobs.Kind) { e.submitted = append(e.submitted, k) },
	})
	return e
}

func do(t *testing.T, engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSubmitRefresh(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTotal int64
	}{
		{name: "explicit ids", body: `{"player_ids":[7,8]}`, wantTotal: 2},
		{name: "empty body means all players", body: "", wantTotal: 3},
		{name: "no ids means all players", body: `{}`, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)

			w := do(t, e.engine, http.MethodPost, "/api/v1/admin/refresh-market-values", tt.body)
			require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

			resp := decode[dto.SubmitResponse](t, w)
			assert.Equal(t, "queued", resp.Status)
			assert.NotEmpty(t, resp.JobID)

			job, err := e.records.Get(context.Background(), resp.JobID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, job.Total)
			assert.Equal(t, int(tt.wantTotal), e.queue.Len())
			assert.Equal(t, []jobs.Kind{jobs.KindMarketRefresh}, e.submitted)
		})
	}
}

func TestSubmitRefresh_BadRequest(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodPost, "/api/v1/admin/refresh-market-values", `{"player_ids":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, e.engine, http.MethodPost, "/api/v1/admin/refresh-market-values", `{"player_ids":[-4]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, e.queue.Len())
	assert.Empty(t, e.submitted)
}

func TestSubmitScout(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodPost, "/api/v1/players/10/scout", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decode[dto.SubmitResponse](t, w)

	job, err := e.records.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.KindScoutReport, job.Kind)
	assert.Equal(t, int64(1), job.Total)

	for _, bad := range []string{"abc", "0", "-1"} {
		w := do(t, e.engine, http.MethodPost, "/api/v1/players/"+bad+"/scout", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestSubmitAnalytics(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodPost, "/api/v1/admin/analytics-batch", `{"player_ids":[4,5,6]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[dto.SubmitResponse](t, w)
	assert.Equal(t, "queued", resp.Status)

	job, err := e.records.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.KindAnalytics, job.Kind)
	assert.Equal(t, int64(3), job.Total)
	assert.Equal(t, 3, e.queue.Len())
	assert.Equal(t, []jobs.Kind{jobs.KindAnalytics}, e.submitted)
}

func TestSubmitAnalytics_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing body", body: ""},
		{name: "no ids", body: `{}`},
		{name: "empty ids", body: `{"player_ids":[]}`},
		{name: "wrong type", body: `{"player_ids":"x"}`},
		{name: "negative id", body: `{"player_ids":[-2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)

			w := do(t, e.engine, http.MethodPost, "/api/v1/admin/analytics-batch", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, e.queue.Len())
			assert.Empty(t, e.submitted)
		})
	}
}

func TestGetJob(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodPost, "/api/v1/players/10/scout", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode[dto.SubmitResponse](t, w).JobID

	w = do(t, e.engine, http.MethodGet, "/api/v1/jobs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[dto.JobDTO](t, w)
	assert.Equal(t, id, got.JobID)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "scout_report", got.Kind)
	assert.Equal(t, testNow.Format(time.RFC3339), got.CreatedAt)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.EndedAt)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Error)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, field := range []string{"result", "error", "started_at", "ended_at"} {
		v, ok := raw[field]
		assert.True(t, ok, "field %s missing", field)
		assert.Nil(t, v, field)
	}
}

func TestGetJob_TerminalFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	w := do(t, e.engine, http.MethodPost, "/api/v1/players/10/scout", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode[dto.SubmitResponse](t, w).JobID

	require.NoError(t, e.records.Transition(ctx, id, jobs.Transition{To: jobs.StatusRunning, At: testNow}))
	require.NoError(t, e.records.Transition(ctx, id, jobs.Transition{To: jobs.StatusCompleted, At: testNow, Result: "A creative playmaker."}))

	w = do(t, e.engine, http.MethodGet, "/api/v1/jobs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[dto.JobDTO](t, w)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "A creative playmaker.", *got.Result)
	assert.Nil(t, got.Error)
	require.NotNil(t, got.EndedAt)
}

func TestGetJob_Errors(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodGet, "/api/v1/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, e.engine, http.MethodGet, "/api/v1/jobs/5b1f5c2e-7d0a-4d8e-9a55-6b3f1d2c9e10", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job not found", decode[dto.ErrorResponse](t, w).Error)
}

type failingService struct{ err error }

func (f failingService) SubmitRefresh(context.Context, []int64) (*jobs.Job, error) { return nil, f.err }
func (f failingService) SubmitScout(context.Context, int64) (*jobs.Job, error)     { return nil, f.err }
func (f failingService) SubmitAnalytics(context.Context, []int64) (*jobs.Job, error) {
	return nil, f.err
}
func (f failingService) Status(context.Context, string) (*jobs.Job, error) { return nil, f.err }

func TestErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "store unavailable", err: fmt.Errorf("create job record: %w", jobs.ErrStoreUnavailable), want: http.StatusServiceUnavailable},
		{name: "invalid input", err: jobs.ErrInvalidInput, want: http.StatusBadRequest},
		{name: "unexpected", err: errors.New("broker closed"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := router.SetupRouter(&handler.Dependencies{
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
				Jobs:   failingService{err: tt.err},
			})

			w := do(t, engine, http.MethodPost, "/api/v1/players/3/scout", "")
			assert.Equal(t, tt.want, w.Code)

			w = do(t, engine, http.MethodPost, "/api/v1/admin/refresh-market-values", `{"player_ids":[1]}`)
			assert.Equal(t, tt.want, w.Code)

			w = do(t, engine, http.MethodPost, "/api/v1/admin/analytics-batch", `{"player_ids":[1]}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	healthy := router.SetupRouter(&handler.Dependencies{
		Logger:      logger,
		Jobs:        failingService{},
		ServiceName: "scout-jobs-api",
		HealthCheck: map[string]handler.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	})
	w := do(t, healthy, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "scout-jobs-api", body["service"])

	unhealthy := router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Jobs:   failingService{},
		HealthCheck: map[string]handler.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		},
	})
	w = do(t, unhealthy, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body = decode[map[string]any](t, w)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["postgres"])
	assert.Equal(t, "connection refused", deps["redis"])
}

func TestMetricsAndCORS(t *testing.T) {
	e := newEnv(t)

	w := do(t, e.engine, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, e.engine, http.MethodOptions, "/api/v1/jobs/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
