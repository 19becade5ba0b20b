package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/api/handlers"
	"github.com/wonny/sectorcast/internal/audit"
	"github.com/wonny/sectorcast/internal/backtest"
	"github.com/wonny/sectorcast/internal/brain"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/pkg/config"
	"github.com/wonny/sectorcast/pkg/logger"
	"github.com/wonny/sectorcast/pkg/metrics"
)

type fakePipeline struct {
	got brain.RunConfig
	err error
}

func (f *fakePipeline) Run(_ context.Context, cfg brain.RunConfig) (*brain.RunResult, error) {
	f.got = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &brain.RunResult{
		Date:            contracts.NormalizeDate(cfg.Date),
		CompletedStages: []string{brain.StagePredict},
		Predictions: &contracts.PredictionBatch{Predictions: []contracts.SectorPrediction{
			{Sector: "Tech", PredictedChange: 1.5, Confidence: 0.9},
		}},
	}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type testServer struct {
	handler  http.Handler
	pipeline *fakePipeline
	store    *backtest.MemoryStore
	rec      *metrics.Recorder
}

func newTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()
	log := logger.NewWithWriter(&config.Config{LogLevel: "error", LogFormat: "json"}, &bytes.Buffer{})
	store := backtest.NewMemoryStore()
	tracker := backtest.NewTracker(store, backtest.DefaultConfig(), nil, zerolog.Nop())
	analyzer := audit.NewAnalyzer(store, nil, time.Minute, zerolog.Nop())
	pipeline := &fakePipeline{}
	rec := metrics.New()

	h := Handlers{
		Forecast: handlers.NewForecastHandler(pipeline, log),
		Backtest: handlers.NewBacktestHandler(tracker, log),
		Report:   handlers.NewReportHandler(analyzer, 30, log),
	}
	return &testServer{
		handler:  NewRouter(h, limiter, rec, log),
		pipeline: pipeline,
		store:    store,
		rec:      rec,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func today() string {
	return contracts.NormalizeDate(time.Now()).Format(contracts.DateLayout)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRecordResolveAccuracyFlow(t *testing.T) {
	s := newTestServer(t, nil)
	date := today()

	for _, p := range []struct {
		sector    string
		predicted float64
	}{{"Tech", 2}, {"Energy", -1}} {
		w := s.do(t, http.MethodPost, "/api/predictions", map[string]interface{}{
			"date": date, "sector": p.sector, "predicted_change": p.predicted, "confidence": 0.8,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/api/outcomes", map[string]interface{}{
		"date": date, "sector": "Tech", "actual_change": 3.0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res backtest.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Prediction)
	assert.True(t, *res.Prediction.IsCorrect)

	// 다른 실제값으로 재확정은 충돌
	w = s.do(t, http.MethodPost, "/api/outcomes", map[string]interface{}{
		"date": date, "sector": "Tech", "actual_change": -3.0,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/accuracy/"+date, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var stats contracts.AccuracyStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalPredictions)
	assert.Equal(t, 1.0, stats.AccuracyRate)

	w = s.do(t, http.MethodGet, "/api/reports/accuracy?period=7", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"period_days":7`)

	w = s.do(t, http.MethodGet, "/api/reports/sectors/Tech", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sr audit.SectorReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sr))
	assert.Equal(t, 1, sr.TotalPredictions)

	w = s.do(t, http.MethodGet, "/api/reports/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAccuracy_NoResolved(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/accuracy/"+today(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/accuracy/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports_InsufficientHistory(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/reports/accuracy", "/api/reports/sectors/Tech", "/api/reports/summary"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := s.do(t, http.MethodGet, "/api/reports/accuracy?period=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordPrediction_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing sector", map[string]interface{}{"date": today(), "predicted_change": 1.0, "confidence": 0.5}},
		{"missing prediction", map[string]interface{}{"date": today(), "sector": "Tech", "confidence": 0.5}},
		{"bad date", map[string]interface{}{"date": "2024/01/01", "sector": "Tech", "predicted_change": 1.0}},
		{"confidence above one", map[string]interface{}{"date": today(), "sector": "Tech", "predicted_change": 1.0, "confidence": 1.5}},
		{"unknown field", map[string]interface{}{"date": today(), "sector": "Tech", "predicted_change": 1.0, "extra": true}},
		{"malformed json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/predictions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestRecordPrediction_OmittedFieldsKeepZeroValue(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/predictions", map[string]interface{}{
		"date": today(), "sector": "Tech", "predicted_change": 0.0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec contracts.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 0.0, rec.PredictedChange)
	assert.Equal(t, 0.0, rec.Confidence)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"date":"2024-05-02","record":true,"dataset":{"sectors":{"Tech":{"T1":[
		{"date":"2024-05-01T00:00:00Z","close":11},
		{"date":"2024-04-30T00:00:00Z","close":10}]}}}}`
	w := s.do(t, http.MethodPost, "/api/predict", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := s.pipeline.got
	assert.True(t, got.Record)
	assert.False(t, got.Train)
	assert.Equal(t, "2024-05-02", got.Date.Format(contracts.DateLayout))
	bars := got.Dataset.Sectors["Tech"]["T1"]
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Close, "bars are sorted by date")

	var res brain.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Predictions)
	assert.Equal(t, "Tech", res.Predictions.Predictions[0].Sector)
}

func TestPredict_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/predict", `{"record":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/predict", `{"dataset":{"sectors":{}}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.pipeline.err = fmt.Errorf("predict stage: %w", contracts.ErrModelNotTrained)
	w = s.do(t, http.MethodPost, "/api/predict", `{"dataset":{"sectors":{"Tech":{}}}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.pipeline.err = errors.New("boom")
	w = s.do(t, http.MethodPost, "/api/predict", `{"dataset":{"sectors":{"Tech":{}}}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, denyAll{})

	w := s.do(t, http.MethodGet, "/api/reports/summary", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// 헬스 체크는 제한 대상 아님
	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(1, 2)
	ctx := context.Background()

	ok1, _ := l.Allow(ctx, "a")
	ok2, _ := l.Allow(ctx, "a")
	ok3, _ := l.Allow(ctx, "a")
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)

	okB, _ := l.Allow(ctx, "b")
	assert.True(t, okB, "buckets are per client")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/health", nil)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "/health"))
}
