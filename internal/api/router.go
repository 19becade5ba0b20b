package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/sectorcast/internal/api/handlers"
	"github.com/wonny/sectorcast/pkg/logger"
	"github.com/wonny/sectorcast/pkg/metrics"
)

// Handlers API 핸들러 묶음
type Handlers struct {
	Forecast *handlers.ForecastHandler
	Backtest *handlers.BacktestHandler
	Report   *handlers.ReportHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limiter Limiter, rec *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", rec.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Forecast
	api.HandleFunc("/predict", h.Forecast.Predict).Methods("POST")

	// Backtest
	api.HandleFunc("/predictions", h.Backtest.RecordPrediction).Methods("POST")
	api.HandleFunc("/outcomes", h.Backtest.ResolveOutcome).Methods("POST")
	api.HandleFunc("/accuracy/{date}", h.Backtest.CalculateAccuracy).Methods("POST")

	// Reports
	api.HandleFunc("/reports/accuracy", h.Report.GetAccuracy).Methods("GET")
	api.HandleFunc("/reports/sectors/{sector}", h.Report.GetSector).Methods("GET")
	api.HandleFunc("/reports/summary", h.Report.GetSummary).Methods("GET")

	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter, log))
	}

	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log, rec))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "sectorcast-api",
	})
}
