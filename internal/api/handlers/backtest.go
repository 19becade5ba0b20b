package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/sectorcast/internal/backtest"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/pkg/logger"
)

// Tracker 예측 기록/확정/정확도 계산
type Tracker interface {
	Record(ctx context.Context, date time.Time, sector string, predicted, confidence float64) (*contracts.PredictionRecord, error)
	Resolve(ctx context.Context, date time.Time, sector string, actual float64) (*backtest.Resolution, error)
	CalculateDailyAccuracy(ctx context.Context, date time.Time) (*contracts.AccuracyStats, error)
}

// BacktestHandler handles backtest API endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	tracker Tracker
	logger  *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(tracker Tracker, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{tracker: tracker, logger: log}
}

// RecordRequest 예측 기록 요청
type RecordRequest struct {
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Sector          string   `json:"sector" validate:"required"`
	PredictedChange *float64 `json:"predicted_change" validate:"required"`
	Confidence      float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// OutcomeRequest 실제 등락률 확정 요청
type OutcomeRequest struct {
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Sector       string   `json:"sector" validate:"required"`
	ActualChange *float64 `json:"actual_change" validate:"required"`
}

// RecordPrediction stores a pending prediction
// POST /api/predictions
func (h *BacktestHandler) RecordPrediction(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if !readAndValidate(w, r, &req) {
		return
	}
	date, _ := contracts.ParseDate(req.Date)

	rec, err := h.tracker.Record(r.Context(), date, req.Sector, *req.PredictedChange, req.Confidence)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"date":   req.Date,
			"sector": req.Sector,
		}).Warn("Failed to record prediction")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

// ResolveOutcome resolves a prediction with the realized change
// POST /api/outcomes
func (h *BacktestHandler) ResolveOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if !readAndValidate(w, r, &req) {
		return
	}
	date, _ := contracts.ParseDate(req.Date)

	res, err := h.tracker.Resolve(r.Context(), date, req.Sector, *req.ActualChange)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"date":   req.Date,
			"sector": req.Sector,
		}).Warn("Failed to resolve outcome")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// CalculateAccuracy computes and stores the day's accuracy
// POST /api/accuracy/{date}
func (h *BacktestHandler) CalculateAccuracy(w http.ResponseWriter, r *http.Request) {
	date, err := contracts.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.tracker.CalculateDailyAccuracy(r.Context(), date)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, stats)
}
