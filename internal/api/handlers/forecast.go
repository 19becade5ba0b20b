package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/sectorcast/internal/brain"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/pkg/logger"
)

// Pipeline 학습/예측/기록 실행기
type Pipeline interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// ForecastHandler handles prediction API endpoints
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	pipeline Pipeline
	now      func() time.Time
	logger   *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(pipeline Pipeline, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{pipeline: pipeline, now: time.Now, logger: log}
}

// PredictRequest 예측 요청
type PredictRequest struct {
	Dataset *features.Dataset `json:"dataset" validate:"required"`
	Date    string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Train   bool              `json:"train"`
	Record  bool              `json:"record"`
}

// Predict runs the pipeline over the posted dataset
// POST /api/predict
func (h *ForecastHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if !readAndValidate(w, r, &req) {
		return
	}
	if err := req.Dataset.Normalize(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	date := h.now()
	if req.Date != "" {
		date, _ = contracts.ParseDate(req.Date)
	}

	result, err := h.pipeline.Run(r.Context(), brain.RunConfig{
		Date:    date,
		Dataset: req.Dataset,
		Train:   req.Train,
		Record:  req.Record,
	})
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"train":  req.Train,
			"record": req.Record,
		}).Error("Pipeline run failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
