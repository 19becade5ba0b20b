package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/sectorcast/internal/audit"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/pkg/logger"
)

// Reporter 성과 리포트 조회
type Reporter interface {
	Report(ctx context.Context, periodDays int) ([]contracts.AccuracyStats, error)
	SectorReport(ctx context.Context, sector string, periodDays int) (*audit.SectorReport, error)
	Summary(ctx context.Context, periodDays int) (*audit.Summary, error)
}

// ReportHandler handles report API endpoints
type ReportHandler struct {
	reporter      Reporter
	defaultPeriod int
	logger        *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reporter Reporter, defaultPeriod int, log *logger.Logger) *ReportHandler {
	if defaultPeriod <= 0 {
		defaultPeriod = 30
	}
	return &ReportHandler{reporter: reporter, defaultPeriod: defaultPeriod, logger: log}
}

// GetAccuracy returns daily accuracy history, newest first
// GET /api/reports/accuracy?period=30
func (h *ReportHandler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, h.defaultPeriod)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.reporter.Report(r.Context(), period)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period_days": period,
		"history":     rows,
	})
}

// GetSector returns one sector's resolved prediction summary
// GET /api/reports/sectors/{sector}?period=30
func (h *ReportHandler) GetSector(w http.ResponseWriter, r *http.Request) {
	sector := mux.Vars(r)["sector"]
	period, err := periodParam(r, h.defaultPeriod)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reporter.SectorReport(r.Context(), sector, period)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetSummary returns the combined report
// GET /api/reports/summary?period=30
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r, h.defaultPeriod)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.reporter.Summary(r.Context(), period)
	if err != nil {
		h.logger.WithError(err).WithField("period", period).Warn("Failed to build summary")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
