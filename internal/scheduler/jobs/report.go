package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/sectorcast/internal/audit"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/scheduler"
	"github.com/wonny/sectorcast/pkg/logger"
)

// SummaryBuilder 종합 리포트 생성기
type SummaryBuilder interface {
	Summary(ctx context.Context, periodDays int) (*audit.Summary, error)
}

// ReportWarmupJob builds the summary report so the cache is warm for readers
type ReportWarmupJob struct {
	reports    SummaryBuilder
	periodDays int
	logger     *logger.Logger
}

// NewReportWarmupJob creates a new report warmup job
func NewReportWarmupJob(reports SummaryBuilder, periodDays int, log *logger.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{reports: reports, periodDays: periodDays, logger: log}
}

// Name returns the job name
func (j *ReportWarmupJob) Name() string {
	return "report_warmup"
}

// Schedule returns the cron schedule (every 15 minutes)
func (j *ReportWarmupJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run builds the summary report
func (j *ReportWarmupJob) Run(ctx context.Context) error {
	s, err := j.reports.Summary(ctx, j.periodDays)
	if errors.Is(err, contracts.ErrInsufficientHistory) {
		return scheduler.ErrSkipped
	}
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"period_days": j.periodDays,
		"predictions": s.Overall.TotalPredictions,
	}).Debug("Summary report refreshed")
	return nil
}
