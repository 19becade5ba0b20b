package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/scheduler"
	"github.com/wonny/sectorcast/pkg/logger"
)

// AccuracyCalculator 일별 정확도 계산기
type AccuracyCalculator interface {
	CalculateDailyAccuracy(ctx context.Context, date time.Time) (*contracts.AccuracyStats, error)
}

// AccuracyJob computes the day's accuracy after the market close
// Schedule: 평일 17:00 (확정 입력 이후)
type AccuracyJob struct {
	calc     AccuracyCalculator
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewAccuracyJob creates a new accuracy job (schedule이 비어 있으면 평일 17:00)
func NewAccuracyJob(calc AccuracyCalculator, schedule string, log *logger.Logger) *AccuracyJob {
	if schedule == "" {
		schedule = "0 0 17 * * 1-5"
	}
	return &AccuracyJob{calc: calc, schedule: schedule, now: time.Now, logger: log}
}

// Name returns the job name
func (j *AccuracyJob) Name() string {
	return "daily_accuracy"
}

// Schedule returns the cron schedule
func (j *AccuracyJob) Schedule() string {
	return j.schedule
}

// Run executes the accuracy calculation for today
func (j *AccuracyJob) Run(ctx context.Context) error {
	date := contracts.NormalizeDate(j.now())

	stats, err := j.calc.CalculateDailyAccuracy(ctx, date)
	if errors.Is(err, contracts.ErrNoResolvedPredictions) {
		j.logger.WithField("date", date.Format(contracts.DateLayout)).Info("No resolved predictions, skipping accuracy")
		return scheduler.ErrSkipped
	}
	if err != nil {
		return fmt.Errorf("calculate accuracy: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":          date.Format(contracts.DateLayout),
		"total":         stats.TotalPredictions,
		"accuracy_rate": stats.AccuracyRate,
	}).Info("Scheduled accuracy calculation completed")
	return nil
}
