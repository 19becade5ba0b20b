package jobs

import (
	"context"
	"fmt"
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

// PredictionJob predicts every sector from the latest dataset and records the batch
// Schedule: 평일 08:30 (장 시작 전)
type PredictionJob struct {
	pipeline    Pipeline
	datasetPath string // 파일 경로 또는 http(s) URL
	opener      features.Opener
	retrain     bool
	schedule    string
	now         func() time.Time
	logger      *logger.Logger
}

// NewPredictionJob creates a new prediction job
func NewPredictionJob(pipeline Pipeline, datasetPath string, retrain bool, schedule string, log *logger.Logger) *PredictionJob {
	if schedule == "" {
		schedule = "0 30 8 * * 1-5"
	}
	return &PredictionJob{
		pipeline:    pipeline,
		datasetPath: datasetPath,
		retrain:     retrain,
		schedule:    schedule,
		now:         time.Now,
		logger:      log,
	}
}

// WithOpener sets the HTTP client used for URL datasets
func (j *PredictionJob) WithOpener(o features.Opener) *PredictionJob {
	j.opener = o
	return j
}

// Name returns the job name
func (j *PredictionJob) Name() string {
	return "daily_prediction"
}

// Schedule returns the cron schedule
func (j *PredictionJob) Schedule() string {
	return j.schedule
}

// Run loads the dataset and runs the pipeline with recording
func (j *PredictionJob) Run(ctx context.Context) error {
	ds, err := features.LoadDatasetFrom(ctx, j.datasetPath, j.opener)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	result, err := j.pipeline.Run(ctx, brain.RunConfig{
		Date:    j.now(),
		Dataset: ds,
		Train:   j.retrain,
		Record:  true,
	})
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"date":     result.Date.Format(contracts.DateLayout),
		"recorded": len(result.Recorded),
	}
	if result.Predictions != nil {
		fields["failed"] = len(result.Predictions.Failures)
	}
	j.logger.WithFields(fields).Info("Scheduled prediction completed")
	return nil
}
