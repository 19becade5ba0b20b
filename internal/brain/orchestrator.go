package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sectorcast/internal/backtest"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/internal/forecast"
	"github.com/wonny/sectorcast/internal/pipelineconfig"
	"github.com/wonny/sectorcast/pkg/logger"
)

// 파이프라인 단계
const (
	StageTrain   = "train"
	StagePredict = "predict"
	StageRecord  = "record"
)

// Orchestrator coordinates the sector pipeline (train → predict → record)
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	builder   *features.Builder
	trainer   *forecast.Trainer
	predictor *forecast.Predictor
	tracker   *backtest.Tracker // nil 이면 기록 단계 불가

	models    *forecast.Store
	artifacts forecast.ArtifactStore // nil 이면 메모리에만 유지

	config *pipelineconfig.Config
	logger *logger.Logger
}

// Components 오케스트레이터 구성 요소
type Components struct {
	Builder   *features.Builder
	Trainer   *forecast.Trainer
	Predictor *forecast.Predictor
	Tracker   *backtest.Tracker
	Models    *forecast.Store
	Artifacts forecast.ArtifactStore
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date    time.Time
	Dataset *features.Dataset
	Train   bool // 예측 전에 재학습
	Record  bool // 예측을 백테스트에 기록
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	Date            time.Time                    `json:"date"`
	CompletedStages []string                     `json:"completed_stages"`
	Training        *contracts.TrainingBatch     `json:"training,omitempty"`
	Predictions     *contracts.PredictionBatch   `json:"predictions,omitempty"`
	Recorded        []contracts.PredictionRecord `json:"recorded,omitempty"`
	RecordFailures  []contracts.SectorFailure    `json:"record_failures,omitempty"`
	Duration        time.Duration                `json:"duration"`
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(c Components, cfg *pipelineconfig.Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		builder:   c.Builder,
		trainer:   c.Trainer,
		predictor: c.Predictor,
		tracker:   c.Tracker,
		models:    c.Models,
		artifacts: c.Artifacts,
		config:    cfg,
		logger:    log,
	}
}

// Run executes the pipeline stages selected by config
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		Date:            contracts.NormalizeDate(config.Date),
		CompletedStages: make([]string, 0, 3),
	}

	o.logger.WithFields(map[string]interface{}{
		"date":    result.Date.Format(contracts.DateLayout),
		"sectors": len(config.Dataset.Sectors),
		"train":   config.Train,
		"record":  config.Record,
	}).Info("Starting pipeline run")

	if config.Train {
		batch, err := o.Train(ctx, config.Dataset)
		result.Training = batch
		if err != nil {
			return result, fmt.Errorf("%s stage: %w", StageTrain, err)
		}
		result.CompletedStages = append(result.CompletedStages, StageTrain)
	}

	batch, err := o.Predict(ctx, config.Dataset)
	result.Predictions = batch
	if err != nil {
		return result, fmt.Errorf("%s stage: %w", StagePredict, err)
	}
	result.CompletedStages = append(result.CompletedStages, StagePredict)

	if config.Record {
		recs, failures, err := o.Record(ctx, result.Date, batch)
		result.Recorded, result.RecordFailures = recs, failures
		if err != nil {
			return result, fmt.Errorf("%s stage: %w", StageRecord, err)
		}
		result.CompletedStages = append(result.CompletedStages, StageRecord)
	}

	result.Duration = time.Since(start)
	o.logger.WithFields(map[string]interface{}{
		"stages":   result.CompletedStages,
		"duration": result.Duration.String(),
	}).Info("Pipeline run completed")

	return result, nil
}

// Train 데이터셋의 섹터별 학습 후 아티팩트 저장
// 저장 실패는 해당 섹터 실패로 기록 (메모리 모델은 유지)
func (o *Orchestrator) Train(ctx context.Context, ds *features.Dataset) (*contracts.TrainingBatch, error) {
	sets := make(map[string]forecast.TrainingSet)
	for _, name := range o.config.SectorFilter(ds.SectorNames()) {
		m, target := o.builder.BuildTrainingSet(ds.Sectors[name], ds.Sentiment, o.config.Training.Lookback)
		sets[name] = forecast.TrainingSet{Matrix: m, Target: target}
	}
	if len(sets) == 0 {
		return nil, errors.New("no sectors to train")
	}

	batch, err := o.trainer.TrainAll(ctx, sets)
	if batch != nil {
		// 취소되어도 이미 학습된 섹터는 저장
		saveCtx := ctx
		if err != nil {
			saveCtx = context.WithoutCancel(ctx)
		}
		o.persist(saveCtx, batch)
	}
	return batch, err
}

func (o *Orchestrator) persist(ctx context.Context, batch *contracts.TrainingBatch) {
	if o.artifacts == nil {
		return
	}
	for _, r := range batch.Results {
		if err := o.models.Save(ctx, r.Sector, o.artifacts); err != nil {
			o.logger.WithError(err).WithField("sector", r.Sector).Warn("Failed to persist model artifact")
			batch.Failures = append(batch.Failures, contracts.SectorFailure{Sector: r.Sector, Reason: err.Error()})
		}
	}
}

// Predict 데이터셋 최신 시점 기준 전 섹터 예측
// 메모리에 없는 모델은 아티팩트에서 먼저 복원
func (o *Orchestrator) Predict(ctx context.Context, ds *features.Dataset) (*contracts.PredictionBatch, error) {
	names := o.config.SectorFilter(ds.SectorNames())
	if len(names) == 0 {
		return nil, errors.New("no sectors to predict")
	}
	o.ensureLoaded(ctx, names)

	matrices := make(map[string]*features.Matrix, len(names))
	for _, name := range names {
		m, _ := o.builder.Build(ds.Sectors[name], ds.Sentiment)
		matrices[name] = m
	}
	return o.predictor.PredictAll(ctx, matrices)
}

// Record 예측 배치를 date 기준으로 백테스트에 기록
func (o *Orchestrator) Record(ctx context.Context, date time.Time, batch *contracts.PredictionBatch) ([]contracts.PredictionRecord, []contracts.SectorFailure, error) {
	if o.tracker == nil {
		return nil, nil, errors.New("backtest tracker not configured")
	}
	var (
		recs     []contracts.PredictionRecord
		failures []contracts.SectorFailure
	)
	for _, p := range batch.Predictions {
		if err := ctx.Err(); err != nil {
			return recs, failures, err
		}
		rec, err := o.tracker.Record(ctx, date, p.Sector, p.PredictedChange, p.Confidence)
		if err != nil {
			o.logger.WithError(err).WithField("sector", p.Sector).Warn("Failed to record prediction")
			failures = append(failures, contracts.SectorFailure{Sector: p.Sector, Reason: err.Error()})
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, failures, nil
}

func (o *Orchestrator) ensureLoaded(ctx context.Context, sectors []string) {
	if o.artifacts == nil {
		return
	}
	var missing []string
	for _, s := range sectors {
		if o.models.Get(s) == nil {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return
	}
	for sector, err := range o.models.LoadAll(ctx, missing, o.artifacts) {
		if !errors.Is(err, forecast.ErrArtifactNotFound) {
			o.logger.WithError(err).WithField("sector", sector).Warn("Failed to load model artifact")
		}
	}
}
