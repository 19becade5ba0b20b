package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/pkg/metrics"
)

const (
	minConfidence = 0.2
	maxConfidence = 1.0
)

// Predictor 섹터 예측 생성기
type Predictor struct {
	store       *Store
	parallelism int
	metrics     *metrics.Recorder
	log         zerolog.Logger
}

// NewPredictor 새 예측기 생성
func NewPredictor(store *Store, parallelism int, rec *metrics.Recorder, log zerolog.Logger) *Predictor {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Predictor{
		store:       store,
		parallelism: parallelism,
		metrics:     rec,
		log:         log.With().Str("component", "forecast.predictor").Logger(),
	}
}

// Predict 행렬 첫 행(현재 스냅샷)으로 다음 기간 등락률 예측
func (p *Predictor) Predict(ctx context.Context, sector string, m *features.Matrix) (*contracts.SectorPrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := p.store.Get(sector)
	if model == nil {
		p.log.Warn().Str("sector", sector).Msg("no trained model for sector")
		p.metrics.RecordPrediction("not_trained")
		return nil, fmt.Errorf("sector %s: %w", sector, contracts.ErrModelNotTrained)
	}

	row := alignRow(model.Columns, m)
	scaled := model.Scaler.Transform([][]float64{row})
	predicted := model.Model.Predict(scaled)[0]

	pred := &contracts.SectorPrediction{
		Sector:          sector,
		PredictedChange: predicted,
		Confidence:      Confidence(m.MissingRatio()),
		ModelKind:       string(model.Kind),
		PredictedAt:     time.Now(),
	}
	p.metrics.RecordPrediction("ok")

	p.log.Debug().
		Str("sector", sector).
		Str("model", pred.ModelKind).
		Float64("predicted_change", pred.PredictedChange).
		Float64("confidence", pred.Confidence).
		Msg("prediction generated")

	return pred, nil
}

// PredictAll 섹터 병렬 예측, 예측 등락률 내림차순
// 섹터 실패는 격리되어 Failures에 기록된다
func (p *Predictor) PredictAll(ctx context.Context, matrices map[string]*features.Matrix) (*contracts.PredictionBatch, error) {
	names := make([]string, 0, len(matrices))
	for name := range matrices {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu    sync.Mutex
		batch = &contracts.PredictionBatch{}
	)
	fail := func(sector string, err error) {
		mu.Lock()
		defer mu.Unlock()
		batch.Failures = append(batch.Failures, contracts.SectorFailure{Sector: sector, Reason: err.Error()})
	}

	g := &errgroup.Group{}
	g.SetLimit(p.parallelism)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			fail(name, err)
			continue
		}
		m := matrices[name]
		g.Go(func() error {
			pred, err := p.Predict(ctx, name, m)
			if err != nil {
				if !errors.Is(err, contracts.ErrModelNotTrained) {
					p.metrics.RecordPrediction("error")
				}
				fail(name, err)
				return nil
			}
			mu.Lock()
			batch.Predictions = append(batch.Predictions, *pred)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(batch.Predictions, func(i, j int) bool {
		return batch.Predictions[i].PredictedChange > batch.Predictions[j].PredictedChange
	})
	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].Sector < batch.Failures[j].Sector })

	p.log.Info().
		Int("predicted", len(batch.Predictions)).
		Int("failed", len(batch.Failures)).
		Msg("prediction batch completed")

	return batch, ctx.Err()
}

// Confidence 데이터 완전성 기반 신뢰도 (통계적 신뢰구간 아님)
func Confidence(missingRatio float64) float64 {
	c := 0.2 + 0.8*(1-missingRatio)
	return math.Max(minConfidence, math.Min(maxConfidence, c))
}

// alignRow 학습 컬럼 순서로 첫 행 정렬, 없는 컬럼은 NaN
// 행이 없으면 전부 NaN (스케일 후 학습 평균)
func alignRow(columns []string, m *features.Matrix) []float64 {
	row := make([]float64, len(columns))
	for i := range row {
		row[i] = math.NaN()
	}
	if m.Len() == 0 {
		return row
	}
	for i, c := range columns {
		if j := m.ColumnIndex(c); j >= 0 {
			row[i] = m.Rows[0][j]
		}
	}
	return row
}
