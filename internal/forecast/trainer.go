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
	"github.com/wonny/sectorcast/internal/ml"
	"github.com/wonny/sectorcast/pkg/metrics"
)

// Candidate 후보 모델 생성기
type Candidate struct {
	Kind ml.ModelKind
	// New 호출마다 새 인스턴스 반환 (저장된 모델과 공유 금지)
	New func() ml.Regressor
}

// DefaultCandidates 고정 후보 목록 (선언 순서), params에 없는 종류는 기본값
func DefaultCandidates(params map[ml.ModelKind]ml.Params) []Candidate {
	out := make([]Candidate, 0, len(ml.Kinds()))
	for _, kind := range ml.Kinds() {
		p, ok := params[kind]
		if !ok {
			p = ml.DefaultParams(kind)
		}
		out = append(out, Candidate{
			Kind: kind,
			New: func() ml.Regressor {
				r, _ := ml.New(kind, p)
				return r
			},
		})
	}
	return out
}

// TrainerConfig 학습 설정
type TrainerConfig struct {
	TestRatio   float64
	Seed        int64
	Parallelism int
}

// DefaultTrainerConfig 기본 설정 (20% 홀드아웃, seed 42)
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{TestRatio: 0.2, Seed: 42, Parallelism: 4}
}

// TrainingSet 섹터 학습 입력
type TrainingSet struct {
	Matrix *features.Matrix
	Target []float64
}

// Trainer 섹터 모델 학습기
type Trainer struct {
	config     TrainerConfig
	candidates []Candidate
	store      *Store
	metrics    *metrics.Recorder
	log        zerolog.Logger
}

// NewTrainer 새 학습기 생성
func NewTrainer(store *Store, candidates []Candidate, config TrainerConfig, rec *metrics.Recorder, log zerolog.Logger) *Trainer {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	return &Trainer{
		config:     config,
		candidates: candidates,
		store:      store,
		metrics:    rec,
		log:        log.With().Str("component", "forecast.trainer").Logger(),
	}
}

// Train 후보 모델을 모두 학습해 R² 최고 모델로 섹터 항목 교체
func (t *Trainer) Train(ctx context.Context, sector string, m *features.Matrix, target []float64) (*contracts.TrainingResult, error) {
	start := time.Now()
	res, err := t.train(ctx, sector, m, target)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		if errors.Is(err, contracts.ErrTrainingDataInsufficient) {
			outcome = "insufficient"
		}
	}
	t.metrics.RecordTraining(sector, outcome, time.Since(start))
	return res, err
}

func (t *Trainer) train(ctx context.Context, sector string, m *features.Matrix, target []float64) (*contracts.TrainingResult, error) {
	X := m.NumericView()
	if len(X) < 2 {
		return nil, fmt.Errorf("sector %s: %d rows: %w", sector, len(X), contracts.ErrTrainingDataInsufficient)
	}
	if len(target) != len(X) {
		return nil, fmt.Errorf("sector %s: %d targets for %d rows", sector, len(target), len(X))
	}
	if isConstant(target) {
		return nil, fmt.Errorf("sector %s: constant target: %w", sector, contracts.ErrTrainingDataInsufficient)
	}

	// 스케일러는 이번 호출 데이터로만 적합
	scaler := &ml.StandardScaler{}
	Xs := scaler.FitTransform(X)

	trainIdx, testIdx := ml.TrainTestSplit(len(Xs), t.config.TestRatio, t.config.Seed)
	Xtr, ytr := ml.Rows(Xs, trainIdx), ml.Values(target, trainIdx)
	Xte, yte := ml.Rows(Xs, testIdx), ml.Values(target, testIdx)

	var (
		scores []contracts.CandidateScore
		fitted []ml.Regressor
	)
	for _, c := range t.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := c.New()
		if r == nil {
			continue
		}
		if err := r.Fit(Xtr, ytr); err != nil {
			t.log.Warn().Err(err).
				Str("sector", sector).
				Str("model", string(c.Kind)).
				Msg("candidate fit failed")
			continue
		}
		s := ml.Evaluate(r, Xte, yte)
		scores = append(scores, contracts.CandidateScore{Kind: string(c.Kind), Scores: s})
		fitted = append(fitted, r)

		t.log.Debug().
			Str("sector", sector).
			Str("model", string(c.Kind)).
			Float64("r2", s.R2).
			Float64("mse", s.MSE).
			Float64("direction_accuracy", s.DirectionAccuracy).
			Msg("candidate evaluated")
	}
	if len(fitted) == 0 {
		return nil, fmt.Errorf("sector %s: no candidate model could be fitted", sector)
	}

	best := SelectBest(scores)
	model := &SectorModel{
		Sector:          sector,
		Kind:            fitted[best].Kind(),
		Model:           fitted[best],
		Scaler:          scaler,
		Columns:         append([]string(nil), m.Columns...),
		Candidates:      scores,
		Importance:      importanceByColumn(m.Columns, fitted[best].FeatureImportances()),
		TrainingSamples: len(trainIdx),
		TestSamples:     len(testIdx),
		TrainedAt:       time.Now(),
	}
	t.store.Put(model)

	t.log.Info().
		Str("sector", sector).
		Str("best_model", string(model.Kind)).
		Float64("r2", scores[best].Scores.R2).
		Int("train_samples", model.TrainingSamples).
		Int("test_samples", model.TestSamples).
		Msg("sector model trained")

	return model.Result(), nil
}

// TrainAll 섹터 병렬 학습
// 실패는 섹터별로 수집하고 취소 시 지금까지의 결과와 ctx 에러를 함께 반환
func (t *Trainer) TrainAll(ctx context.Context, sets map[string]TrainingSet) (*contracts.TrainingBatch, error) {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu    sync.Mutex
		batch = &contracts.TrainingBatch{}
	)
	fail := func(sector string, err error) {
		mu.Lock()
		defer mu.Unlock()
		batch.Failures = append(batch.Failures, contracts.SectorFailure{Sector: sector, Reason: err.Error()})
	}

	g := &errgroup.Group{}
	g.SetLimit(t.config.Parallelism)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			fail(name, err)
			continue
		}
		set := sets[name]
		g.Go(func() error {
			res, err := t.Train(ctx, name, set.Matrix, set.Target)
			if err != nil {
				t.log.Warn().Err(err).Str("sector", name).Msg("sector training failed")
				fail(name, err)
				return nil
			}
			mu.Lock()
			batch.Results = append(batch.Results, *res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batch.Results, func(i, j int) bool { return batch.Results[i].Sector < batch.Results[j].Sector })
	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].Sector < batch.Failures[j].Sector })

	t.log.Info().
		Int("trained", len(batch.Results)).
		Int("failed", len(batch.Failures)).
		Msg("training batch completed")

	return batch, ctx.Err()
}

// SelectBest 테스트 R² 최고 후보의 위치
// 동점이면 먼저 선언된 후보, NaN은 최하위
func SelectBest(scores []contracts.CandidateScore) int {
	best := -1
	bestR2 := math.Inf(-1)
	for i, s := range scores {
		r2 := s.Scores.R2
		if math.IsNaN(r2) {
			r2 = math.Inf(-1)
		}
		if best < 0 || r2 > bestR2 {
			best, bestR2 = i, r2
		}
	}
	return best
}

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func importanceByColumn(cols []string, imp []float64) map[string]float64 {
	if len(imp) != len(cols) {
		return nil
	}
	out := make(map[string]float64, len(cols))
	for i, c := range cols {
		out[c] = imp[i]
	}
	return out
}
