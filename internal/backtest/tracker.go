package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/pkg/metrics"
)

// Config 트래커 설정
type Config struct {
	TopN    int // 상위 상승 예측 개수
	BottomN int // 하위 하락 예측 개수

	// 섹터가 2개 미만일 때 쓰는 컷오프
	FallbackHigh float64
	FallbackLow  float64
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{TopN: 3, BottomN: 3, FallbackHigh: fallbackHigh, FallbackLow: fallbackLow}
}

// Resolution 확정 결과
type Resolution struct {
	Prediction  *contracts.PredictionRecord       `json:"prediction,omitempty"` // 예측이 없었으면 nil
	Performance contracts.SectorPerformanceRecord `json:"performance"`
	Thresholds  contracts.Thresholds              `json:"thresholds"`
	Replayed    bool                              `json:"replayed"`
}

// Tracker 예측 기록/확정/정확도 계산
// ⭐ SSOT: (date, sector) 쓰기는 키 잠금으로 직렬화
type Tracker struct {
	store   Store
	config  Config
	locks   keyLocks
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewTracker 새 트래커 생성
func NewTracker(store Store, config Config, rec *metrics.Recorder, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		config:  config,
		metrics: rec,
		log:     log.With().Str("component", "backtest.tracker").Logger(),
	}
}

// Record Pending 예측 저장 (명시적 upsert)
func (t *Tracker) Record(ctx context.Context, date time.Time, sector string, predicted, confidence float64) (*contracts.PredictionRecord, error) {
	if sector == "" {
		return nil, errors.New("sector is required")
	}
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return nil, fmt.Errorf("invalid predicted change %v", predicted)
	}
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return nil, fmt.Errorf("confidence %v out of [0, 1]", confidence)
	}

	date = contracts.NormalizeDate(date)
	unlock := t.locks.lock(date, sector)
	defer unlock()

	rec := &contracts.PredictionRecord{
		Date:            date,
		Sector:          sector,
		PredictedChange: predicted,
		Confidence:      confidence,
	}
	replaced, err := t.store.UpsertPrediction(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	if replaced {
		t.log.Info().
			Str("date", date.Format(contracts.DateLayout)).
			Str("sector", sector).
			Float64("predicted_change", predicted).
			Msg("pending prediction replaced")
	}
	return rec, nil
}

// Resolve 실제 등락률로 예측 확정 + 당일 컷오프 재계산 + 섹터 성과 upsert
// 이미 확정된 다른 섹터의 플래그는 다시 계산하지 않는다
func (t *Tracker) Resolve(ctx context.Context, date time.Time, sector string, actual float64) (*Resolution, error) {
	if sector == "" {
		return nil, errors.New("sector is required")
	}
	if math.IsNaN(actual) || math.IsInf(actual, 0) {
		return nil, fmt.Errorf("invalid actual change %v", actual)
	}

	date = contracts.NormalizeDate(date)
	unlock := t.locks.lock(date, sector)
	defer unlock()

	pred, err := t.store.GetPrediction(ctx, date, sector)
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}

	// 1. Pending → Resolved
	if pred != nil && pred.Status() == contracts.StatusResolved {
		if *pred.ActualChange != actual {
			return nil, fmt.Errorf("%s %s resolved with %v: %w",
				sector, date.Format(contracts.DateLayout), *pred.ActualChange, contracts.ErrAlreadyResolved)
		}
		return t.replay(ctx, date, pred)
	}
	if pred == nil {
		t.log.Warn().
			Str("date", date.Format(contracts.DateLayout)).
			Str("sector", sector).
			Msg("no pending prediction to resolve")
	} else {
		correct := contracts.DirectionCorrect(pred.PredictedChange, actual)
		pred.ActualChange = &actual
		pred.IsCorrect = &correct
	}

	// 2. 당일 코호트 컷오프
	cohort, err := t.store.ListSectorPerformance(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list sector performance: %w", err)
	}
	actuals := []float64{actual}
	for _, p := range cohort {
		if p.Sector != sector {
			actuals = append(actuals, p.ActualChange)
		}
	}
	th := t.thresholds(actuals)

	// 3. 섹터 성과 upsert (1과 같은 트랜잭션)
	perf := contracts.SectorPerformanceRecord{
		Date:         date,
		Sector:       sector,
		ActualChange: actual,
		IsTopGainer:  actual >= th.High,
		IsTopLoser:   actual <= th.Low,
	}
	if err := t.store.SaveResolution(ctx, pred, perf); err != nil {
		return nil, fmt.Errorf("save resolution: %w", err)
	}

	if pred != nil {
		t.metrics.RecordResolution(*pred.IsCorrect)
	}
	t.log.Info().
		Str("date", date.Format(contracts.DateLayout)).
		Str("sector", sector).
		Float64("actual_change", actual).
		Float64("cutoff_high", th.High).
		Float64("cutoff_low", th.Low).
		Bool("fallback", th.Fallback).
		Bool("top_gainer", perf.IsTopGainer).
		Bool("top_loser", perf.IsTopLoser).
		Msg("prediction resolved")

	return &Resolution{Prediction: pred, Performance: perf, Thresholds: th}, nil
}

// replay 같은 실제값 재확정은 저장 없이 현재 상태 반환
func (t *Tracker) replay(ctx context.Context, date time.Time, pred *contracts.PredictionRecord) (*Resolution, error) {
	cohort, err := t.store.ListSectorPerformance(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list sector performance: %w", err)
	}
	res := &Resolution{Prediction: pred, Replayed: true}
	var actuals []float64
	for _, p := range cohort {
		actuals = append(actuals, p.ActualChange)
		if p.Sector == pred.Sector {
			res.Performance = p
		}
	}
	res.Thresholds = t.thresholds(actuals)

	t.log.Debug().
		Str("date", date.Format(contracts.DateLayout)).
		Str("sector", pred.Sector).
		Msg("resolution replayed")
	return res, nil
}

// CalculateDailyAccuracy 당일 Resolved 예측으로 정확도 계산 후 새 행 추가
func (t *Tracker) CalculateDailyAccuracy(ctx context.Context, date time.Time) (*contracts.AccuracyStats, error) {
	date = contracts.NormalizeDate(date)

	preds, err := t.store.ListPredictions(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	var resolved []contracts.PredictionRecord
	for _, p := range preds {
		if p.Status() == contracts.StatusResolved {
			resolved = append(resolved, p)
		}
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%s: %w", date.Format(contracts.DateLayout), contracts.ErrNoResolvedPredictions)
	}

	perf, err := t.store.ListSectorPerformance(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list sector performance: %w", err)
	}

	stats := &contracts.AccuracyStats{
		Date:             date,
		TotalPredictions: len(resolved),
	}
	var confSum float64
	for _, p := range resolved {
		if *p.IsCorrect {
			stats.CorrectPredictions++
		}
		confSum += p.Confidence
	}
	stats.AccuracyRate = float64(stats.CorrectPredictions) / float64(stats.TotalPredictions)
	stats.AvgConfidence = confSum / float64(stats.TotalPredictions)

	gainers, losers := make(map[string]bool), make(map[string]bool)
	for _, p := range perf {
		if p.IsTopGainer {
			gainers[p.Sector] = true
		}
		if p.IsTopLoser {
			losers[p.Sector] = true
		}
	}
	stats.TopGainerAccuracy = overlap(predictedTop(resolved, t.config.TopN), gainers)
	stats.TopLoserAccuracy = overlap(predictedBottom(resolved, t.config.BottomN), losers)

	if err := t.store.InsertAccuracyStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("insert accuracy stats: %w", err)
	}
	t.metrics.SetAccuracy(stats.AccuracyRate)

	t.log.Info().
		Str("date", date.Format(contracts.DateLayout)).
		Int("total", stats.TotalPredictions).
		Int("correct", stats.CorrectPredictions).
		Float64("accuracy_rate", stats.AccuracyRate).
		Float64("top_gainer_accuracy", stats.TopGainerAccuracy).
		Float64("top_loser_accuracy", stats.TopLoserAccuracy).
		Msg("daily accuracy calculated")

	return stats, nil
}

// predictedTop 예측 등락률 상위 n개 중 양수 예측 섹터
func predictedTop(preds []contracts.PredictionRecord, n int) []string {
	sorted := append([]contracts.PredictionRecord(nil), preds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PredictedChange > sorted[j].PredictedChange })

	var out []string
	for i := 0; i < len(sorted) && i < n; i++ {
		if sorted[i].PredictedChange > 0 {
			out = append(out, sorted[i].Sector)
		}
	}
	return out
}

// predictedBottom 예측 등락률 하위 n개 중 음수 예측 섹터
func predictedBottom(preds []contracts.PredictionRecord, n int) []string {
	sorted := append([]contracts.PredictionRecord(nil), preds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PredictedChange < sorted[j].PredictedChange })

	var out []string
	for i := 0; i < len(sorted) && i < n; i++ {
		if sorted[i].PredictedChange < 0 {
			out = append(out, sorted[i].Sector)
		}
	}
	return out
}

// overlap 예측 집합 중 실제 집합에 속한 비율 (예측 집합이 비면 0)
func overlap(predicted []string, actual map[string]bool) float64 {
	if len(predicted) == 0 {
		return 0
	}
	var hit int
	for _, s := range predicted {
		if actual[s] {
			hit++
		}
	}
	return float64(hit) / float64(len(predicted))
}

func (t *Tracker) thresholds(actuals []float64) contracts.Thresholds {
	th := CohortThresholds(actuals)
	if th.Fallback && (t.config.FallbackHigh != 0 || t.config.FallbackLow != 0) {
		th.High, th.Low = t.config.FallbackHigh, t.config.FallbackLow
	}
	return th
}
