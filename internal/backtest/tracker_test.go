package backtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/contracts"
)

var testDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newTracker() (*Tracker, *MemoryStore) {
	store := NewMemoryStore()
	return NewTracker(store, DefaultConfig(), nil, zerolog.Nop()), store
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 3, 1, -1, -3}

	assert.Equal(t, 3.0, Percentile(values, 75))
	assert.Equal(t, -1.0, Percentile(values, 25))
	assert.InDelta(t, 2.125, Percentile([]float64{-0.5, 3}, 75), 1e-12)
	assert.Equal(t, []float64{5, 3, 1, -1, -3}, values, "input is not reordered")

	th := CohortThresholds(values)
	assert.Equal(t, 3.0, th.High)
	assert.Equal(t, -1.0, th.Low)
	assert.False(t, th.Fallback)

	single := CohortThresholds([]float64{0.4})
	assert.True(t, single.Fallback)
	assert.Equal(t, 2.0, single.High)
	assert.Equal(t, -2.0, single.Low)
}

func TestTracker_RecordAndResolve(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	rec, err := tr.Record(ctx, testDate, "Tech", 2.5, 0.8)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPending, rec.Status())
	assert.Nil(t, rec.ActualChange)
	assert.Nil(t, rec.IsCorrect)

	res, err := tr.Resolve(ctx, testDate, "Tech", 3.0)
	require.NoError(t, err)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, contracts.StatusResolved, res.Prediction.Status())
	assert.True(t, *res.Prediction.IsCorrect)
	assert.True(t, res.Thresholds.Fallback, "single sector uses fixed cutoffs")
	assert.True(t, res.Performance.IsTopGainer)
	assert.False(t, res.Performance.IsTopLoser)

	stored, err := store.GetPrediction(ctx, testDate, "Tech")
	require.NoError(t, err)
	assert.Equal(t, 3.0, *stored.ActualChange)
}

func TestTracker_ConfiguredFallback(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.FallbackHigh, cfg.FallbackLow = 5, -5
	tr := NewTracker(NewMemoryStore(), cfg, nil, zerolog.Nop())

	res, err := tr.Resolve(ctx, testDate, "Tech", 3.0)
	require.NoError(t, err)
	assert.True(t, res.Thresholds.Fallback)
	assert.Equal(t, 5.0, res.Thresholds.High)
	assert.Equal(t, -5.0, res.Thresholds.Low)
	assert.False(t, res.Performance.IsTopGainer, "3.0 is below the configured cutoff")
	assert.Nil(t, res.Prediction)
}

func TestTracker_ResolveCohortFlags(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	for _, s := range []struct {
		sector string
		actual float64
	}{{"A", 5}, {"B", 3}, {"C", 1}, {"D", -1}, {"E", -3}} {
		_, err := tr.Resolve(ctx, testDate, s.sector, s.actual)
		require.NoError(t, err)
	}

	perf, err := store.ListSectorPerformance(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, perf, 5)

	// 마지막 섹터는 전체 코호트 기준, 앞선 섹터 플래그는 재계산되지 않음
	last := perf[4]
	assert.Equal(t, "E", last.Sector)
	assert.True(t, last.IsTopLoser)

	res, err := tr.Resolve(ctx, testDate, "C", 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Thresholds.High)
	assert.Equal(t, -1.0, res.Thresholds.Low)
	assert.False(t, res.Performance.IsTopGainer)
	assert.False(t, res.Performance.IsTopLoser)
}

func TestTracker_ResolveWithoutPrediction(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	res, err := tr.Resolve(ctx, testDate, "Energy", -2.5)
	require.NoError(t, err)
	assert.Nil(t, res.Prediction)
	assert.True(t, res.Performance.IsTopLoser)

	perf, err := store.ListSectorPerformance(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, perf, 1, "sector performance is still recorded")
}

func TestTracker_ResolveReplay(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Record(ctx, testDate, "Tech", -1.0, 0.5)
	require.NoError(t, err)
	first, err := tr.Resolve(ctx, testDate, "Tech", 0.7)
	require.NoError(t, err)
	assert.False(t, *first.Prediction.IsCorrect)

	again, err := tr.Resolve(ctx, testDate, "Tech", 0.7)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Performance, again.Performance)
	assert.Equal(t, *first.Prediction.ActualChange, *again.Prediction.ActualChange)

	_, err = tr.Resolve(ctx, testDate, "Tech", 1.2)
	assert.ErrorIs(t, err, contracts.ErrAlreadyResolved)
}

func TestTracker_RecordUpsert(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	first, err := tr.Record(ctx, testDate, "Tech", 1.0, 0.5)
	require.NoError(t, err)
	second, err := tr.Record(ctx, testDate, "Tech", -1.0, 0.9)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same key is replaced, not duplicated")

	preds, err := store.ListPredictions(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, -1.0, preds[0].PredictedChange)

	_, err = tr.Resolve(ctx, testDate, "Tech", -0.3)
	require.NoError(t, err)
	_, err = tr.Record(ctx, testDate, "Tech", 4.0, 0.9)
	assert.ErrorIs(t, err, contracts.ErrAlreadyResolved)
}

func TestTracker_RecordValidation(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Record(ctx, testDate, "", 1, 0.5)
	assert.Error(t, err)
	_, err = tr.Record(ctx, testDate, "Tech", 1, 1.5)
	assert.Error(t, err)
}

func TestTracker_ZeroIsItsOwnDirection(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Record(ctx, testDate, "Flat", 0, 0.5)
	require.NoError(t, err)
	_, err = tr.Record(ctx, testDate, "Up", 0, 0.5)
	require.NoError(t, err)

	flat, err := tr.Resolve(ctx, testDate, "Flat", 0)
	require.NoError(t, err)
	assert.True(t, *flat.Prediction.IsCorrect)

	up, err := tr.Resolve(ctx, testDate, "Up", 0.1)
	require.NoError(t, err)
	assert.False(t, *up.Prediction.IsCorrect)
}

func TestTracker_CalculateDailyAccuracy(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	cases := []struct {
		sector     string
		predicted  float64
		confidence float64
		actual     float64
	}{
		{"A", 2.0, 0.8, 3.0},
		{"B", 1.0, 0.6, -0.5},
		{"C", -1.0, 0.4, -1.5},
		{"D", -2.0, 0.2, -4.0},
	}
	for _, c := range cases {
		_, err := tr.Record(ctx, testDate, c.sector, c.predicted, c.confidence)
		require.NoError(t, err)
	}
	// 확정되지 않은 예측은 집계에서 제외
	_, err := tr.Record(ctx, testDate, "E", 5.0, 1.0)
	require.NoError(t, err)
	for _, c := range cases {
		_, err := tr.Resolve(ctx, testDate, c.sector, c.actual)
		require.NoError(t, err)
	}

	stats, err := tr.CalculateDailyAccuracy(ctx, testDate)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalPredictions)
	assert.Equal(t, 3, stats.CorrectPredictions)
	assert.Equal(t, 0.75, stats.AccuracyRate)
	assert.InDelta(t, 0.5, stats.AvgConfidence, 1e-12)
	assert.Equal(t, 0.5, stats.TopGainerAccuracy)
	assert.Equal(t, 1.0, stats.TopLoserAccuracy)
	assert.NotZero(t, stats.ID)

	again, err := tr.CalculateDailyAccuracy(ctx, testDate)
	require.NoError(t, err)
	assert.NotEqual(t, stats.ID, again.ID, "accuracy rows are append-only")

	history, err := store.ListAccuracyStats(ctx, testDate, testDate)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTracker_CalculateDailyAccuracyNoResolved(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Record(ctx, testDate, "Tech", 1, 0.5)
	require.NoError(t, err)

	stats, err := tr.CalculateDailyAccuracy(ctx, testDate)
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, contracts.ErrNoResolvedPredictions)
}

func TestTracker_ConcurrentResolves(t *testing.T) {
	ctx := context.Background()
	tr, store := newTracker()

	const sectors = 20
	var wg sync.WaitGroup
	for i := 0; i < sectors; i++ {
		sector := fmt.Sprintf("S%02d", i)
		_, err := tr.Record(ctx, testDate, sector, 1, 0.5)
		require.NoError(t, err)

		wg.Add(1)
		go func(actual float64) {
			defer wg.Done()
			_, err := tr.Resolve(ctx, testDate, sector, actual)
			assert.NoError(t, err)
		}(float64(i - sectors/2))
	}
	wg.Wait()

	preds, err := store.ListResolvedPredictions(ctx, "", testDate, testDate)
	require.NoError(t, err)
	assert.Len(t, preds, sectors)
	perf, err := store.ListSectorPerformance(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, perf, sectors)
}

func TestMemoryStore_NormalizesDates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	intraday := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)

	_, err := store.UpsertPrediction(ctx, &contracts.PredictionRecord{Date: intraday, Sector: "Tech", PredictedChange: 1, Confidence: 0.5})
	require.NoError(t, err)

	got, err := store.GetPrediction(ctx, testDate.Add(9*time.Hour), "Tech")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Date.Equal(testDate))

	preds, err := store.ListPredictions(ctx, intraday)
	require.NoError(t, err)
	assert.Len(t, preds, 1)

	require.NoError(t, store.SaveResolution(ctx, nil, contracts.SectorPerformanceRecord{Date: intraday, Sector: "Tech", ActualChange: 1}))
	perf, err := store.ListSectorPerformance(ctx, testDate.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Len(t, perf, 1)

	require.NoError(t, store.InsertAccuracyStats(ctx, &contracts.AccuracyStats{Date: intraday, TotalPredictions: 1}))
	stats, err := store.ListAccuracyStats(ctx, intraday, intraday)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}
