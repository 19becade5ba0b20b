package audit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/pkg/redis"
)

const hotSectorLimit = 10

// HistorySource 백테스트 이력 조회
type HistorySource interface {
	ListAccuracyStats(ctx context.Context, from, to time.Time) ([]contracts.AccuracyStats, error)
	ListResolvedPredictions(ctx context.Context, sector string, from, to time.Time) ([]contracts.PredictionRecord, error)
}

// Analyzer 예측 성과 집계
// ⭐ SSOT: 리포트 집계 로직은 여기서만
type Analyzer struct {
	source   HistorySource
	cache    *redis.Cache // nil 이면 캐시 안 함
	cacheTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewAnalyzer 새 분석기 생성
func NewAnalyzer(source HistorySource, cache *redis.Cache, cacheTTL time.Duration, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
		log:      log.With().Str("component", "audit.analyzer").Logger(),
	}
}

// window 오늘 포함 최근 periodDays일
func (a *Analyzer) window(periodDays int) (time.Time, time.Time, error) {
	if periodDays <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("period must be positive, got %d", periodDays)
	}
	to := contracts.NormalizeDate(a.now())
	return to.AddDate(0, 0, -periodDays), to, nil
}

// cached 캐시 조회, 없으면 fn 결과를 저장
func cached[T any](ctx context.Context, a *Analyzer, key string, fn func() (T, error)) (T, error) {
	if a.cache == nil {
		return fn()
	}
	var out T
	err := a.cache.GetOrSet(ctx, key, &out, a.cacheTTL, func() (interface{}, error) {
		return fn()
	})
	return out, err
}

// Report 기간 내 일별 정확도 이력 (최신순)
func (a *Analyzer) Report(ctx context.Context, periodDays int) ([]contracts.AccuracyStats, error) {
	from, to, err := a.window(periodDays)
	if err != nil {
		return nil, err
	}

	return cached(ctx, a, redis.AccuracyReportKey(to.Format(contracts.DateLayout), periodDays), func() ([]contracts.AccuracyStats, error) {
		rows, err := a.source.ListAccuracyStats(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("list accuracy stats: %w", err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("last %d days: %w", periodDays, contracts.ErrInsufficientHistory)
		}
		return rows, nil
	})
}

// SectorReport 섹터 Resolved 예측 요약
func (a *Analyzer) SectorReport(ctx context.Context, sector string, periodDays int) (*SectorReport, error) {
	from, to, err := a.window(periodDays)
	if err != nil {
		return nil, err
	}

	key := redis.SectorReportKey(sector, to.Format(contracts.DateLayout), periodDays)
	return cached(ctx, a, key, func() (*SectorReport, error) {
		preds, err := a.source.ListResolvedPredictions(ctx, sector, from, to)
		if err != nil {
			return nil, fmt.Errorf("list resolved predictions: %w", err)
		}
		if len(preds) == 0 {
			return nil, fmt.Errorf("sector %s, last %d days: %w", sector, periodDays, contracts.ErrInsufficientHistory)
		}

		r := summarizeSector(preds)
		r.Sector = sector
		r.PeriodDays = periodDays
		r.From, r.To = from, to

		a.log.Debug().
			Str("sector", sector).
			Int("predictions", r.TotalPredictions).
			Float64("accuracy_rate", r.AccuracyRate).
			Msg("sector report built")
		return r, nil
	})
}

func summarizeSector(preds []contracts.PredictionRecord) *SectorReport {
	r := &SectorReport{TotalPredictions: len(preds)}
	var posCorrect, negCorrect int
	var absErr, sqErr, sumPred, sumActual, sumConf float64

	for _, p := range preds {
		actual := *p.ActualChange
		if p.IsCorrect != nil && *p.IsCorrect {
			r.CorrectPredictions++
		}
		// 0 예측은 별도 부호라 방향별 집계에서 제외
		hit := contracts.DirectionCorrect(p.PredictedChange, actual)
		switch contracts.Sign(p.PredictedChange) {
		case 1:
			r.PositivePredictions++
			if hit {
				posCorrect++
			}
		case -1:
			r.NegativePredictions++
			if hit {
				negCorrect++
			}
		}
		d := p.PredictedChange - actual
		absErr += math.Abs(d)
		sqErr += d * d
		sumPred += p.PredictedChange
		sumActual += actual
		sumConf += p.Confidence
	}

	n := float64(len(preds))
	r.AccuracyRate = float64(r.CorrectPredictions) / n
	r.PositiveAccuracy = ratio(posCorrect, r.PositivePredictions)
	r.NegativeAccuracy = ratio(negCorrect, r.NegativePredictions)
	r.MAE = absErr / n
	r.RMSE = math.Sqrt(sqErr / n)
	r.AvgPredicted = sumPred / n
	r.AvgActual = sumActual / n
	r.AvgConfidence = sumConf / n
	return r
}

func ratio(hit, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(hit) / float64(total)
	return &v
}

// Summary 종합 리포트 (전체 통계, 추이, 활발한 섹터, 개선 제안)
func (a *Analyzer) Summary(ctx context.Context, periodDays int) (*Summary, error) {
	from, to, err := a.window(periodDays)
	if err != nil {
		return nil, err
	}

	return cached(ctx, a, redis.SummaryReportKey(to.Format(contracts.DateLayout), periodDays), func() (*Summary, error) {
		trend, err := a.source.ListAccuracyStats(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("list accuracy stats: %w", err)
		}
		preds, err := a.source.ListResolvedPredictions(ctx, "", from, to)
		if err != nil {
			return nil, fmt.Errorf("list resolved predictions: %w", err)
		}
		if len(trend) == 0 && len(preds) == 0 {
			return nil, fmt.Errorf("last %d days: %w", periodDays, contracts.ErrInsufficientHistory)
		}

		s := &Summary{
			PeriodDays:  periodDays,
			From:        from,
			To:          to,
			Overall:     overall(preds),
			Trend:       trend,
			HotSectors:  hotSectors(preds, hotSectorLimit),
			Suggestions: Suggest(trend),
			GeneratedAt: a.now(),
		}

		a.log.Info().
			Int("period_days", periodDays).
			Int("predictions", s.Overall.TotalPredictions).
			Int("trend_rows", len(trend)).
			Int("suggestions", len(s.Suggestions)).
			Msg("summary report built")
		return s, nil
	})
}

func overall(preds []contracts.PredictionRecord) OverallStats {
	o := OverallStats{TotalPredictions: len(preds)}
	if len(preds) == 0 {
		return o
	}
	sectors := make(map[string]bool)
	var conf float64
	for _, p := range preds {
		if p.IsCorrect != nil && *p.IsCorrect {
			o.CorrectPredictions++
		}
		conf += p.Confidence
		sectors[p.Sector] = true
	}
	o.AccuracyRate = float64(o.CorrectPredictions) / float64(len(preds))
	o.AvgConfidence = conf / float64(len(preds))
	o.SectorsCounted = len(sectors)
	return o
}

// hotSectors 예측 수 내림차순, 동률이면 정확도 내림차순 상위 limit개
func hotSectors(preds []contracts.PredictionRecord, limit int) []SectorActivity {
	type acc struct {
		n, correct        int
		potential, confid float64
	}
	by := make(map[string]*acc)
	for _, p := range preds {
		s, ok := by[p.Sector]
		if !ok {
			s = &acc{}
			by[p.Sector] = s
		}
		s.n++
		if p.IsCorrect != nil && *p.IsCorrect {
			s.correct++
		}
		s.potential += math.Abs(p.PredictedChange)
		s.confid += p.Confidence
	}

	out := make([]SectorActivity, 0, len(by))
	for sector, s := range by {
		out = append(out, SectorActivity{
			Sector:         sector,
			Predictions:    s.n,
			AccuracyRate:   float64(s.correct) / float64(s.n),
			TotalPotential: s.potential,
			AvgConfidence:  s.confid / float64(s.n),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Predictions != out[j].Predictions {
			return out[i].Predictions > out[j].Predictions
		}
		if out[i].AccuracyRate != out[j].AccuracyRate {
			return out[i].AccuracyRate > out[j].AccuracyRate
		}
		return out[i].Sector < out[j].Sector
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
