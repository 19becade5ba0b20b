package backtest

import (
	"math"
	"sort"

	"github.com/wonny/sectorcast/internal/contracts"
)

const (
	fallbackHigh = 2.0
	fallbackLow  = -2.0
)

// Percentile 선형 보간 분위수 (p: 0~100)
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	v := append([]float64(nil), values...)
	sort.Float64s(v)

	pos := p / 100 * float64(len(v)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return v[lo]
	}
	return v[lo] + (v[hi]-v[lo])*(pos-float64(lo))
}

// CohortThresholds 당일 섹터 실제 등락률로 75/25 분위 컷오프 계산
// 2개 섹터 미만이면 ±2.0
func CohortThresholds(actuals []float64) contracts.Thresholds {
	if len(actuals) < 2 {
		return contracts.Thresholds{High: fallbackHigh, Low: fallbackLow, Cohort: len(actuals), Fallback: true}
	}
	return contracts.Thresholds{
		High:   Percentile(actuals, 75),
		Low:    Percentile(actuals, 25),
		Cohort: len(actuals),
	}
}
