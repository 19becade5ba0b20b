package features

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
)

// SyntheticOptions 샘플 데이터셋 생성 옵션
type SyntheticOptions struct {
	Sectors     []string
	Instruments int // 섹터당 종목 수
	Days        int
	Start       time.Time
	Seed        int64
}

// Synthetic 랜덤 워크 기반 샘플 데이터셋 (데모/테스트용)
// 같은 옵션이면 같은 데이터셋
func Synthetic(opts SyntheticOptions) *Dataset {
	if opts.Instruments < 1 {
		opts.Instruments = 3
	}
	if opts.Days < 2 {
		opts.Days = 90
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	ds := &Dataset{Sectors: make(map[string]contracts.SectorSeries, len(opts.Sectors))}
	for si, sector := range opts.Sectors {
		drift := (float64(si%5) - 2) * 0.1
		series := make(contracts.SectorSeries, opts.Instruments)
		for i := 0; i < opts.Instruments; i++ {
			id := fmt.Sprintf("%s-%02d", sector, i+1)
			series[id] = syntheticBars(rng, opts.Start, opts.Days, drift)
			ds.Sentiment = append(ds.Sentiment, contracts.SentimentAggregate{
				InstrumentID:  id,
				AvgScore:      rng.Float64()*2 - 1,
				PositiveRatio: rng.Float64(),
				Count:         rng.Intn(50),
			})
		}
		ds.Sectors[sector] = series
	}
	return ds
}

func syntheticBars(rng *rand.Rand, start time.Time, days int, drift float64) []contracts.Bar {
	bars := make([]contracts.Bar, days)
	closes := make([]float64, days)
	price := 50 + rng.Float64()*100

	for i := range bars {
		prev := price
		price *= 1 + (drift+rng.NormFloat64())/100
		closes[i] = price

		spread := price * 0.01 * (1 + rng.Float64())
		bars[i] = contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   prev,
			High:   math.Max(prev, price) + spread,
			Low:    math.Min(prev, price) - spread,
			Close:  price,
			Volume: 1e5 * (1 + rng.Float64()),
			Indicators: map[string]float64{
				contracts.IndicatorChangePct: (price - prev) / prev * 100,
			},
		}
		ind := bars[i].Indicators
		for _, w := range []struct {
			key string
			n   int
		}{{contracts.IndicatorMA5, 5}, {contracts.IndicatorMA10, 10}, {contracts.IndicatorMA20, 20}, {contracts.IndicatorMA30, 30}} {
			if i+1 >= w.n {
				ind[w.key] = mean(closes[i+1-w.n : i+1])
			}
		}
		if i+1 >= 20 {
			mid := ind[contracts.IndicatorMA20]
			sd := sampleStd(closes[i-19 : i+1])
			ind[contracts.IndicatorBollMid] = mid
			ind[contracts.IndicatorBollUpper] = mid + 2*sd
			ind[contracts.IndicatorBollLower] = mid - 2*sd
		}
		ind[contracts.IndicatorRSI] = 30 + rng.Float64()*40
		ind[contracts.IndicatorMACD] = rng.NormFloat64()
		ind[contracts.IndicatorMACDSignal] = rng.NormFloat64()
		k, d := rng.Float64()*100, rng.Float64()*100
		ind[contracts.IndicatorKDJK] = k
		ind[contracts.IndicatorKDJD] = d
		ind[contracts.IndicatorKDJJ] = 3*k - 2*d
		ind[contracts.IndicatorWR] = -rng.Float64() * 100
	}
	return bars
}
