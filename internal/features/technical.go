package features

import (
	"math"

	"github.com/wonny/sectorcast/internal/contracts"
)

var nan = math.NaN()

// technicalFeatures 최신 행 기준 기술적 특징
// 지표가 없거나 창 길이가 부족하면 NaN (배치 평균으로 대체됨)
func technicalFeatures(bars []contracts.Bar, out map[string]float64) {
	last := bars[len(bars)-1]
	price := last.Close

	ind := func(key string) float64 {
		if v, ok := last.Indicator(key); ok {
			return v
		}
		return nan
	}

	ma5, ma10, ma20 := ind(contracts.IndicatorMA5), ind(contracts.IndicatorMA10), ind(contracts.IndicatorMA20)
	out[ColMA5] = ma5
	out[ColMA10] = ma10
	out[ColMA20] = ma20
	out[ColMA30] = ind(contracts.IndicatorMA30)
	out[ColPriceVsMA5] = ratioMinusOne(price, ma5)
	out[ColPriceVsMA10] = ratioMinusOne(price, ma10)
	out[ColPriceVsMA20] = ratioMinusOne(price, ma20)

	rsi := ind(contracts.IndicatorRSI)
	out[ColRSI] = rsi
	out[ColRSIOversold] = flag(rsi, func(v float64) bool { return v < 30 })
	out[ColRSIOverbought] = flag(rsi, func(v float64) bool { return v > 70 })

	macd, signal := ind(contracts.IndicatorMACD), ind(contracts.IndicatorMACDSignal)
	out[ColMACD] = macd
	out[ColMACDSignal] = signal
	out[ColMACDGoldenCross] = cross(macd, signal)

	k, d := ind(contracts.IndicatorKDJK), ind(contracts.IndicatorKDJD)
	out[ColKDJK] = k
	out[ColKDJD] = d
	out[ColKDJJ] = ind(contracts.IndicatorKDJJ)
	out[ColKDJGoldenCross] = cross(k, d)

	mid, upper, lower := ind(contracts.IndicatorBollMid), ind(contracts.IndicatorBollUpper), ind(contracts.IndicatorBollLower)
	out[ColBBPosition] = nan
	if width := upper - lower; width != 0 && !math.IsNaN(width) {
		out[ColBBPosition] = (price - lower) / width
	}
	out[ColBBSqueeze] = nan
	if mid != 0 && !math.IsNaN(mid) && !math.IsNaN(upper-lower) {
		out[ColBBSqueeze] = boolFloat((upper-lower)/mid < 0.05)
	}

	out[ColWR] = ind(contracts.IndicatorWR)

	vol := last.Volume
	volMA5 := vol
	if len(bars) >= 5 {
		volMA5 = meanVolume(bars[len(bars)-5:])
	}
	out[ColVolume] = vol
	out[ColVolumeMA5] = volMA5
	out[ColVolumeRatio] = 1
	if volMA5 != 0 {
		out[ColVolumeRatio] = vol / volMA5
	}

	out[ColDailyChange] = ind(contracts.IndicatorChangePct)
	if math.IsNaN(out[ColDailyChange]) && len(bars) >= 2 {
		out[ColDailyChange] = pctChange(bars[len(bars)-2].Close, price) * 100
	}

	changes := closeChanges(bars)
	out[ColPriceChangeMA5] = nan
	if len(changes) >= 5 {
		out[ColPriceChangeMA5] = mean(changes[len(changes)-5:])
	}
	out[ColVolatility] = sampleStd(changes)
}

// marketFeatures 가격 위치/모멘텀 특징
func marketFeatures(bars []contracts.Bar, out map[string]float64) {
	n := len(bars)
	last := bars[n-1]

	out[ColPricePosition10D] = nan
	if n >= 10 {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, b := range bars[n-10:] {
			hi = math.Max(hi, b.High)
			lo = math.Min(lo, b.Low)
		}
		if hi == lo {
			out[ColPricePosition10D] = 0.5
		} else {
			out[ColPricePosition10D] = (last.Close - lo) / (hi - lo)
		}
	}

	out[ColRelativeVolume] = out[ColVolumeRatio]

	out[ColMomentum5D] = nan
	if n >= 6 {
		out[ColMomentum5D] = pctChange(bars[n-6].Close, last.Close)
	}

	out[ColTrendStrength] = nan
	if n >= 11 {
		prev := meanClose(bars[n-11 : n-1])
		cur := meanClose(bars[n-10:])
		out[ColTrendStrength] = math.Abs(pctChange(prev, cur))
	}

	out[ColGap] = nan
	if last.Open != 0 {
		out[ColGap] = (last.Close - last.Open) / last.Open
	}
}

func ratioMinusOne(price, ma float64) float64 {
	if ma == 0 || math.IsNaN(ma) {
		return nan
	}
	return price/ma - 1
}

func flag(v float64, pred func(float64) bool) float64 {
	if math.IsNaN(v) {
		return nan
	}
	return boolFloat(pred(v))
}

func cross(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nan
	}
	return boolFloat(a > b)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return nan
	}
	return (to - from) / from
}

func closeChanges(bars []contracts.Bar) []float64 {
	var out []float64
	for i := 1; i < len(bars); i++ {
		if c := pctChange(bars[i-1].Close, bars[i].Close); !math.IsNaN(c) {
			out = append(out, c)
		}
	}
	return out
}

func meanVolume(bars []contracts.Bar) float64 {
	var s float64
	for _, b := range bars {
		s += b.Volume
	}
	return s / float64(len(bars))
}

func meanClose(bars []contracts.Bar) float64 {
	var s float64
	for _, b := range bars {
		s += b.Close
	}
	return s / float64(len(bars))
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return nan
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

// sampleStd 표본 표준편차 (2개 미만이면 NaN)
func sampleStd(v []float64) float64 {
	if len(v) < 2 {
		return nan
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(v)-1))
}
