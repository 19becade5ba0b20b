package contracts

import "time"

// 지표 컬럼 키 (수집기가 미리 계산해서 전달)
const (
	IndicatorMA5        = "MA5"
	IndicatorMA10       = "MA10"
	IndicatorMA20       = "MA20"
	IndicatorMA30       = "MA30"
	IndicatorRSI        = "RSI"
	IndicatorMACD       = "MACD"
	IndicatorMACDSignal = "MACD_signal"
	IndicatorKDJK       = "KDJ_K"
	IndicatorKDJD       = "KDJ_D"
	IndicatorKDJJ       = "KDJ_J"
	IndicatorBollMid    = "BOLL_mid"
	IndicatorBollUpper  = "BOLL_upper"
	IndicatorBollLower  = "BOLL_lower"
	IndicatorWR         = "WR"
	IndicatorChangePct  = "Change_pct"
)

// Bar 종목 시계열의 한 행 (OHLCV + 사전 계산된 지표)
type Bar struct {
	Date       time.Time          `json:"date"`
	Open       float64            `json:"open"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Close      float64            `json:"close"`
	Volume     float64            `json:"volume"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// Indicator 지표 값 조회 (없으면 ok=false)
func (b Bar) Indicator(key string) (float64, bool) {
	if b.Indicators == nil {
		return 0, false
	}
	v, ok := b.Indicators[key]
	return v, ok
}

// SentimentAggregate 종목별 여론 집계
type SentimentAggregate struct {
	InstrumentID  string  `json:"instrument_id"`
	AvgScore      float64 `json:"avg_sentiment_score"`
	PositiveRatio float64 `json:"sentiment_ratio"`
	Count         int     `json:"total_count"`
}

// SectorSeries 섹터 하나의 종목별 시계열 (시간순 정렬)
type SectorSeries map[string][]Bar
