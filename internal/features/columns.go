package features

// 특징 컬럼 (순서 고정)
const (
	ColMA5             = "ma5"
	ColMA10            = "ma10"
	ColMA20            = "ma20"
	ColMA30            = "ma30"
	ColPriceVsMA5      = "price_vs_ma5"
	ColPriceVsMA10     = "price_vs_ma10"
	ColPriceVsMA20     = "price_vs_ma20"
	ColRSI             = "rsi"
	ColRSIOversold     = "rsi_oversold"
	ColRSIOverbought   = "rsi_overbought"
	ColMACD            = "macd"
	ColMACDSignal      = "macd_signal"
	ColMACDGoldenCross = "macd_golden_cross"
	ColKDJK            = "kdj_k"
	ColKDJD            = "kdj_d"
	ColKDJJ            = "kdj_j"
	ColKDJGoldenCross  = "kdj_golden_cross"
	ColBBPosition      = "bb_position"
	ColBBSqueeze       = "bb_squeeze"
	ColWR              = "wr"
	ColVolume          = "volume"
	ColVolumeMA5       = "volume_ma5"
	ColVolumeRatio     = "volume_ratio"
	ColDailyChange     = "daily_change"
	ColPriceChangeMA5  = "price_change_ma5"
	ColVolatility      = "volatility"

	ColSentimentScore      = "sentiment_score"
	ColSentimentPosRatio   = "sentiment_positive_ratio"
	ColSentimentCount      = "sentiment_count"
	ColSentimentVolatility = "sentiment_volatility"

	ColPricePosition10D = "price_position_10d"
	ColRelativeVolume   = "relative_volume"
	ColMomentum5D       = "price_momentum_5d"
	ColTrendStrength    = "trend_strength"
	ColGap              = "gap_vs_open"
)

// Columns 특징 컬럼 목록 (모델 입력 순서)
func Columns() []string {
	return []string{
		ColMA5, ColMA10, ColMA20, ColMA30,
		ColPriceVsMA5, ColPriceVsMA10, ColPriceVsMA20,
		ColRSI, ColRSIOversold, ColRSIOverbought,
		ColMACD, ColMACDSignal, ColMACDGoldenCross,
		ColKDJK, ColKDJD, ColKDJJ, ColKDJGoldenCross,
		ColBBPosition, ColBBSqueeze,
		ColWR,
		ColVolume, ColVolumeMA5, ColVolumeRatio,
		ColDailyChange, ColPriceChangeMA5, ColVolatility,
		ColSentimentScore, ColSentimentPosRatio, ColSentimentCount, ColSentimentVolatility,
		ColPricePosition10D, ColRelativeVolume, ColMomentum5D, ColTrendStrength, ColGap,
	}
}
