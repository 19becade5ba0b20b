package audit

import "github.com/wonny/sectorcast/internal/contracts"

// 제안 코드
const (
	SuggestLowAccuracy    = "low_accuracy"
	SuggestStrongAccuracy = "strong_accuracy"
	SuggestLowConfidence  = "low_confidence"
	SuggestWeakTopGainer  = "weak_top_gainer"
	SuggestWeakTopLoser   = "weak_top_loser"
	SuggestNominal        = "nominal"
)

// Suggest 정확도 추이 평균 기반 개선 제안 (이력이 없으면 빈 목록)
func Suggest(trend []contracts.AccuracyStats) []Suggestion {
	if len(trend) == 0 {
		return []Suggestion{}
	}

	var acc, conf, gainer, loser float64
	for _, s := range trend {
		acc += s.AccuracyRate
		conf += s.AvgConfidence
		gainer += s.TopGainerAccuracy
		loser += s.TopLoserAccuracy
	}
	n := float64(len(trend))
	acc, conf, gainer, loser = acc/n, conf/n, gainer/n, loser/n

	var out []Suggestion
	if acc < 0.5 {
		out = append(out, Suggestion{SuggestLowAccuracy, "overall accuracy is low; review data quality and feature engineering"})
	}
	if acc > 0.7 {
		out = append(out, Suggestion{SuggestStrongAccuracy, "model performs well; consider predicting more frequently"})
	}
	if conf < 0.6 {
		out = append(out, Suggestion{SuggestLowConfidence, "average confidence is low; improve input data completeness"})
	}
	if gainer < 0.4 {
		out = append(out, Suggestion{SuggestWeakTopGainer, "top gainer accuracy is low; strengthen bullish signal detection"})
	}
	if loser < 0.4 {
		out = append(out, Suggestion{SuggestWeakTopLoser, "top loser accuracy is low; strengthen bearish signal detection"})
	}
	if len(out) == 0 {
		out = append(out, Suggestion{SuggestNominal, "model is operating normally"})
	}
	return out
}
