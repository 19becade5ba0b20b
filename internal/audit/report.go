package audit

import (
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
)

// SectorReport 섹터 예측 성과 요약
type SectorReport struct {
	Sector             string    `json:"sector"`
	PeriodDays         int       `json:"period_days"`
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	TotalPredictions   int       `json:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	AccuracyRate       float64   `json:"accuracy_rate"`

	// 방향별 정확도 (0 예측 제외), 해당 방향 예측이 없으면 nil
	PositivePredictions int      `json:"positive_predictions"`
	PositiveAccuracy    *float64 `json:"positive_accuracy"`
	NegativePredictions int      `json:"negative_predictions"`
	NegativeAccuracy    *float64 `json:"negative_accuracy"`

	MAE           float64 `json:"mae"`
	RMSE          float64 `json:"rmse"`
	AvgPredicted  float64 `json:"avg_predicted_change"`
	AvgActual     float64 `json:"avg_actual_change"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// OverallStats 기간 전체 통계
type OverallStats struct {
	TotalPredictions   int     `json:"total_predictions"`
	CorrectPredictions int     `json:"correct_predictions"`
	AccuracyRate       float64 `json:"accuracy_rate"`
	AvgConfidence      float64 `json:"avg_confidence"`
	SectorsCounted     int     `json:"sectors_counted"`
}

// SectorActivity 섹터별 예측 활동
type SectorActivity struct {
	Sector         string  `json:"sector"`
	Predictions    int     `json:"prediction_count"`
	AccuracyRate   float64 `json:"accuracy"`
	TotalPotential float64 `json:"total_potential"` // |예측 등락률| 합
	AvgConfidence  float64 `json:"avg_confidence"`
}

// Suggestion 규칙 기반 개선 제안
type Suggestion struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Summary 종합 리포트
type Summary struct {
	PeriodDays  int                       `json:"period_days"`
	From        time.Time                 `json:"from"`
	To          time.Time                 `json:"to"`
	Overall     OverallStats              `json:"overall"`
	Trend       []contracts.AccuracyStats `json:"trend"`
	HotSectors  []SectorActivity          `json:"hot_sectors"`
	Suggestions []Suggestion              `json:"suggestions"`
	GeneratedAt time.Time                 `json:"generated_at"`
}
