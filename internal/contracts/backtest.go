package contracts

import "time"

// PredictionStatus 예측 레코드 상태
type PredictionStatus string

const (
	StatusPending  PredictionStatus = "PENDING"
	StatusResolved PredictionStatus = "RESOLVED"
)

// PredictionRecord 예측 기록
// ⭐ SSOT: ActualChange/IsCorrect는 Resolved 상태에서만 값을 가진다
type PredictionRecord struct {
	ID              int64     `json:"id"`
	Date            time.Time `json:"date"`
	Sector          string    `json:"sector"`
	PredictedChange float64   `json:"predicted_change"` // %
	Confidence      float64   `json:"confidence"`       // 0~1
	ActualChange    *float64  `json:"actual_change"`    // %, nil = 미확정
	IsCorrect       *bool     `json:"is_correct"`
	CreatedAt       time.Time `json:"created_at"`
}

// Status 현재 상태
func (p PredictionRecord) Status() PredictionStatus {
	if p.ActualChange != nil {
		return StatusResolved
	}
	return StatusPending
}

// SectorPerformanceRecord 섹터 실제 성과
type SectorPerformanceRecord struct {
	Date         time.Time `json:"date"`
	Sector       string    `json:"sector"`
	ActualChange float64   `json:"actual_change"`
	IsTopGainer  bool      `json:"is_top_gainer"`
	IsTopLoser   bool      `json:"is_top_loser"`
}

// AccuracyStats 일별 정확도 통계 (append-only)
type AccuracyStats struct {
	ID                 int64     `json:"id"`
	Date               time.Time `json:"date"`
	TotalPredictions   int       `json:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	AccuracyRate       float64   `json:"accuracy_rate"`
	AvgConfidence      float64   `json:"avg_confidence"`
	TopGainerAccuracy  float64   `json:"top_gainer_accuracy"`
	TopLoserAccuracy   float64   `json:"top_loser_accuracy"`
	CreatedAt          time.Time `json:"created_at"`
}

// Thresholds 당일 상위/하위 컷오프
type Thresholds struct {
	High     float64 `json:"high"` // 75 분위
	Low      float64 `json:"low"`  // 25 분위
	Cohort   int     `json:"cohort"`
	Fallback bool    `json:"fallback"`
}
