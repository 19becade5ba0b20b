package contracts

import "time"

// ModelScores 후보 모델 평가 점수 (홀드아웃 20%)
type ModelScores struct {
	MSE               float64 `json:"mse"`
	MAE               float64 `json:"mae"`
	R2                float64 `json:"r2"`
	DirectionAccuracy float64 `json:"direction_accuracy"`
}

// CandidateScore 후보별 점수
type CandidateScore struct {
	Kind   string      `json:"kind"`
	Scores ModelScores `json:"scores"`
}

// TrainingResult 섹터 학습 결과
type TrainingResult struct {
	Sector          string           `json:"sector"`
	BestModel       string           `json:"best_model"`
	Candidates      []CandidateScore `json:"candidates"`
	FeatureCount    int              `json:"feature_count"`
	TrainingSamples int              `json:"training_samples"`
	TestSamples     int              `json:"test_samples"`
	TrainedAt       time.Time        `json:"trained_at"`
}

// Best 선택된 모델의 점수
func (r TrainingResult) Best() (ModelScores, bool) {
	for _, c := range r.Candidates {
		if c.Kind == r.BestModel {
			return c.Scores, true
		}
	}
	return ModelScores{}, false
}

// SectorPrediction 섹터 예측 결과
type SectorPrediction struct {
	Sector          string    `json:"sector"`
	PredictedChange float64   `json:"predicted_change"`
	Confidence      float64   `json:"confidence"`
	ModelKind       string    `json:"model_kind"`
	PredictedAt     time.Time `json:"prediction_time"`
}

// SectorFailure 배치 작업 중 실패한 섹터
type SectorFailure struct {
	Sector string `json:"sector"`
	Reason string `json:"reason"`
}

// PredictionBatch 전체 섹터 예측 (예측 등락률 내림차순)
type PredictionBatch struct {
	Predictions []SectorPrediction `json:"predictions"`
	Failures    []SectorFailure    `json:"failures,omitempty"`
}

// TopGainers 상위 n개 (양수 예측만)
func (b PredictionBatch) TopGainers(n int) []SectorPrediction {
	var out []SectorPrediction
	for _, p := range b.Predictions {
		if len(out) >= n {
			break
		}
		if p.PredictedChange > 0 {
			out = append(out, p)
		}
	}
	return out
}

// TopLosers 하위 n개 (음수 예측만, 하락폭 큰 순)
func (b PredictionBatch) TopLosers(n int) []SectorPrediction {
	var out []SectorPrediction
	for i := len(b.Predictions) - 1; i >= 0 && len(out) < n; i-- {
		if b.Predictions[i].PredictedChange < 0 {
			out = append(out, b.Predictions[i])
		}
	}
	return out
}

// TrainingBatch 다중 섹터 학습 결과
type TrainingBatch struct {
	Results  []TrainingResult `json:"results"`
	Failures []SectorFailure  `json:"failures,omitempty"`
}
