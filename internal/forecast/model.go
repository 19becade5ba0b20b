package forecast

import (
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/ml"
)

// SectorModel 섹터별 학습 결과 (불변, 교체만 가능)
type SectorModel struct {
	Sector          string
	Kind            ml.ModelKind
	Model           ml.Regressor
	Scaler          *ml.StandardScaler
	Columns         []string
	Candidates      []contracts.CandidateScore
	Importance      map[string]float64
	TrainingSamples int
	TestSamples     int
	TrainedAt       time.Time
}

// Result 학습 결과 요약
func (m *SectorModel) Result() *contracts.TrainingResult {
	return &contracts.TrainingResult{
		Sector:          m.Sector,
		BestModel:       string(m.Kind),
		Candidates:      append([]contracts.CandidateScore(nil), m.Candidates...),
		FeatureCount:    len(m.Columns),
		TrainingSamples: m.TrainingSamples,
		TestSamples:     m.TestSamples,
		TrainedAt:       m.TrainedAt,
	}
}
