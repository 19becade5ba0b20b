package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/ml"
)

// ArtifactFormatVersion 아티팩트 포맷 버전
const ArtifactFormatVersion = 1

// ErrArtifactNotFound 저장된 아티팩트 없음
var ErrArtifactNotFound = errors.New("model artifact not found")

// ArtifactStore 아티팩트 영속화
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, a *Artifact) error
	LoadArtifact(ctx context.Context, sector string) (*Artifact, error)
}

// Artifact 섹터 모델 직렬화 포맷
type Artifact struct {
	FormatVersion   int                        `json:"format_version"`
	Version         int                        `json:"version,omitempty"`
	Sector          string                     `json:"sector"`
	ModelKind       ml.ModelKind               `json:"model_kind"`
	Model           json.RawMessage            `json:"model"`
	Scaler          ml.StandardScaler          `json:"scaler"`
	Columns         []string                   `json:"columns"`
	Candidates      []contracts.CandidateScore `json:"candidates"`
	Importance      map[string]float64         `json:"importance,omitempty"`
	TrainingSamples int                        `json:"training_samples"`
	TestSamples     int                        `json:"test_samples"`
	TrainedAt       time.Time                  `json:"trained_at"`
}

// NewArtifact 모델을 아티팩트로 변환
func NewArtifact(m *SectorModel) (*Artifact, error) {
	raw, err := ml.Marshal(m.Model)
	if err != nil {
		return nil, err
	}
	a := &Artifact{
		FormatVersion:   ArtifactFormatVersion,
		Sector:          m.Sector,
		ModelKind:       m.Kind,
		Model:           raw,
		Columns:         m.Columns,
		Candidates:      m.Candidates,
		Importance:      m.Importance,
		TrainingSamples: m.TrainingSamples,
		TestSamples:     m.TestSamples,
		TrainedAt:       m.TrainedAt,
	}
	if m.Scaler != nil {
		a.Scaler = *m.Scaler
	}
	return a, nil
}

// SectorModel 아티팩트에서 모델 복원
func (a *Artifact) SectorModel() (*SectorModel, error) {
	if a.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("unsupported artifact format version %d", a.FormatVersion)
	}
	if len(a.Scaler.Mean) != len(a.Columns) {
		return nil, fmt.Errorf("scaler width %d does not match %d columns", len(a.Scaler.Mean), len(a.Columns))
	}
	model, err := ml.Unmarshal(a.ModelKind, a.Model)
	if err != nil {
		return nil, err
	}
	scaler := a.Scaler
	return &SectorModel{
		Sector:          a.Sector,
		Kind:            a.ModelKind,
		Model:           model,
		Scaler:          &scaler,
		Columns:         a.Columns,
		Candidates:      a.Candidates,
		Importance:      a.Importance,
		TrainingSamples: a.TrainingSamples,
		TestSamples:     a.TestSamples,
		TrainedAt:       a.TrainedAt,
	}, nil
}
