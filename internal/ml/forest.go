package ml

import (
	"errors"
	"math/rand"
)

// Forest 부트스트랩 랜덤 포레스트
type Forest struct {
	Params      Params    `json:"params"`
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"importances"`
}

// NewForest 포레스트 생성
func NewForest(p Params) *Forest {
	if p.NEstimators <= 0 {
		p.NEstimators = DefaultParams(KindRandomForest).NEstimators
	}
	return &Forest{Params: p}
}

func (f *Forest) Kind() ModelKind { return KindRandomForest }

// Fit 트리마다 복원추출 표본으로 학습
func (f *Forest) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(f.Params.Seed))
	cfg := treeConfig{maxDepth: f.Params.MaxDepth, minSamplesLeaf: f.Params.MinSamplesLeaf, lambda: f.Params.Lambda}

	raw := make([]float64, len(X[0]))
	f.Trees = make([]*Tree, 0, f.Params.NEstimators)
	idx := make([]int, len(X))
	for t := 0; t < f.Params.NEstimators; t++ {
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, buildTree(X, y, idx, cfg, nil, raw))
	}
	f.Importances = normalize(raw)
	return nil
}

// Predict 트리 평균
func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		return out
	}
	for i, row := range X {
		var s float64
		for _, t := range f.Trees {
			s += t.PredictRow(row)
		}
		out[i] = s / float64(len(f.Trees))
	}
	return out
}

func (f *Forest) Score(X [][]float64, y []float64) float64 {
	return R2(y, f.Predict(X))
}

func (f *Forest) FeatureImportances() []float64 { return f.Importances }

func checkShape(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("empty training matrix")
	}
	if len(X) != len(y) {
		return errors.New("row count does not match target length")
	}
	if len(X[0]) == 0 {
		return errors.New("training matrix has no columns")
	}
	return nil
}
