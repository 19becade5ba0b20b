package ml

import "fmt"

// Booster 잔차 적합 그래디언트 부스팅 (제곱 오차)
// Lambda > 0 이면 리프 가중치 수축, MaxBins > 0 이면 구간화 분할
type Booster struct {
	KindName    ModelKind `json:"kind"`
	Params      Params    `json:"params"`
	Init        float64   `json:"init"`
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"importances"`
}

// NewBooster 부스팅 모델 생성
func NewBooster(kind ModelKind, p Params) *Booster {
	d := DefaultParams(kind)
	if p.NEstimators <= 0 {
		p.NEstimators = d.NEstimators
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	return &Booster{KindName: kind, Params: p}
}

func (b *Booster) Kind() ModelKind { return b.KindName }

// Fit 평균에서 시작해 잔차에 트리를 순차 적합
func (b *Booster) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	switch b.KindName {
	case KindGradientBoosting, KindRegularizedBoosting, KindHistogramBoosting:
	default:
		return fmt.Errorf("booster does not support kind %q", b.KindName)
	}

	n := len(X)
	var sum float64
	for _, v := range y {
		sum += v
	}
	b.Init = sum / float64(n)

	var edges [][]float64
	if b.Params.MaxBins > 0 {
		edges = histogramEdges(X, b.Params.MaxBins)
	}
	cfg := treeConfig{maxDepth: b.Params.MaxDepth, minSamplesLeaf: b.Params.MinSamplesLeaf, lambda: b.Params.Lambda}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = b.Init
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	raw := make([]float64, len(X[0]))
	resid := make([]float64, n)
	b.Trees = make([]*Tree, 0, b.Params.NEstimators)
	for m := 0; m < b.Params.NEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		t := buildTree(X, resid, idx, cfg, edges, raw)
		b.Trees = append(b.Trees, t)
		for i, row := range X {
			pred[i] += b.Params.LearningRate * t.PredictRow(row)
		}
	}
	b.Importances = normalize(raw)
	return nil
}

func (b *Booster) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		v := b.Init
		for _, t := range b.Trees {
			v += b.Params.LearningRate * t.PredictRow(row)
		}
		out[i] = v
	}
	return out
}

func (b *Booster) Score(X [][]float64, y []float64) float64 {
	return R2(y, b.Predict(X))
}

func (b *Booster) FeatureImportances() []float64 { return b.Importances }
