package ml

import "fmt"

// ModelKind 후보 모델 종류
// 선언 순서가 곧 동점 시 우선순위
type ModelKind string

const (
	KindRandomForest        ModelKind = "random_forest"
	KindGradientBoosting    ModelKind = "gradient_boosting"
	KindRegularizedBoosting ModelKind = "regularized_boosting" // L2 리프 수축 (xgboost 계열)
	KindHistogramBoosting   ModelKind = "histogram_boosting"   // 구간화 분할 탐색 (lightgbm 계열)
)

// Kinds 고정 후보 목록 (선언 순서)
func Kinds() []ModelKind {
	return []ModelKind{
		KindRandomForest,
		KindGradientBoosting,
		KindRegularizedBoosting,
		KindHistogramBoosting,
	}
}

// Regressor 회귀 모델 공통 인터페이스
type Regressor interface {
	Kind() ModelKind
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
	// Score 결정계수 R²
	Score(X [][]float64, y []float64) float64
	// FeatureImportances 분할 이득 기반 중요도 (합 1), 제공하지 않으면 nil
	FeatureImportances() []float64
}

// Params 후보 모델 하이퍼파라미터
type Params struct {
	NEstimators    int     `yaml:"n_estimators" json:"n_estimators" default:"100"`
	LearningRate   float64 `yaml:"learning_rate" json:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth" json:"max_depth"` // 0 = 제한 없음
	MinSamplesLeaf int     `yaml:"min_samples_leaf" json:"min_samples_leaf" default:"1"`
	Lambda         float64 `yaml:"lambda" json:"lambda"`     // 리프 L2
	MaxBins        int     `yaml:"max_bins" json:"max_bins"` // 0 = 정확 분할
	Seed           int64   `yaml:"seed" json:"seed" default:"42"`
}

// DefaultParams 종류별 기본 하이퍼파라미터
func DefaultParams(kind ModelKind) Params {
	switch kind {
	case KindRandomForest:
		return Params{NEstimators: 100, MinSamplesLeaf: 1, Seed: 42}
	case KindGradientBoosting:
		return Params{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, MinSamplesLeaf: 1, Seed: 42}
	case KindRegularizedBoosting:
		return Params{NEstimators: 100, LearningRate: 0.3, MaxDepth: 6, MinSamplesLeaf: 1, Lambda: 1, Seed: 42}
	case KindHistogramBoosting:
		return Params{NEstimators: 100, LearningRate: 0.1, MaxDepth: 5, MinSamplesLeaf: 20, MaxBins: 255, Seed: 42}
	default:
		return Params{}
	}
}

// New 종류에 맞는 회귀 모델 생성
func New(kind ModelKind, p Params) (Regressor, error) {
	switch kind {
	case KindRandomForest:
		return NewForest(p), nil
	case KindGradientBoosting, KindRegularizedBoosting, KindHistogramBoosting:
		return NewBooster(kind, p), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}
