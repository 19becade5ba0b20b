package pipelineconfig

import (
	"time"

	"github.com/wonny/sectorcast/internal/ml"
)

// Config 파이프라인 튜닝 설정 (YAML)
// ⭐ SSOT: 학습/예측/백테스트 파라미터는 이 구조체에서만 읽음
type Config struct {
	// 대상 섹터, 비어 있으면 데이터셋의 모든 섹터
	Sectors []string `yaml:"sectors" json:"sectors" validate:"dive,required"`

	Prediction PredictionConfig `yaml:"prediction" json:"prediction"`
	Training   TrainingConfig   `yaml:"training" json:"training"`
	Backtest   BacktestConfig   `yaml:"backtest" json:"backtest"`
	Reports    ReportsConfig    `yaml:"reports" json:"reports"`
}

// PredictionConfig 상위/하위 N 선정
type PredictionConfig struct {
	TopN    int `yaml:"top_n" json:"top_n" default:"3" validate:"min=1"`
	BottomN int `yaml:"bottom_n" json:"bottom_n" default:"3" validate:"min=1"`
}

// TrainingConfig 학습 설정
type TrainingConfig struct {
	Seed        int64        `yaml:"seed" json:"seed" default:"42"`
	TestRatio   float64      `yaml:"test_ratio" json:"test_ratio" default:"0.2" validate:"gt=0,lt=1"`
	Lookback    int          `yaml:"lookback" json:"lookback" default:"60" validate:"min=1"`
	Parallelism int          `yaml:"parallelism" json:"parallelism" default:"4" validate:"min=1,max=64"`
	Models      ModelsConfig `yaml:"models" json:"models"`
}

// ModelsConfig 후보 모델별 하이퍼파라미터
type ModelsConfig struct {
	RandomForest        ml.Params `yaml:"random_forest" json:"random_forest"`
	GradientBoosting    ml.Params `yaml:"gradient_boosting" json:"gradient_boosting"`
	RegularizedBoosting ml.Params `yaml:"regularized_boosting" json:"regularized_boosting"`
	HistogramBoosting   ml.Params `yaml:"histogram_boosting" json:"histogram_boosting"`
}

// BacktestConfig 섹터가 부족할 때 쓰는 컷오프 (%)
type BacktestConfig struct {
	FallbackHigh float64 `yaml:"fallback_high" json:"fallback_high" default:"2.0"`
	FallbackLow  float64 `yaml:"fallback_low" json:"fallback_low" default:"-2.0"`
}

// ReportsConfig 리포트 캐시
type ReportsConfig struct {
	CacheTTL          time.Duration `yaml:"cache_ttl" json:"cache_ttl" default:"5m" validate:"gt=0"`
	DefaultPeriodDays int           `yaml:"default_period_days" json:"default_period_days" default:"30" validate:"min=1"`
}

// Params 종류별 하이퍼파라미터
func (m ModelsConfig) Params() map[ml.ModelKind]ml.Params {
	return map[ml.ModelKind]ml.Params{
		ml.KindRandomForest:        m.RandomForest,
		ml.KindGradientBoosting:    m.GradientBoosting,
		ml.KindRegularizedBoosting: m.RegularizedBoosting,
		ml.KindHistogramBoosting:   m.HistogramBoosting,
	}
}

// SectorFilter 설정된 섹터만 남김 (설정이 비어 있으면 그대로)
func (c *Config) SectorFilter(names []string) []string {
	if len(c.Sectors) == 0 {
		return names
	}
	want := make(map[string]bool, len(c.Sectors))
	for _, s := range c.Sectors {
		want[s] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}
