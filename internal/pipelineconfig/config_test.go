package pipelineconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/ml"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Prediction.TopN)
	assert.Equal(t, 3, cfg.Prediction.BottomN)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.InDelta(t, 0.2, cfg.Training.TestRatio, 1e-12)
	assert.Equal(t, 60, cfg.Training.Lookback)
	assert.Equal(t, 4, cfg.Training.Parallelism)
	assert.Equal(t, 2.0, cfg.Backtest.FallbackHigh)
	assert.Equal(t, -2.0, cfg.Backtest.FallbackLow)
	assert.Equal(t, 5*time.Minute, cfg.Reports.CacheTTL)

	for kind, p := range cfg.Training.Models.Params() {
		assert.Equal(t, ml.DefaultParams(kind), p, kind)
	}
	require.NoError(t, Validate(cfg))
}

func TestDecode_Overrides(t *testing.T) {
	yml := `
sectors: [Tech, Energy]
prediction:
  top_n: 5
training:
  lookback: 120
  models:
    histogram_boosting:
      max_bins: 64
reports:
  cache_ttl: 10m
`
	cfg, err := Decode(strings.NewReader(yml))
	require.NoError(t, err)

	assert.Equal(t, []string{"Tech", "Energy"}, cfg.Sectors)
	assert.Equal(t, 5, cfg.Prediction.TopN)
	assert.Equal(t, 3, cfg.Prediction.BottomN)
	assert.Equal(t, 120, cfg.Training.Lookback)
	assert.Equal(t, 10*time.Minute, cfg.Reports.CacheTTL)

	hist := cfg.Training.Models.HistogramBoosting
	assert.Equal(t, 64, hist.MaxBins)
	// 나머지 필드는 종류별 기본값 유지
	assert.Equal(t, 20, hist.MinSamplesLeaf)
	assert.Equal(t, 5, hist.MaxDepth)
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("prediction:\n  top_k: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero top n", func(c *Config) { c.Prediction.TopN = 0 }, "prediction.top_n"},
		{"test ratio one", func(c *Config) { c.Training.TestRatio = 1 }, "training.test_ratio"},
		{"zero lookback", func(c *Config) { c.Training.Lookback = 0 }, "training.lookback"},
		{"empty sector", func(c *Config) { c.Sectors = []string{"Tech", ""} }, "sectors[1]"},
		{"duplicate sector", func(c *Config) { c.Sectors = []string{"Tech", "Tech"} }, "sectors[1]"},
		{"inverted fallback", func(c *Config) { c.Backtest.FallbackHigh = -3 }, "backtest"},
		{"zero ttl", func(c *Config) { c.Reports.CacheTTL = 0 }, "reports.cache_ttl"},
		{"boosting lr", func(c *Config) { c.Training.Models.GradientBoosting.LearningRate = 0 }, "training.models.gradient_boosting.learning_rate"},
		{"single bin", func(c *Config) { c.Training.Models.HistogramBoosting.MaxBins = 1 }, "training.models.histogram_boosting.max_bins"},
		{"no trees", func(c *Config) { c.Training.Models.RandomForest.NEstimators = 0 }, "training.models.random_forest.n_estimators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training:\n  parallelism: 2\n"), 0o644))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Training.Parallelism)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, _ := Hash(Default())
	assert.Equal(t, a, b)

	cfg := Default()
	cfg.Training.Seed = 7
	c, _ := Hash(cfg)
	assert.NotEqual(t, a, c)
}

func TestSectorFilter(t *testing.T) {
	all := []string{"Energy", "Health", "Tech"}

	assert.Equal(t, all, Default().SectorFilter(all))

	cfg := Default()
	cfg.Sectors = []string{"Tech", "Utilities"}
	assert.Equal(t, []string{"Tech"}, cfg.SectorFilter(all))
}
