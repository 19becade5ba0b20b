package features

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/contracts"
)

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

// makeBars 지표가 모두 채워진 n개 봉
func makeBars(n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = contracts.Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c - 1,
			High:   c + 1,
			Low:    c - 2,
			Close:  c,
			Volume: 1000 + 10*float64(i),
			Indicators: map[string]float64{
				contracts.IndicatorMA5:        c - 1,
				contracts.IndicatorMA10:       c - 2,
				contracts.IndicatorMA20:       c - 3,
				contracts.IndicatorMA30:       c - 4,
				contracts.IndicatorRSI:        55,
				contracts.IndicatorMACD:       0.5,
				contracts.IndicatorMACDSignal: 0.3,
				contracts.IndicatorKDJK:       60,
				contracts.IndicatorKDJD:       50,
				contracts.IndicatorKDJJ:       80,
				contracts.IndicatorBollMid:    c,
				contracts.IndicatorBollUpper:  c + 5,
				contracts.IndicatorBollLower:  c - 5,
				contracts.IndicatorWR:         -20,
				contracts.IndicatorChangePct:  1,
			},
		}
	}
	return bars
}

func value(t *testing.T, m *Matrix, row int, col string) float64 {
	t.Helper()
	i := m.ColumnIndex(col)
	require.GreaterOrEqual(t, i, 0, "column %s", col)
	return m.Rows[row][i]
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	series := contracts.SectorSeries{
		"B": makeBars(12),
		"A": makeBars(12),
		"C": nil,
	}

	m, target := b.Build(series, nil)

	require.Equal(t, 2, m.Len(), "empty series is skipped")
	assert.Equal(t, []string{"A", "B"}, m.IDs)
	assert.Len(t, m.Rows[0], len(Columns()), "identifiers stay out of the numeric view")
	assert.Equal(t, []float64{0, 0}, target, "latest snapshot has no realized target")
	assert.Equal(t, 0, m.Missing)
	assert.Equal(t, 0.0, m.MissingRatio())

	assert.Equal(t, 1.0, value(t, m, 0, ColMACDGoldenCross))
	assert.Equal(t, 1.0, value(t, m, 0, ColKDJGoldenCross))
	assert.Equal(t, 0.0, value(t, m, 0, ColRSIOversold))
	assert.InDelta(t, 0.5, value(t, m, 0, ColBBPosition), 1e-12)
	assert.InDelta(t, 111.0/110.0-1, value(t, m, 0, ColPriceVsMA5), 1e-12)
	assert.InDelta(t, 1.0/110.0, value(t, m, 0, ColGap), 1e-12)
}

func TestBuilder_SentimentDefaults(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	series := contracts.SectorSeries{"A": makeBars(12), "B": makeBars(12)}
	sentiment := []contracts.SentimentAggregate{
		{InstrumentID: "A", AvgScore: 0.2, PositiveRatio: 0.6, Count: 4},
		{InstrumentID: "A", AvgScore: 0.4, PositiveRatio: 0.7, Count: 6},
	}

	m, _ := b.Build(series, sentiment)

	assert.Equal(t, 0.4, value(t, m, 0, ColSentimentScore))
	assert.Equal(t, 0.7, value(t, m, 0, ColSentimentPosRatio))
	assert.Equal(t, 6.0, value(t, m, 0, ColSentimentCount))
	assert.InDelta(t, math.Sqrt(0.02), value(t, m, 0, ColSentimentVolatility), 1e-12)

	assert.Equal(t, 0.0, value(t, m, 1, ColSentimentScore))
	assert.Equal(t, 0.5, value(t, m, 1, ColSentimentPosRatio))
	assert.Equal(t, 0.0, value(t, m, 1, ColSentimentCount))
	assert.Equal(t, 0.0, value(t, m, 1, ColSentimentVolatility))
}

func TestBuilder_ImputesWithBatchMean(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	missing := makeBars(12)
	delete(missing[len(missing)-1].Indicators, contracts.IndicatorRSI)

	m, _ := b.Build(contracts.SectorSeries{"A": makeBars(12), "B": missing}, nil)

	assert.Equal(t, 55.0, value(t, m, 1, ColRSI))
	assert.Equal(t, 0.0, value(t, m, 1, ColRSIOverbought))
	assert.Equal(t, 3, m.Missing, "imputed cells still count as missing")
	assert.InDelta(t, 3.0/float64(2*len(Columns())), m.MissingRatio(), 1e-12)
}

func TestBuilder_ShortSeriesLeavesWindowFeaturesMissing(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	m, _ := b.Build(contracts.SectorSeries{"A": makeBars(1)}, nil)

	require.Equal(t, 1, m.Len())
	assert.True(t, math.IsNaN(value(t, m, 0, ColTrendStrength)), "single row batch cannot impute")
	assert.Greater(t, m.MissingRatio(), 0.0)
}

func TestBuilder_BuildTrainingSet(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	bars := makeBars(3)
	bars[0].Close, bars[1].Close, bars[2].Close = 100, 102, 101

	m, target := b.BuildTrainingSet(contracts.SectorSeries{"A": bars}, nil, 5)

	require.Equal(t, 2, m.Len(), "offsets beyond the series are skipped")
	assert.Equal(t, []string{"A@2025-03-04", "A@2025-03-03"}, m.IDs)
	assert.InDelta(t, (101.0-102.0)/102.0*100, target[0], 1e-12)
	assert.InDelta(t, 2.0, target[1], 1e-12)
}

func TestMatrix_MissingRatioEmpty(t *testing.T) {
	var m *Matrix
	assert.Equal(t, 1.0, m.MissingRatio())
	assert.Equal(t, 1.0, (&Matrix{Columns: Columns()}).MissingRatio())
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	raw := `{
	  "sectors": {
	    "Tech": {
	      "AAA": [
	        {"date": "2025-03-04T00:00:00Z", "open": 1, "high": 2, "low": 1, "close": 2, "volume": 10},
	        {"date": "2025-03-03T00:00:00Z", "open": 1, "high": 1, "low": 1, "close": 1, "volume": 10,
	         "indicators": {"RSI": 40}}
	      ]
	    }
	  },
	  "sentiment": [{"instrument_id": "AAA", "avg_sentiment_score": 0.3, "sentiment_ratio": 0.6, "total_count": 2}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	d, err := LoadDataset(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Tech"}, d.SectorNames())
	bars := d.Sectors["Tech"]["AAA"]
	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close, "bars are sorted by date")
	rsi, ok := bars[0].Indicator(contracts.IndicatorRSI)
	assert.True(t, ok)
	assert.Equal(t, 40.0, rsi)
	require.Len(t, d.Sentiment, 1)
	assert.Equal(t, 2, d.Sentiment[0].Count)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

type openerFunc func(ctx context.Context, url string) (io.ReadCloser, error)

func (f openerFunc) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return f(ctx, url)
}

func TestLoadDatasetFrom(t *testing.T) {
	var gotURL string
	opener := openerFunc(func(_ context.Context, url string) (io.ReadCloser, error) {
		gotURL = url
		return io.NopCloser(strings.NewReader(`{"sectors": {"Tech": {"AAA": []}}}`)), nil
	})

	d, err := LoadDatasetFrom(context.Background(), "https://collector/latest.json", opener)
	require.NoError(t, err)
	assert.Equal(t, "https://collector/latest.json", gotURL)
	assert.Equal(t, []string{"Tech"}, d.SectorNames())

	_, err = LoadDatasetFrom(context.Background(), "http://collector/latest.json", nil)
	assert.Error(t, err)

	failing := openerFunc(func(context.Context, string) (io.ReadCloser, error) { return nil, errors.New("502") })
	_, err = LoadDatasetFrom(context.Background(), "http://collector/latest.json", failing)
	assert.ErrorContains(t, err, "fetch dataset")

	// 파일 경로는 opener 를 쓰지 않는다
	_, err = LoadDatasetFrom(context.Background(), filepath.Join(t.TempDir(), "missing.json"), opener)
	assert.ErrorContains(t, err, "open dataset")
}

func TestSynthetic(t *testing.T) {
	opts := SyntheticOptions{Sectors: []string{"Energy", "Tech"}, Instruments: 2, Days: 40, Seed: 7}
	ds := Synthetic(opts)

	assert.Equal(t, []string{"Energy", "Tech"}, ds.SectorNames())
	require.Len(t, ds.Sectors["Tech"], 2)
	bars := ds.Sectors["Tech"]["Tech-01"]
	require.Len(t, bars, 40)
	assert.True(t, bars[0].Date.Before(bars[39].Date))
	assert.Len(t, ds.Sentiment, 4)

	_, ok := bars[3].Indicator(contracts.IndicatorMA5)
	assert.False(t, ok, "MA5 needs five closes")
	_, ok = bars[39].Indicator(contracts.IndicatorBollUpper)
	assert.True(t, ok)

	again := Synthetic(opts)
	assert.Equal(t, ds, again)

	m, target := NewBuilder(zerolog.Nop()).BuildTrainingSet(ds.Sectors["Tech"], ds.Sentiment, 20)
	assert.Equal(t, 40, m.Len())
	assert.Len(t, target, 40)
}
