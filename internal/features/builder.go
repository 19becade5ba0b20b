package features

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/sectorcast/internal/contracts"
)

// Builder 섹터 특징 행렬 생성기
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder 생성
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		logger: log.With().Str("component", "features.builder").Logger(),
	}
}

// Build 최신 스냅샷 행렬과 타깃
// 다음 기간 종가가 없으므로 타깃은 0 (행은 버리지 않음)
func (b *Builder) Build(series contracts.SectorSeries, sentiment []contracts.SentimentAggregate) (*Matrix, []float64) {
	return b.BuildAsOf(series, sentiment, 0)
}

// BuildAsOf 마지막 offset개 봉을 제외한 시점의 스냅샷
// 타깃 = 제외된 첫 봉 종가 기준 등락률(%), 없으면 0
func (b *Builder) BuildAsOf(series contracts.SectorSeries, sentiment []contracts.SentimentAggregate, offset int) (*Matrix, []float64) {
	m, y := b.snapshot(series, indexSentiment(sentiment), offset)
	m.impute()

	b.logger.Debug().
		Int("rows", m.Len()).
		Int("offset", offset).
		Float64("missing_ratio", m.MissingRatio()).
		Msg("feature matrix built")
	return m, y
}

// BuildTrainingSet offset 1..lookback 스냅샷을 쌓아 실현 타깃이 있는 학습셋 생성
// 결측 대체는 쌓은 전체 행 기준
func (b *Builder) BuildTrainingSet(series contracts.SectorSeries, sentiment []contracts.SentimentAggregate, lookback int) (*Matrix, []float64) {
	idx := indexSentiment(sentiment)
	out := &Matrix{Columns: Columns()}
	var target []float64

	for offset := 1; offset <= lookback; offset++ {
		m, y := b.snapshot(series, idx, offset)
		out.IDs = append(out.IDs, m.IDs...)
		out.Rows = append(out.Rows, m.Rows...)
		target = append(target, y...)
	}
	out.impute()

	b.logger.Debug().
		Int("rows", out.Len()).
		Int("lookback", lookback).
		Float64("missing_ratio", out.MissingRatio()).
		Msg("training set built")
	return out, target
}

// snapshot 종목별 한 행 (ID 정렬 순서), 결측 대체 전
func (b *Builder) snapshot(series contracts.SectorSeries, sentiment sentimentIndex, offset int) (*Matrix, []float64) {
	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cols := Columns()
	m := &Matrix{Columns: cols}
	var target []float64

	for _, id := range ids {
		bars := series[id]
		if len(bars)-offset <= 0 {
			continue
		}
		window := bars[:len(bars)-offset]

		vals := make(map[string]float64, len(cols))
		technicalFeatures(window, vals)
		sentiment.features(id, vals)
		marketFeatures(window, vals)

		row := make([]float64, len(cols))
		for i, c := range cols {
			row[i] = vals[c]
		}

		rowID := id
		if offset > 0 {
			rowID = fmt.Sprintf("%s@%s", id, window[len(window)-1].Date.Format(contracts.DateLayout))
		}
		m.IDs = append(m.IDs, rowID)
		m.Rows = append(m.Rows, row)
		target = append(target, nextChange(bars, len(window)))
	}
	return m, target
}

// nextChange bars[next] 종가의 직전 대비 등락률(%)
func nextChange(bars []contracts.Bar, next int) float64 {
	if next >= len(bars) || next < 1 {
		return 0
	}
	cur := bars[next-1].Close
	if cur == 0 {
		return 0
	}
	return (bars[next].Close - cur) / cur * 100
}
