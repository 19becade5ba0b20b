package features

import "github.com/wonny/sectorcast/internal/contracts"

// sentimentIndex 종목별 여론 집계 (입력 순서 유지, 마지막이 최신)
type sentimentIndex map[string][]contracts.SentimentAggregate

func indexSentiment(rows []contracts.SentimentAggregate) sentimentIndex {
	idx := make(sentimentIndex)
	for _, r := range rows {
		idx[r.InstrumentID] = append(idx[r.InstrumentID], r)
	}
	return idx
}

// features 여론 없음: 점수 0, 긍정 비율 0.5, 건수 0, 변동성 0
func (s sentimentIndex) features(id string, out map[string]float64) {
	rows := s[id]
	if len(rows) == 0 {
		out[ColSentimentScore] = 0
		out[ColSentimentPosRatio] = 0.5
		out[ColSentimentCount] = 0
		out[ColSentimentVolatility] = 0
		return
	}

	latest := rows[len(rows)-1]
	out[ColSentimentScore] = latest.AvgScore
	out[ColSentimentPosRatio] = latest.PositiveRatio
	out[ColSentimentCount] = float64(latest.Count)
	out[ColSentimentVolatility] = 0
	if len(rows) > 1 {
		scores := make([]float64, len(rows))
		for i, r := range rows {
			scores[i] = r.AvgScore
		}
		out[ColSentimentVolatility] = sampleStd(scores)
	}
}
