package ml

import "math"

// StandardScaler 열별 표준화 (평균 0, 분산 1)
// 분산이 0인 열은 1로 나눈다. NaN은 적합에서 제외하고 변환 시 0(평균)으로 채운다.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit 열별 평균/표준편차 계산 (모집단 분산)
func (s *StandardScaler) Fit(X [][]float64) {
	if len(X) == 0 {
		s.Mean, s.Scale = nil, nil
		return
	}
	nf := len(X[0])
	s.Mean = make([]float64, nf)
	s.Scale = make([]float64, nf)
	for f := 0; f < nf; f++ {
		var sum float64
		var n int
		for _, row := range X {
			if v := row[f]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			s.Scale[f] = 1
			continue
		}
		mean := sum / float64(n)
		var ss float64
		for _, row := range X {
			if v := row[f]; !math.IsNaN(v) {
				ss += (v - mean) * (v - mean)
			}
		}
		std := math.Sqrt(ss / float64(n))
		if std == 0 {
			std = 1
		}
		s.Mean[f] = mean
		s.Scale[f] = std
	}
}

// Transform 새 행렬로 변환
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for f, v := range row {
			if f >= len(s.Mean) || math.IsNaN(v) {
				continue
			}
			r[f] = (v - s.Mean[f]) / s.Scale[f]
		}
		out[i] = r
	}
	return out
}

// FitTransform Fit 후 Transform
func (s *StandardScaler) FitTransform(X [][]float64) [][]float64 {
	s.Fit(X)
	return s.Transform(X)
}
