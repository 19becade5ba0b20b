package ml

import (
	"math"

	"github.com/wonny/sectorcast/internal/contracts"
)

// MSE 평균 제곱 오차
func MSE(actual, pred []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var s float64
	for i := range actual {
		d := actual[i] - pred[i]
		s += d * d
	}
	return s / float64(len(actual))
}

// MAE 평균 절대 오차
func MAE(actual, pred []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var s float64
	for i := range actual {
		s += math.Abs(actual[i] - pred[i])
	}
	return s / float64(len(actual))
}

// R2 결정계수
// 실제값이 상수면 완전 일치 1, 아니면 0
func R2(actual, pred []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - pred[i]) * (actual[i] - pred[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// DirectionAccuracy 부호 일치 비율 (0은 독립 부호)
func DirectionAccuracy(actual, pred []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var hit int
	for i := range actual {
		if contracts.DirectionCorrect(pred[i], actual[i]) {
			hit++
		}
	}
	return float64(hit) / float64(len(actual))
}

// Evaluate 테스트셋 지표 계산
func Evaluate(r Regressor, X [][]float64, y []float64) contracts.ModelScores {
	pred := r.Predict(X)
	return contracts.ModelScores{
		MSE:               MSE(y, pred),
		MAE:               MAE(y, pred),
		R2:                R2(y, pred),
		DirectionAccuracy: DirectionAccuracy(y, pred),
	}
}
