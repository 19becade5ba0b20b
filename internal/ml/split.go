package ml

import (
	"math"
	"math/rand"
)

// TrainTestSplit 시드 고정 셔플 후 인덱스 분할
// 테스트 크기 = ceil(n·ratio), 양쪽 최소 1행 (n >= 2)
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int) {
	if n < 2 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest]
}

// Rows 인덱스로 행 선택
func Rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

// Values 인덱스로 값 선택
func Values(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
