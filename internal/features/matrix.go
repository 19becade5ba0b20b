package features

import "math"

// Matrix 섹터 특징 행렬
// IDs는 행 식별용이며 Rows(수치 입력)에는 포함되지 않는다
type Matrix struct {
	Columns []string
	IDs     []string
	Rows    [][]float64
	// Missing 원본에서 비어 있던 셀 수 (평균 대체된 셀 포함)
	Missing int
}

// Len 행 수
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rows)
}

// MissingRatio 결측 셀 비율 (빈 행렬은 1)
func (m *Matrix) MissingRatio() float64 {
	if m.Len() == 0 || len(m.Columns) == 0 {
		return 1
	}
	return float64(m.Missing) / float64(len(m.Rows)*len(m.Columns))
}

// ColumnIndex 컬럼 위치 (없으면 -1)
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// NumericView 모델 입력 행렬 (식별자 제외)
func (m *Matrix) NumericView() [][]float64 {
	if m == nil {
		return nil
	}
	return m.Rows
}

// impute 결측 셀을 배치 컬럼 평균으로 채우고 결측 수를 센다
// 컬럼 전체가 비어 있으면 NaN으로 남는다
func (m *Matrix) impute() {
	m.Missing = 0
	for f := range m.Columns {
		var sum float64
		var n int
		for _, row := range m.Rows {
			if math.IsNaN(row[f]) {
				m.Missing++
				continue
			}
			sum += row[f]
			n++
		}
		if n == 0 || n == len(m.Rows) {
			continue
		}
		mean := sum / float64(n)
		for _, row := range m.Rows {
			if math.IsNaN(row[f]) {
				row[f] = mean
			}
		}
	}
}
