package contracts

import (
	"fmt"
	"time"
)

// DateLayout 날짜 포맷
const DateLayout = "2006-01-02"

// Sign 부호 (-1, 0, 1)
// 0은 별도 클래스로 취급 (0 예측은 0 실제값과만 일치)
func Sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// DirectionCorrect 방향 적중 여부
func DirectionCorrect(predicted, actual float64) bool {
	return Sign(predicted) == Sign(actual)
}

// NormalizeDate 날짜만 남김 (UTC 자정)
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate YYYY-MM-DD 파싱
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
