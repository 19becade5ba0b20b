package ml

import (
	"encoding/json"
	"fmt"
)

// Marshal 모델 파라미터 직렬화
func Marshal(r Regressor) (json.RawMessage, error) {
	switch m := r.(type) {
	case *Forest, *Booster:
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("cannot marshal regressor of type %T", r)
	}
}

// Unmarshal 종류에 맞춰 모델 복원
func Unmarshal(kind ModelKind, data []byte) (Regressor, error) {
	switch kind {
	case KindRandomForest:
		var f Forest
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return &f, nil
	case KindGradientBoosting, KindRegularizedBoosting, KindHistogramBoosting:
		var b Booster
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		if b.KindName != kind {
			return nil, fmt.Errorf("artifact kind %q does not match %q", b.KindName, kind)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}
