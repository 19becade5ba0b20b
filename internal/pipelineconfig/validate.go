package pipelineconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/sectorcast/internal/ml"
)

var validate = validator.New()

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate 필드 범위는 태그로, 필드 간 제약은 직접 검사
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{fieldPath(fe.Namespace()), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())}
		}
		return err
	}

	seen := make(map[string]bool, len(cfg.Sectors))
	for i, s := range cfg.Sectors {
		if seen[s] {
			return ValidationError{fmt.Sprintf("sectors[%d]", i), fmt.Sprintf("duplicate sector %q", s)}
		}
		seen[s] = true
	}

	if cfg.Backtest.FallbackHigh <= cfg.Backtest.FallbackLow {
		return ValidationError{"backtest", "fallback_high must be > fallback_low"}
	}

	for kind, p := range cfg.Training.Models.Params() {
		if err := validateParams(kind, p); err != nil {
			return err
		}
	}
	return nil
}

func validateParams(kind ml.ModelKind, p ml.Params) error {
	field := "training.models." + string(kind)
	if p.NEstimators < 1 {
		return ValidationError{field + ".n_estimators", "must be >= 1"}
	}
	if p.MinSamplesLeaf < 1 {
		return ValidationError{field + ".min_samples_leaf", "must be >= 1"}
	}
	if p.MaxDepth < 0 {
		return ValidationError{field + ".max_depth", "must be >= 0"}
	}
	if p.Lambda < 0 {
		return ValidationError{field + ".lambda", "must be >= 0"}
	}
	if kind != ml.KindRandomForest && (p.LearningRate <= 0 || p.LearningRate > 1) {
		return ValidationError{field + ".learning_rate", "must be in (0, 1]"}
	}
	if p.MaxBins != 0 && p.MaxBins < 2 {
		return ValidationError{field + ".max_bins", "must be 0 or >= 2"}
	}
	return nil
}

// fieldPath Config.Training.TestRatio → training.test_ratio
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
