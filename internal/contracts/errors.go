package contracts

import "errors"

// ⭐ SSOT: 파이프라인 에러 분류는 여기서만 정의
var (
	// ErrTrainingDataInsufficient 행이 2개 미만이거나 타깃이 상수
	ErrTrainingDataInsufficient = errors.New("training data insufficient")
	// ErrModelNotTrained 섹터 모델 없음
	ErrModelNotTrained = errors.New("model not trained")
	// ErrNoResolvedPredictions 해당 날짜에 확정된 예측 없음
	ErrNoResolvedPredictions = errors.New("no resolved predictions")
	// ErrInsufficientHistory 조회 기간 내 이력 없음
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrAlreadyResolved 이미 다른 실제값으로 확정된 예측
	ErrAlreadyResolved = errors.New("prediction already resolved")
)
