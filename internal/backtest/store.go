package backtest

import (
	"context"
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
)

// Store 백테스트 영속화
// 날짜는 contracts.NormalizeDate 된 값으로 전달된다
type Store interface {
	// GetPrediction (date, sector) 예측 조회, 없으면 nil
	GetPrediction(ctx context.Context, date time.Time, sector string) (*contracts.PredictionRecord, error)
	// UpsertPrediction Pending 예측 저장, 기존 행 교체 여부 반환
	// Resolved 행은 교체하지 않고 ErrAlreadyResolved
	UpsertPrediction(ctx context.Context, rec *contracts.PredictionRecord) (replaced bool, err error)
	// SaveResolution 예측 확정(pred가 nil이면 생략)과 섹터 성과 upsert를 한 트랜잭션으로
	SaveResolution(ctx context.Context, pred *contracts.PredictionRecord, perf contracts.SectorPerformanceRecord) error
	ListPredictions(ctx context.Context, date time.Time) ([]contracts.PredictionRecord, error)
	ListSectorPerformance(ctx context.Context, date time.Time) ([]contracts.SectorPerformanceRecord, error)
	// InsertAccuracyStats 새 행 추가 (ID, CreatedAt 채움)
	InsertAccuracyStats(ctx context.Context, stats *contracts.AccuracyStats) error
	// ListAccuracyStats [from, to] 구간, 최신순
	ListAccuracyStats(ctx context.Context, from, to time.Time) ([]contracts.AccuracyStats, error)
	// ListResolvedPredictions [from, to] 구간 Resolved 예측, sector가 비면 전체
	ListResolvedPredictions(ctx context.Context, sector string, from, to time.Time) ([]contracts.PredictionRecord, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*Repository)(nil)
)
