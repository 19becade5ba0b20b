package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sectorcast/internal/contracts"
)

// Repository 백테스트 저장소 (PostgreSQL, backtest 스키마)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema 스키마/테이블 생성
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS backtest;

		CREATE TABLE IF NOT EXISTS backtest.predictions (
			id               BIGSERIAL PRIMARY KEY,
			prediction_date  DATE             NOT NULL,
			sector           TEXT             NOT NULL,
			predicted_change DOUBLE PRECISION NOT NULL,
			confidence       DOUBLE PRECISION NOT NULL,
			actual_change    DOUBLE PRECISION,
			is_correct       BOOLEAN,
			created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			resolved_at      TIMESTAMPTZ,
			UNIQUE (prediction_date, sector),
			CHECK ((actual_change IS NULL) = (is_correct IS NULL))
		);

		CREATE TABLE IF NOT EXISTS backtest.sector_performance (
			perf_date     DATE             NOT NULL,
			sector        TEXT             NOT NULL,
			actual_change DOUBLE PRECISION NOT NULL,
			is_top_gainer BOOLEAN          NOT NULL,
			is_top_loser  BOOLEAN          NOT NULL,
			updated_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			PRIMARY KEY (perf_date, sector)
		);

		CREATE TABLE IF NOT EXISTS backtest.accuracy_stats (
			id                  BIGSERIAL PRIMARY KEY,
			stats_date          DATE             NOT NULL,
			total_predictions   INT              NOT NULL,
			correct_predictions INT              NOT NULL,
			accuracy_rate       DOUBLE PRECISION NOT NULL,
			avg_confidence      DOUBLE PRECISION NOT NULL,
			top_gainer_accuracy DOUBLE PRECISION NOT NULL,
			top_loser_accuracy  DOUBLE PRECISION NOT NULL,
			created_at          TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_accuracy_stats_date ON backtest.accuracy_stats (stats_date DESC)`

	_, err := r.pool.Exec(ctx, query)
	return err
}

// GetPrediction 예측 조회
func (r *Repository) GetPrediction(ctx context.Context, date time.Time, sector string) (*contracts.PredictionRecord, error) {
	query := `
		SELECT id, prediction_date, sector, predicted_change, confidence, actual_change, is_correct, created_at
		FROM backtest.predictions
		WHERE prediction_date = $1 AND sector = $2`

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, date, sector))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPrediction Pending 예측 upsert (Resolved 행은 갱신하지 않음)
func (r *Repository) UpsertPrediction(ctx context.Context, rec *contracts.PredictionRecord) (bool, error) {
	query := `
		INSERT INTO backtest.predictions (prediction_date, sector, predicted_change, confidence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (prediction_date, sector) DO UPDATE SET
			predicted_change = EXCLUDED.predicted_change,
			confidence = EXCLUDED.confidence,
			created_at = NOW()
		WHERE backtest.predictions.actual_change IS NULL
		RETURNING id, created_at, (xmax <> 0) AS replaced`

	var replaced bool
	err := r.pool.QueryRow(ctx, query, rec.Date, rec.Sector, rec.PredictedChange, rec.Confidence).
		Scan(&rec.ID, &rec.CreatedAt, &replaced)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s %s: %w", rec.Sector, rec.Date.Format(contracts.DateLayout), contracts.ErrAlreadyResolved)
	}
	if err != nil {
		return false, err
	}
	return replaced, nil
}

// SaveResolution 예측 확정 + 섹터 성과 upsert (단일 트랜잭션)
func (r *Repository) SaveResolution(ctx context.Context, pred *contracts.PredictionRecord, perf contracts.SectorPerformanceRecord) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if pred != nil {
			tag, err := tx.Exec(ctx, `
				UPDATE backtest.predictions
				SET actual_change = $3, is_correct = $4, resolved_at = NOW()
				WHERE prediction_date = $1 AND sector = $2 AND actual_change IS NULL`,
				pred.Date, pred.Sector, pred.ActualChange, pred.IsCorrect,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return fmt.Errorf("%s %s: %w", pred.Sector, pred.Date.Format(contracts.DateLayout), contracts.ErrAlreadyResolved)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO backtest.sector_performance
				(perf_date, sector, actual_change, is_top_gainer, is_top_loser)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (perf_date, sector) DO UPDATE SET
				actual_change = EXCLUDED.actual_change,
				is_top_gainer = EXCLUDED.is_top_gainer,
				is_top_loser = EXCLUDED.is_top_loser,
				updated_at = NOW()`,
			perf.Date, perf.Sector, perf.ActualChange, perf.IsTopGainer, perf.IsTopLoser,
		)
		return err
	})
}

// ListPredictions 날짜별 예측
func (r *Repository) ListPredictions(ctx context.Context, date time.Time) ([]contracts.PredictionRecord, error) {
	query := `
		SELECT id, prediction_date, sector, predicted_change, confidence, actual_change, is_correct, created_at
		FROM backtest.predictions
		WHERE prediction_date = $1
		ORDER BY sector`

	return r.queryPredictions(ctx, query, date)
}

// ListResolvedPredictions 구간 Resolved 예측 (최신순)
func (r *Repository) ListResolvedPredictions(ctx context.Context, sector string, from, to time.Time) ([]contracts.PredictionRecord, error) {
	query := `
		SELECT id, prediction_date, sector, predicted_change, confidence, actual_change, is_correct, created_at
		FROM backtest.predictions
		WHERE actual_change IS NOT NULL
		  AND prediction_date BETWEEN $1 AND $2
		  AND ($3 = '' OR sector = $3)
		ORDER BY prediction_date DESC, sector`

	return r.queryPredictions(ctx, query, from, to, sector)
}

func (r *Repository) queryPredictions(ctx context.Context, query string, args ...any) ([]contracts.PredictionRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.PredictionRecord
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPrediction(row pgx.Row) (*contracts.PredictionRecord, error) {
	var p contracts.PredictionRecord
	err := row.Scan(
		&p.ID, &p.Date, &p.Sector, &p.PredictedChange, &p.Confidence,
		&p.ActualChange, &p.IsCorrect, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListSectorPerformance 날짜별 섹터 성과
func (r *Repository) ListSectorPerformance(ctx context.Context, date time.Time) ([]contracts.SectorPerformanceRecord, error) {
	query := `
		SELECT perf_date, sector, actual_change, is_top_gainer, is_top_loser
		FROM backtest.sector_performance
		WHERE perf_date = $1
		ORDER BY sector`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.SectorPerformanceRecord
	for rows.Next() {
		var p contracts.SectorPerformanceRecord
		if err := rows.Scan(&p.Date, &p.Sector, &p.ActualChange, &p.IsTopGainer, &p.IsTopLoser); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertAccuracyStats 정확도 통계 추가 (append-only)
func (r *Repository) InsertAccuracyStats(ctx context.Context, s *contracts.AccuracyStats) error {
	query := `
		INSERT INTO backtest.accuracy_stats
			(stats_date, total_predictions, correct_predictions, accuracy_rate,
			 avg_confidence, top_gainer_accuracy, top_loser_accuracy)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			s.Date, s.TotalPredictions, s.CorrectPredictions, s.AccuracyRate,
			s.AvgConfidence, s.TopGainerAccuracy, s.TopLoserAccuracy,
		).Scan(&s.ID, &s.CreatedAt)
	})
}

// ListAccuracyStats 구간 정확도 통계 (최신순)
func (r *Repository) ListAccuracyStats(ctx context.Context, from, to time.Time) ([]contracts.AccuracyStats, error) {
	query := `
		SELECT id, stats_date, total_predictions, correct_predictions, accuracy_rate,
		       avg_confidence, top_gainer_accuracy, top_loser_accuracy, created_at
		FROM backtest.accuracy_stats
		WHERE stats_date BETWEEN $1 AND $2
		ORDER BY stats_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.AccuracyStats
	for rows.Next() {
		var s contracts.AccuracyStats
		if err := rows.Scan(
			&s.ID, &s.Date, &s.TotalPredictions, &s.CorrectPredictions, &s.AccuracyRate,
			&s.AvgConfidence, &s.TopGainerAccuracy, &s.TopLoserAccuracy, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
