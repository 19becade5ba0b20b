package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtifactRepository 섹터 모델 아티팩트 저장소 (PostgreSQL)
// 섹터별 버전이 단조 증가하며 조회는 최신 버전
type ArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository 새 저장소 생성
func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

// EnsureSchema 스키마/테이블 생성
func (r *ArtifactRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS forecast;
		CREATE TABLE IF NOT EXISTS forecast.sector_models (
			id             BIGSERIAL PRIMARY KEY,
			sector         TEXT        NOT NULL,
			version        INT         NOT NULL,
			format_version INT         NOT NULL,
			model_kind     TEXT        NOT NULL,
			artifact       JSONB       NOT NULL,
			trained_at     TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (sector, version)
		)`
	_, err := r.pool.Exec(ctx, query)
	return err
}

// SaveArtifact 새 버전으로 저장 (a.Version 갱신)
func (r *ArtifactRepository) SaveArtifact(ctx context.Context, a *Artifact) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// 같은 섹터 동시 저장 직렬화
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.Sector); err != nil {
			return err
		}

		var version int
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM forecast.sector_models WHERE sector = $1`,
			a.Sector,
		).Scan(&version)
		if err != nil {
			return err
		}

		a.Version = version
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode artifact: %w", err)
		}

		query := `
			INSERT INTO forecast.sector_models
				(sector, version, format_version, model_kind, artifact, trained_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		_, err = tx.Exec(ctx, query, a.Sector, version, a.FormatVersion, string(a.ModelKind), data, a.TrainedAt)
		return err
	})
}

// LoadArtifact 최신 버전 조회
func (r *ArtifactRepository) LoadArtifact(ctx context.Context, sector string) (*Artifact, error) {
	query := `
		SELECT version, artifact
		FROM forecast.sector_models
		WHERE sector = $1
		ORDER BY version DESC
		LIMIT 1`

	var version int
	var data []byte
	err := r.pool.QueryRow(ctx, query, sector).Scan(&version, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sector %s: %w", sector, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	a.Version = version
	return &a, nil
}

// ListSectors 저장된 섹터 목록
func (r *ArtifactRepository) ListSectors(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT sector FROM forecast.sector_models ORDER BY sector`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
