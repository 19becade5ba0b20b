package commands

import (
	"context"
	"fmt"

	"github.com/wonny/sectorcast/internal/audit"
	"github.com/wonny/sectorcast/internal/backtest"
	"github.com/wonny/sectorcast/internal/brain"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/internal/forecast"
	"github.com/wonny/sectorcast/internal/pipelineconfig"
	"github.com/wonny/sectorcast/pkg/config"
	"github.com/wonny/sectorcast/pkg/database"
	"github.com/wonny/sectorcast/pkg/httputil"
	"github.com/wonny/sectorcast/pkg/logger"
	"github.com/wonny/sectorcast/pkg/metrics"
	"github.com/wonny/sectorcast/pkg/redis"
)

// deps 커맨드 공용 구성 요소
// ⭐ SSOT: 저장소/파이프라인 조립은 여기서만
type deps struct {
	cfg      *config.Config
	pipeline *pipelineconfig.Config
	log      *logger.Logger
	metrics  *metrics.Recorder

	db    *database.DB  // postgres 백엔드일 때만
	redis *redis.Client // 비활성이면 no-op
	http  *httputil.Client

	models       *forecast.Store
	artifacts    forecast.ArtifactStore
	history      backtest.Store
	tracker      *backtest.Tracker
	analyzer     *audit.Analyzer
	predictor    *forecast.Predictor
	orchestrator *brain.Orchestrator
}

// newDeps loads config and wires every component
func newDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	path := cfg.PipelineConfig
	if pipelineFile != "" {
		path = pipelineFile
	}
	pcfg, err := pipelineconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}
	hash, err := pipelineconfig.Hash(pcfg)
	if err != nil {
		return nil, err
	}

	d := &deps{
		cfg:      cfg,
		pipeline: pcfg,
		log:      log,
		http:     httputil.New(cfg, log),
		models:   forecast.NewStore(),
	}
	if cfg.MetricsEnabled {
		d.metrics = metrics.New()
	}

	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db
		repo := backtest.NewRepository(db.Pool)
		artifacts := forecast.NewArtifactRepository(db.Pool)
		if err := db.Migrate(ctx, repo, artifacts); err != nil {
			d.close()
			return nil, err
		}
		d.history, d.artifacts = repo, artifacts
	} else {
		d.history = backtest.NewMemoryStore()
		d.artifacts = forecast.NewFileArtifactStore(cfg.ModelsDir)
	}

	d.redis, err = redis.New(ctx, cfg)
	if err != nil {
		d.close()
		return nil, err
	}

	zl := log.Zerolog()
	btCfg := backtest.Config{
		TopN:         pcfg.Prediction.TopN,
		BottomN:      pcfg.Prediction.BottomN,
		FallbackHigh: pcfg.Backtest.FallbackHigh,
		FallbackLow:  pcfg.Backtest.FallbackLow,
	}
	d.tracker = backtest.NewTracker(d.history, btCfg, d.metrics, zl)

	var cache *redis.Cache
	if d.redis.Enabled() {
		cache = redis.NewCache(d.redis, "sectorcast")
	}
	d.analyzer = audit.NewAnalyzer(d.history, cache, pcfg.Reports.CacheTTL, zl)

	trainer := forecast.NewTrainer(
		d.models,
		forecast.DefaultCandidates(pcfg.Training.Models.Params()),
		forecast.TrainerConfig{
			TestRatio:   pcfg.Training.TestRatio,
			Seed:        pcfg.Training.Seed,
			Parallelism: pcfg.Training.Parallelism,
		},
		d.metrics, zl,
	)
	d.predictor = forecast.NewPredictor(d.models, pcfg.Training.Parallelism, d.metrics, zl)

	d.orchestrator = brain.NewOrchestrator(brain.Components{
		Builder:   features.NewBuilder(zl),
		Trainer:   trainer,
		Predictor: d.predictor,
		Tracker:   d.tracker,
		Models:    d.models,
		Artifacts: d.artifacts,
	}, pcfg, log)

	log.WithFields(map[string]interface{}{
		"store":       cfg.StoreBackend,
		"redis":       d.redis.Enabled(),
		"config_hash": hash[:12],
	}).Debug("Dependencies initialized")

	return d, nil
}

func (d *deps) close() {
	if d.redis != nil {
		d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
