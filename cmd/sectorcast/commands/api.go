package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorcast/internal/api"
	"github.com/wonny/sectorcast/internal/api/handlers"
	"github.com/wonny/sectorcast/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                      - Health check
  GET  /metrics                     - Prometheus metrics (METRICS_ENABLED)
  POST /api/predict                 - 데이터셋으로 예측 (학습/기록 선택)
  POST /api/predictions             - 예측 기록
  POST /api/outcomes                - 실제 등락률 확정
  POST /api/accuracy/{date}         - 일별 정확도 계산
  GET  /api/reports/accuracy        - 정확도 이력
  GET  /api/reports/sectors/{name}  - 섹터 성과
  GET  /api/reports/summary         - 종합 리포트

Redis 가 활성화되어 있으면 요청 제한을 Redis 로 공유합니다.

Example:
  go run ./cmd/sectorcast api
  go run ./cmd/sectorcast api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sectorcast API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	// 요청 제한: Redis 공유 카운터 또는 프로세스 로컬 토큰 버킷
	var limiter api.Limiter = api.NewLocalLimiter(d.cfg.APIRateLimit, d.cfg.APIRateBurst)
	if d.redis.Enabled() {
		perSecond := int(math.Ceil(d.cfg.APIRateLimit))
		limiter = api.NewRedisLimiter(redis.NewRateLimiter(d.redis, "sectorcast"), perSecond)
	}

	router := api.NewRouter(api.Handlers{
		Forecast: handlers.NewForecastHandler(d.orchestrator, d.log),
		Backtest: handlers.NewBacktestHandler(d.tracker, d.log),
		Report:   handlers.NewReportHandler(d.analyzer, d.pipeline.Reports.DefaultPeriodDays, d.log),
	}, limiter, d.metrics, d.log)

	fmt.Printf("✅ Listening on :%s (store=%s, redis=%v)\n", d.cfg.Port, d.cfg.StoreBackend, d.redis.Enabled())
	fmt.Println("Press Ctrl+C to stop")

	server := api.New(d.cfg, d.log, router)
	if err := server.Run(ctx); err != nil {
		return err
	}

	fmt.Println("\nServer stopped")
	return nil
}
