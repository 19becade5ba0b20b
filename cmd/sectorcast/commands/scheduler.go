package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorcast/internal/scheduler"
	"github.com/wonny/sectorcast/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 작업 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/sectorcast scheduler start --input data/latest.json
  go run ./cmd/sectorcast scheduler list
  go run ./cmd/sectorcast scheduler run daily_accuracy`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_prediction: 평일 08:30 (--input 이 있을 때만, 예측 + 기록)
- daily_accuracy: 평일 17:00 (오늘 정확도 계산)
- report_warmup: 15분마다 (종합 리포트 캐시 갱신)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var (
	schedInput   string
	schedRetrain bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVarP(&schedInput, "input", "i", "", "dataset JSON path or URL refreshed by the collector")
	schedulerCmd.PersistentFlags().BoolVar(&schedRetrain, "retrain", false, "retrain before each scheduled prediction")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sectorcast Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.close()

	sched.Start(ctx)

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, sched, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.close()

	stats := sched.Stats()
	fmt.Println("Registered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %-18s %s\n", name, stats[name].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	ctx := context.Background()
	d, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.close()

	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return err
	}

	switch {
	case result.Skipped:
		fmt.Println("⏭️  Skipped (nothing to do)")
	case result.Success:
		fmt.Printf("✅ Done in %v (attempts: %d)\n", result.Duration.Round(time.Millisecond), result.Attempts)
	default:
		return fmt.Errorf("job %s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error)
	}
	return nil
}

func initScheduler(ctx context.Context) (*deps, *scheduler.Scheduler, error) {
	d, err := newDeps(ctx)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(d.log, scheduler.WithRetry(2, 30*time.Second))

	list := []scheduler.Job{
		jobs.NewAccuracyJob(d.tracker, "", d.log),
		jobs.NewReportWarmupJob(d.analyzer, d.pipeline.Reports.DefaultPeriodDays, d.log),
	}
	if schedInput != "" {
		list = append(list, jobs.NewPredictionJob(d.orchestrator, schedInput, schedRetrain, "", d.log).WithOpener(d.http))
	}

	for _, job := range list {
		if err := sched.AddJob(job); err != nil {
			d.close()
			return nil, nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}
	return d, sched, nil
}
