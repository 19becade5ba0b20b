package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorcast/internal/contracts"
)

var recordConfidence float64

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "예측 기록/확정/정확도",
	Long: `예측을 기록하고 실제 등락률로 확정한 뒤 일별 정확도를 계산합니다.

Subcommands:
  record    - 예측 기록 (같은 날짜/섹터면 갱신)
  resolve   - 실제 등락률 확정
  accuracy  - 일별 정확도 계산 (append-only)

Example:
  go run ./cmd/sectorcast backtest record 2024-03-15 Tech 1.25 --confidence 0.7
  go run ./cmd/sectorcast backtest resolve 2024-03-15 Tech 0.8
  go run ./cmd/sectorcast backtest accuracy 2024-03-15

memory 백엔드는 프로세스 종료 시 기록이 사라집니다.`,
}

var (
	backtestRecordCmd = &cobra.Command{
		Use:   "record [date] [sector] [predicted_change]",
		Short: "예측 기록",
		Args:  cobra.ExactArgs(3),
		RunE:  runBacktestRecord,
	}

	backtestResolveCmd = &cobra.Command{
		Use:   "resolve [date] [sector] [actual_change]",
		Short: "실제 등락률 확정",
		Args:  cobra.ExactArgs(3),
		RunE:  runBacktestResolve,
	}

	backtestAccuracyCmd = &cobra.Command{
		Use:   "accuracy [date]",
		Short: "일별 정확도 계산",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktestAccuracy,
	}
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRecordCmd)
	backtestCmd.AddCommand(backtestResolveCmd)
	backtestCmd.AddCommand(backtestAccuracyCmd)

	backtestRecordCmd.Flags().Float64Var(&recordConfidence, "confidence", 0.5, "prediction confidence (0~1)")
	backtestCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func runBacktestRecord(cmd *cobra.Command, args []string) error {
	date, err := contracts.ParseDate(args[0])
	if err != nil {
		return err
	}
	predicted, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid predicted_change %q: %w", args[2], err)
	}

	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	rec, err := d.tracker.Record(ctx, date, args[1], predicted, recordConfidence)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(rec)
	}
	fmt.Printf("✅ Recorded %s %s: %+.3f%% (confidence %.2f)\n",
		rec.Date.Format("2006-01-02"), rec.Sector, rec.PredictedChange, rec.Confidence)
	return nil
}

func runBacktestResolve(cmd *cobra.Command, args []string) error {
	date, err := contracts.ParseDate(args[0])
	if err != nil {
		return err
	}
	actual, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid actual_change %q: %w", args[2], err)
	}

	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	res, err := d.tracker.Resolve(ctx, date, args[1], actual)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	perf := res.Performance
	fmt.Printf("✅ Resolved %s %s: actual %+.3f%%\n", perf.Date.Format("2006-01-02"), perf.Sector, perf.ActualChange)
	fmt.Printf("   Thresholds: high %.3f / low %.3f (cohort %d, fallback %v)\n",
		res.Thresholds.High, res.Thresholds.Low, res.Thresholds.Cohort, res.Thresholds.Fallback)
	fmt.Printf("   Top gainer: %v  Top loser: %v\n", perf.IsTopGainer, perf.IsTopLoser)
	switch {
	case res.Prediction == nil:
		fmt.Println("   No prediction recorded for this sector")
	case res.Prediction.IsCorrect != nil:
		fmt.Printf("   Predicted %+.3f%% -> correct: %v\n", res.Prediction.PredictedChange, *res.Prediction.IsCorrect)
	}
	if res.Replayed {
		fmt.Println("   (already resolved with the same value)")
	}
	return nil
}

func runBacktestAccuracy(cmd *cobra.Command, args []string) error {
	date, err := contracts.ParseDate(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	stats, err := d.tracker.CalculateDailyAccuracy(ctx, date)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(stats)
	}

	printHeader(fmt.Sprintf("Daily Accuracy %s", stats.Date.Format("2006-01-02")))
	fmt.Printf("Predictions:        %d\n", stats.TotalPredictions)
	fmt.Printf("Correct:            %d (%.1f%%)\n", stats.CorrectPredictions, stats.AccuracyRate*100)
	fmt.Printf("Avg confidence:     %.2f\n", stats.AvgConfidence)
	fmt.Printf("Top gainer overlap: %.1f%%\n", stats.TopGainerAccuracy*100)
	fmt.Printf("Top loser overlap:  %.1f%%\n", stats.TopLoserAccuracy*100)
	return nil
}
