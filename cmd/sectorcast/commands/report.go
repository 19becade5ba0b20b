package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reportPeriod int

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "예측 성과 리포트",
	Long: `최근 N일 예측 성과를 집계합니다.

Subcommands:
  accuracy  - 일별 정확도 이력
  sector    - 섹터 성과 (MAE, RMSE, 방향별 정확도)
  summary   - 종합 리포트 + 개선 제안

Example:
  go run ./cmd/sectorcast report accuracy --period 30
  go run ./cmd/sectorcast report sector Tech
  go run ./cmd/sectorcast report summary --json`,
}

var (
	reportAccuracyCmd = &cobra.Command{
		Use:   "accuracy",
		Short: "일별 정확도 이력",
		RunE:  runReportAccuracy,
	}

	reportSectorCmd = &cobra.Command{
		Use:   "sector [name]",
		Short: "섹터 성과",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportSector,
	}

	reportSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "종합 리포트",
		RunE:  runReportSummary,
	}
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportAccuracyCmd)
	reportCmd.AddCommand(reportSectorCmd)
	reportCmd.AddCommand(reportSummaryCmd)

	reportCmd.PersistentFlags().IntVarP(&reportPeriod, "period", "p", 0, "period in days (default: pipeline reports.default_period_days)")
	reportCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func (d *deps) period() int {
	if reportPeriod > 0 {
		return reportPeriod
	}
	return d.pipeline.Reports.DefaultPeriodDays
}

func runReportAccuracy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	history, err := d.analyzer.Report(ctx, d.period())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(history)
	}

	printHeader(fmt.Sprintf("Accuracy History (%d days)", d.period()))
	w := newTable("DATE", "TOTAL", "CORRECT", "ACCURACY", "CONFIDENCE", "TOP GAIN", "TOP LOSS")
	for _, s := range history {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%.2f\t%.1f%%\t%.1f%%\n",
			s.Date.Format("2006-01-02"), s.TotalPredictions, s.CorrectPredictions,
			s.AccuracyRate*100, s.AvgConfidence, s.TopGainerAccuracy*100, s.TopLoserAccuracy*100)
	}
	return w.Flush()
}

func runReportSector(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	r, err := d.analyzer.SectorReport(ctx, args[0], d.period())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(r)
	}

	printHeader(fmt.Sprintf("Sector %s (%s ~ %s)", r.Sector, r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	fmt.Printf("Predictions:      %d (correct %d, %.1f%%)\n", r.TotalPredictions, r.CorrectPredictions, r.AccuracyRate*100)
	fmt.Printf("Positive calls:   %d (accuracy %s)\n", r.PositivePredictions, pct(r.PositiveAccuracy))
	fmt.Printf("Negative calls:   %d (accuracy %s)\n", r.NegativePredictions, pct(r.NegativeAccuracy))
	fmt.Printf("MAE / RMSE:       %.3f / %.3f\n", r.MAE, r.RMSE)
	fmt.Printf("Avg predicted:    %+.3f%%\n", r.AvgPredicted)
	fmt.Printf("Avg actual:       %+.3f%%\n", r.AvgActual)
	fmt.Printf("Avg confidence:   %.2f\n", r.AvgConfidence)
	return nil
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	s, err := d.analyzer.Summary(ctx, d.period())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	printHeader(fmt.Sprintf("Summary (%s ~ %s)", s.From.Format("2006-01-02"), s.To.Format("2006-01-02")))
	o := s.Overall
	fmt.Printf("Predictions: %d  Correct: %d (%.1f%%)  Avg confidence: %.2f  Sectors: %d\n\n",
		o.TotalPredictions, o.CorrectPredictions, o.AccuracyRate*100, o.AvgConfidence, o.SectorsCounted)

	fmt.Println("🔥 Hot sectors")
	w := newTable("SECTOR", "PREDICTIONS", "ACCURACY", "POTENTIAL", "CONFIDENCE")
	for _, h := range s.HotSectors {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f\t%.2f\n", h.Sector, h.Predictions, h.AccuracyRate*100, h.TotalPotential, h.AvgConfidence)
	}
	w.Flush()

	if len(s.Suggestions) > 0 {
		fmt.Println("\n💡 Suggestions")
		for _, sg := range s.Suggestions {
			fmt.Printf("   [%s] %s\n", sg.Code, sg.Message)
		}
	}
	return nil
}
