package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorcast/internal/brain"
	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
)

var (
	inputPath   string
	sectorList  string
	predictDate string
	doRecord    bool
	doTrain     bool
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "섹터별 모델 학습",
	Long: `데이터셋으로 섹터별 후보 모델을 학습하고 R² 최고 모델을 저장합니다.

후보: random_forest, gradient_boosting, regularized_boosting, histogram_boosting
평가: 시간순 80/20 홀드아웃 (MSE, MAE, R², 방향 정확도)

Example:
  go run ./cmd/sectorcast train --input data/sample.json
  go run ./cmd/sectorcast train --input data/sample.json --sectors Tech,Energy`,
	RunE: runTrain,
}

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "섹터 등락률 예측",
	Long: `학습된 모델로 섹터별 다음날 등락률을 예측합니다.

메모리에 모델이 없으면 아티팩트 저장소에서 불러옵니다.
--record 를 주면 예측을 백테스트에 기록합니다.

Example:
  go run ./cmd/sectorcast predict --input data/sample.json
  go run ./cmd/sectorcast predict --input data/sample.json --train --record --date 2024-03-15`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)

	for _, c := range []*cobra.Command{trainCmd, predictCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "dataset JSON path or http(s) URL (required)")
		c.Flags().StringVar(&sectorList, "sectors", "", "comma separated sector filter")
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
		c.MarkFlagRequired("input")
	}
	predictCmd.Flags().BoolVar(&doTrain, "train", false, "retrain before predicting")
	predictCmd.Flags().BoolVar(&doRecord, "record", false, "record predictions for backtesting")
	predictCmd.Flags().StringVar(&predictDate, "date", "", "prediction date YYYY-MM-DD (default: today)")
}

// loadInput 데이터셋 로드 (파일 또는 URL) + 섹터 필터
func loadInput(ctx context.Context, d *deps) (*features.Dataset, error) {
	ds, err := features.LoadDatasetFrom(ctx, inputPath, d.http)
	if err != nil {
		return nil, err
	}
	if names := splitList(sectorList); len(names) > 0 {
		keep := make(map[string]contracts.SectorSeries, len(names))
		for _, n := range names {
			if s, ok := ds.Sectors[n]; ok {
				keep[n] = s
			}
		}
		if len(keep) == 0 {
			return nil, fmt.Errorf("no dataset sectors match %q", sectorList)
		}
		ds.Sectors = keep
	}
	return ds, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	ds, err := loadInput(ctx, d)
	if err != nil {
		return err
	}

	printHeader("Sector Model Training")
	fmt.Printf("Dataset: %s (%d sectors)\n\n", inputPath, len(ds.Sectors))

	start := time.Now()
	batch, err := d.orchestrator.Train(ctx, ds)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	if jsonOutput {
		return printJSON(batch)
	}
	printTraining(batch)
	fmt.Printf("\n✅ Trained %d sector(s) in %v\n", len(batch.Results), time.Since(start).Round(time.Millisecond))
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	date := contracts.NormalizeDate(time.Now())
	if predictDate != "" {
		t, err := contracts.ParseDate(predictDate)
		if err != nil {
			return err
		}
		date = t
	}

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	ds, err := loadInput(ctx, d)
	if err != nil {
		return err
	}

	result, err := d.orchestrator.Run(ctx, brain.RunConfig{
		Date:    date,
		Dataset: ds,
		Train:   doTrain,
		Record:  doRecord,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}

	printHeader(fmt.Sprintf("Sector Forecast %s", date.Format("2006-01-02")))
	if result.Training != nil {
		printTraining(result.Training)
		fmt.Println()
	}
	printPredictions(result.Predictions)

	top := result.Predictions.TopGainers(d.pipeline.Prediction.TopN)
	bottom := result.Predictions.TopLosers(d.pipeline.Prediction.BottomN)
	fmt.Printf("\n📈 Top gainers: %d  📉 Top losers: %d\n", len(top), len(bottom))

	if doRecord {
		fmt.Printf("📝 Recorded: %d", len(result.Recorded))
		if n := len(result.RecordFailures); n > 0 {
			fmt.Printf(" (%d failed)", n)
		}
		fmt.Println()
		printFailures(result.RecordFailures)
	}
	fmt.Printf("\n✅ Completed stages %v in %v\n", result.CompletedStages, result.Duration.Round(time.Millisecond))
	return nil
}
