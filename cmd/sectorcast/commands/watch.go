package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/internal/realtime"
	"github.com/wonny/sectorcast/internal/realtime/feed"
)

var (
	watchURL    string
	watchWindow int
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "실시간 피드 기반 예측",
	Long: `websocket 피드의 봉 메시지를 받아 섹터 시계열을 갱신하고
갱신될 때마다 해당 섹터 예측을 다시 계산합니다.

--input 데이터셋으로 초기 시계열을 채우고, --train 이면 시작 전에 학습합니다.
학습하지 않으면 아티팩트 저장소의 모델을 사용합니다.

Example:
  go run ./cmd/sectorcast watch --url ws://localhost:9000/bars --input data/sample.json --train
  go run ./cmd/sectorcast watch --sectors Tech,Energy`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchURL, "url", "", "feed websocket URL (default: $FEED_URL)")
	watchCmd.Flags().StringVarP(&inputPath, "input", "i", "", "dataset JSON used to seed the series")
	watchCmd.Flags().StringVar(&sectorList, "sectors", "", "comma separated sectors to subscribe (default: all)")
	watchCmd.Flags().BoolVar(&doTrain, "train", false, "train on the seed dataset before watching")
	watchCmd.Flags().IntVar(&watchWindow, "window", 120, "bars kept per instrument")
}

func runWatch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sectorcast Realtime Watch ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	url := watchURL
	if url == "" {
		url = d.cfg.FeedURL
	}
	if url == "" {
		return fmt.Errorf("feed URL not set (--url or FEED_URL)")
	}

	sectors := splitList(sectorList)
	var seed *features.Dataset
	if inputPath != "" {
		if seed, err = loadInput(ctx, d); err != nil {
			return err
		}
		if doTrain {
			batch, err := d.orchestrator.Train(ctx, seed)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}
			fmt.Printf("✅ Trained %d sector(s)\n", len(batch.Results))
			printFailures(batch.Failures)
		}
		if len(sectors) == 0 {
			sectors = seed.SectorNames()
		}
	}
	if len(sectors) > 0 {
		for sector, err := range d.models.LoadAll(ctx, missingModels(d, sectors), d.artifacts) {
			d.log.WithError(err).WithField("sector", sector).Warn("No model for sector, predictions will fail")
		}
	}

	builder := features.NewBuilder(d.log.Zerolog())
	var sentiment []contracts.SentimentAggregate
	if seed != nil {
		sentiment = seed.Sentiment
	}

	onSnapshot := func(ctx context.Context, sector string, series contracts.SectorSeries) {
		m, _ := builder.Build(series, sentiment)
		p, err := d.predictor.Predict(ctx, sector, m)
		if err != nil {
			d.log.WithError(err).WithField("sector", sector).Debug("Realtime prediction skipped")
			return
		}
		fmt.Printf("%s  %-16s %+.3f%%  conf %.2f  (%s)\n",
			time.Now().Format("15:04:05"), p.Sector, p.PredictedChange, p.Confidence, p.ModelKind)
	}

	monitor := realtime.NewMonitor(watchWindow, onSnapshot, d.log.Zerolog())
	if seed != nil {
		for _, name := range seed.SectorNames() {
			monitor.Seed(name, seed.Sectors[name])
		}
	}

	client := feed.NewClient(url, sectors, d.log)
	fmt.Printf("✅ Subscribing to %s (sectors: %v)\n", url, sectors)
	fmt.Println("Press Ctrl+C to stop")

	if err := monitor.Run(ctx, client.Stream(ctx)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("\nWatch stopped")
	return nil
}

func missingModels(d *deps, sectors []string) []string {
	var out []string
	for _, s := range sectors {
		if d.models.Get(s) == nil {
			out = append(out, s)
		}
	}
	return out
}
