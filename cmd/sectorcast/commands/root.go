package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	pipelineFile string
	storeBackend string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sectorcast",
	Short: "섹터 등락률 예측 파이프라인",
	Long: `sectorcast Unified CLI

섹터별 모델 학습, 예측, 백테스트, 성과 리포트.
환경변수는 .env 또는 프로세스 환경에서 읽는다.

Usage:
  go run ./cmd/sectorcast [command]

Examples:
  go run ./cmd/sectorcast dataset sample --out data/sample.json
  go run ./cmd/sectorcast train --input data/sample.json
  go run ./cmd/sectorcast predict --input data/sample.json --record
  go run ./cmd/sectorcast report summary --period 30
  go run ./cmd/sectorcast api`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if storeBackend != "" {
			os.Setenv("STORE_BACKEND", storeBackend)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&pipelineFile, "pipeline", "", "pipeline YAML (default: $PIPELINE_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend override (postgres|memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
