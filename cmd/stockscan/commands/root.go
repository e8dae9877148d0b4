package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockscan",
	Short: "Stockscan - 시그널 스크리닝 및 백테스트 엔진",
	Long: `Stockscan Unified CLI

기술적/펀더멘털 조건을 과거 시세에 평가하고
시그널 발생 후 보유 수익률을 시뮬레이션합니다.

Usage:
  go run ./cmd/stockscan [command]

Examples:
  go run ./cmd/stockscan api
  go run ./cmd/stockscan backtest run --code 005930 --preset golden-cross
  go run ./cmd/stockscan scan run --preset golden-cross
  go run ./cmd/stockscan scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
