package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscan/internal/backtest"
	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/preset"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "단일 종목 백테스트",
	Long: `저장된 스크린 조건을 단일 종목의 과거 시세에 평가하고
시그널 발생일마다 보유 수익률을 시뮬레이션합니다.

Example:
  go run ./cmd/stockscan backtest run --code 005930 --preset golden-cross
  go run ./cmd/stockscan backtest run --code 005930 --preset golden-cross --from 2023-01-01 --to 2023-12-31`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `지정된 기간 동안 단일 종목 백테스트를 실행합니다.

Flags:
  --code     종목 코드 (6자리, 필수)
  --preset   스크린 프리셋 이름 (필수)
  --from     시작 날짜 (YYYY-MM-DD, 기본: 프리셋 윈도우)
  --to       종료 날짜 (YYYY-MM-DD, 기본: 오늘)
  --horizon  보유 기간 (거래일, 기본: 프리셋)

Example:
  go run ./cmd/stockscan backtest run --code 005930 --preset golden-cross
  go run ./cmd/stockscan backtest run --code 035720 --preset golden-cross --horizon 10`,
		RunE: runBacktest,
	}

	// Flags
	backtestCode    string
	backtestPreset  string
	backtestFrom    string
	backtestTo      string
	backtestHorizon int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestCode, "code", "", "종목 코드 (필수)")
	backtestRunCmd.Flags().StringVar(&backtestPreset, "preset", "", "스크린 프리셋 이름 (필수)")
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	backtestRunCmd.Flags().IntVar(&backtestHorizon, "horizon", 0, "보유 기간 (거래일)")

	backtestRunCmd.MarkFlagRequired("code")
	backtestRunCmd.MarkFlagRequired("preset")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stockscan Backtest ===")

	rt, err := initRuntime("")
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := preset.Find(rt.cfg.Scan.PresetDir, backtestPreset)
	if err != nil {
		return fmt.Errorf("load preset: %w", err)
	}

	// Resolve the window: flags override the preset window
	end := time.Now().Truncate(24 * time.Hour)
	if backtestTo != "" {
		end, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	start, _ := p.Window(end)
	if backtestFrom != "" {
		start, err = time.Parse("2006-01-02", backtestFrom)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}

	horizon := p.HorizonDays
	if backtestHorizon > 0 {
		horizon = backtestHorizon
	}

	req := &backtest.Request{
		Technical:    p.Technical,
		Fundamental:  p.Fundamental,
		Start:        start,
		End:          end,
		Horizon:      horizon,
		LookbackDays: rt.cfg.Scan.LookbackDays,
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("🔎 Preset: %s\n", p.Name)
	fmt.Printf("⏱  Horizon: %d trading days\n\n", horizon)

	result, err := rt.engine.Run(cmd.Context(), contracts.Security{Code: backtestCode}, req)
	if errors.Is(err, contracts.ErrNoData) {
		fmt.Printf("No price data for %s in this window\n", backtestCode)
		return nil
	}
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printTrades(result.Trades)

	if summary, ok := contracts.Summarize(backtestCode, result.Security.Name, result.Trades); ok {
		fmt.Printf("\n✅ %d signals | avg %+.2f%% | win rate %.1f%%\n",
			summary.Occurrences, summary.AvgReturnPct, summary.WinRatePct)
	} else {
		fmt.Println("\nNo signals in the window")
	}

	return nil
}
