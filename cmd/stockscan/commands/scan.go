package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscan/internal/backtest"
	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/preset"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "유니버스 스캔",
	Long: `저장된 스크린을 시장 전체(또는 CSV 종목 목록)에 평가하고
종목별 시그널 발생 횟수, 평균 수익률, 승률로 순위를 매깁니다.

Example:
  go run ./cmd/stockscan scan run --preset golden-cross
  go run ./cmd/stockscan scan run --preset golden-cross --market KOSDAQ --top 50
  go run ./cmd/stockscan scan list`,
}

var (
	scanRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스캔 실행",
		Long: `유니버스 전체에 스크린을 평가합니다.

Flags:
  --preset    스크린 프리셋 이름 (필수)
  --market    시장 (KOSPI|KOSDAQ|ALL, 기본: 프리셋)
  --universe  종목 목록 CSV (기본: 시가총액 랭킹)
  --top       출력 상위 종목 수 (기본: 30)
  --save      결과를 데이터베이스에 저장

Example:
  go run ./cmd/stockscan scan run --preset golden-cross
  go run ./cmd/stockscan scan run --preset golden-cross --universe watchlist.csv --save`,
		RunE: runScan,
	}

	scanListCmd = &cobra.Command{
		Use:   "list",
		Short: "저장된 스크린 목록",
		RunE:  listPresets,
	}

	// Flags
	scanPreset      string
	scanMarket      string
	scanUniverseCSV string
	scanTop         int
	scanSave        bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanRunCmd)
	scanCmd.AddCommand(scanListCmd)

	// Flags
	scanRunCmd.Flags().StringVar(&scanPreset, "preset", "", "스크린 프리셋 이름 (필수)")
	scanRunCmd.Flags().StringVar(&scanMarket, "market", "", "시장 (KOSPI|KOSDAQ|ALL)")
	scanRunCmd.Flags().StringVar(&scanUniverseCSV, "universe", "", "종목 목록 CSV")
	scanRunCmd.Flags().IntVar(&scanTop, "top", 30, "출력 상위 종목 수")
	scanRunCmd.Flags().BoolVar(&scanSave, "save", false, "결과를 데이터베이스에 저장")

	scanRunCmd.MarkFlagRequired("preset")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stockscan Universe Scan ===")

	rt, err := initRuntime(scanUniverseCSV)
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := preset.Find(rt.cfg.Scan.PresetDir, scanPreset)
	if err != nil {
		return fmt.Errorf("load preset: %w", err)
	}
	hash, err := preset.Hash(p)
	if err != nil {
		return fmt.Errorf("hash preset: %w", err)
	}

	market := p.Market
	if scanMarket != "" {
		market = contracts.Market(strings.ToUpper(scanMarket))
		if !market.Valid() {
			return fmt.Errorf("invalid market: %s", scanMarket)
		}
	}

	end := time.Now().Truncate(24 * time.Hour)
	start, _ := p.Window(end)

	req := &backtest.Request{
		Technical:    p.Technical,
		Fundamental:  p.Fundamental,
		Start:        start,
		End:          end,
		Horizon:      p.HorizonDays,
		LookbackDays: rt.cfg.Scan.LookbackDays,
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("🔎 Preset: %s (%s)\n", p.Name, hash[:12])
	fmt.Printf("🏛  Market: %s\n", market)

	securities, err := rt.universe.ListSecurities(cmd.Context(), market)
	if err != nil {
		return fmt.Errorf("resolve universe: %w", err)
	}
	if p.TopN > 0 && len(securities) > p.TopN {
		securities = securities[:p.TopN]
	}
	fmt.Printf("📋 Universe: %d stocks\n\n", len(securities))

	startedAt := time.Now()
	progress := func(completed, total int) {
		fmt.Printf("\r[Scan] %d/%d stocks", completed, total)
	}

	result, err := rt.scanner.Scan(cmd.Context(), securities, req, p.MinWinRatePct, progress)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	fmt.Printf("\n\n✅ Scanned %d stocks (%d skipped) in %.1fs\n\n",
		result.Scanned, result.Skipped, time.Since(startedAt).Seconds())

	printSummaries(result.Summaries, scanTop)

	if !scanSave {
		return nil
	}
	if rt.repo == nil {
		return fmt.Errorf("--save requires DATABASE_URL to be configured")
	}

	run := &backtest.RunRecord{
		PresetName:    p.Name,
		PresetHash:    hash,
		Market:        market,
		Start:         start,
		End:           end,
		Horizon:       p.HorizonDays,
		MinWinRatePct: p.MinWinRatePct,
		UniverseSize:  len(securities),
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
	}
	runID, err := rt.repo.SaveRun(cmd.Context(), run, result)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("\n💾 Saved as run #%d\n", runID)

	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime("")
	if err != nil {
		return err
	}
	defer rt.Close()

	presets, err := preset.LoadDir(rt.cfg.Scan.PresetDir)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	if len(presets) == 0 {
		fmt.Printf("No presets in %s\n", rt.cfg.Scan.PresetDir)
		return nil
	}

	fmt.Println("Saved screens:")
	for _, p := range presets {
		fmt.Printf("  - %-20s %s (%s, horizon %dd, window %dd)\n",
			p.Name, p.Description, p.Market, p.HorizonDays, p.WindowDays)
	}

	return nil
}
