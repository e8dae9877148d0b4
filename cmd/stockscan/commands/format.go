package commands

import (
	"fmt"

	"github.com/wonny/stockscan/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printTrades prints simulated trades as a table
func printTrades(trades []contracts.TradeRecord) {
	if len(trades) == 0 {
		fmt.Println("  (no trades)")
		return
	}

	fmt.Println("  Entry        Exit           Entry Price    Exit Price     Return")
	fmt.Println("  ───────────────────────────────────────────────────────────────────")
	for _, t := range trades {
		arrow := "▲"
		if t.Direction == contracts.DirectionDown {
			arrow = "▼"
		}
		fmt.Printf("  %s → %s  %12.0f  %12.0f  %s %+.2f%%\n",
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			t.EntryPrice,
			t.ExitPrice,
			arrow,
			t.ReturnPct,
		)
	}
}

// printSummaries prints ranked scan summaries as a table
func printSummaries(summaries []contracts.ScanSummary, limit int) {
	if len(summaries) == 0 {
		fmt.Println("  (no stocks matched)")
		return
	}
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}

	fmt.Println("  Rank  Code    Name                  Signals   Avg Return   Win Rate")
	fmt.Println("  ─────────────────────────────────────────────────────────────────────")
	for i, s := range summaries {
		fmt.Printf("  %4d  %-6s  %-20s  %7d  %+10.2f%%  %8.1f%%\n",
			i+1, s.Code, s.Name, s.Occurrences, s.AvgReturnPct, s.WinRatePct)
	}
}
