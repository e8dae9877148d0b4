package contracts

import "time"

// TradeDirection classifies the sign of a forward return
type TradeDirection string

const (
	DirectionUp   TradeDirection = "up"
	DirectionDown TradeDirection = "down"
)

// TradeRecord is one signal occurrence with its fixed-horizon outcome.
// Immutable once emitted.
type TradeRecord struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	EntryDate  time.Time      `json:"entry_date"`
	EntryPrice float64        `json:"entry_price"`
	ExitDate   time.Time      `json:"exit_date"`
	ExitPrice  float64        `json:"exit_price"`
	ReturnPct  float64        `json:"return_pct"`
	Direction  TradeDirection `json:"direction"`
}

// ScanSummary aggregates one stock's trades inside a universe scan
type ScanSummary struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Occurrences  int     `json:"occurrences"`
	AvgReturnPct float64 `json:"avg_return_pct"`
	WinRatePct   float64 `json:"win_rate_pct"`
}

// Summarize computes a ScanSummary from a non-empty trade list.
// Returns false when trades is empty (zero-trade stocks are excluded
// from scan output, never divided by zero).
func Summarize(code, name string, trades []TradeRecord) (ScanSummary, bool) {
	if len(trades) == 0 {
		return ScanSummary{}, false
	}

	var sum float64
	wins := 0
	for _, tr := range trades {
		sum += tr.ReturnPct
		if tr.ReturnPct > 0 {
			wins++
		}
	}

	n := len(trades)
	return ScanSummary{
		Code:         code,
		Name:         name,
		Occurrences:  n,
		AvgReturnPct: sum / float64(n),
		WinRatePct:   100 * float64(wins) / float64(n),
	}, true
}
