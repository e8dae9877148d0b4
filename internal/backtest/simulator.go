// Package backtest turns condition signals into forward-return trades
// and aggregates them across a security universe.
package backtest

import (
	"time"

	"github.com/wonny/stockscan/internal/contracts"
)

// Simulate emits one trade per signal day inside [start, end]. Entry is
// the signal day's close; exit is the close `horizon` bars later, the
// exit index clamped to the series' last bar. A signal whose clamped
// exit is not strictly after the entry produces no trade.
// ⭐ SSOT: 신호→수익률 변환은 이 함수에서만
func Simulate(s *contracts.PriceSeries, name string, start, end time.Time, horizon int) []contracts.TradeRecord {
	if s == nil || s.Empty() || horizon <= 0 {
		return nil
	}
	signal := s.Signal()
	if signal == nil {
		return nil
	}

	lo, hi := s.IndexRange(start, end)
	last := s.Len() - 1

	var trades []contracts.TradeRecord
	for i := lo; i < hi; i++ {
		if !signal[i] {
			continue
		}

		exitIdx := i + horizon
		if exitIdx > last {
			exitIdx = last
		}
		if exitIdx <= i {
			continue // too close to the series' end
		}

		entry := s.Bars[i]
		exit := s.Bars[exitIdx]
		if entry.Close == 0 {
			continue
		}

		returnPct := (exit.Close - entry.Close) / entry.Close * 100
		// Only a strictly positive return counts as up; flat is down
		direction := contracts.DirectionDown
		if returnPct > 0 {
			direction = contracts.DirectionUp
		}

		trades = append(trades, contracts.TradeRecord{
			Code:       s.Code,
			Name:       name,
			EntryDate:  entry.Date,
			EntryPrice: entry.Close,
			ExitDate:   exit.Date,
			ExitPrice:  exit.Close,
			ReturnPct:  returnPct,
			Direction:  direction,
		})
	}
	return trades
}
