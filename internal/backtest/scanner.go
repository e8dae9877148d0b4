package backtest

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

// ProgressFunc receives (completed, total) after each security finishes.
type ProgressFunc func(completed, total int)

// ScanResult is the aggregated outcome of a universe scan.
type ScanResult struct {
	Summaries []contracts.ScanSummary
	Trades    map[string][]contracts.TradeRecord // keyed by stock code
	Scanned   int
	Skipped   int
}

// Scanner fans the engine out over a security universe.
// 종목 간 공유 상태가 없으므로 워커 풀로 병렬 실행한다.
type Scanner struct {
	engine  *Engine
	logger  *logger.Logger
	workers int
}

// NewScanner creates a scanner with a bounded worker pool.
func NewScanner(engine *Engine, log *logger.Logger, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		engine:  engine,
		logger:  log,
		workers: workers,
	}
}

// Scan runs the pipeline for every security, drops zero-trade stocks,
// filters by minimum win rate and sorts descending by average return.
// A failed security is skipped, not fatal. Cancellation is checked
// between per-security iterations; in-flight work still completes.
func (s *Scanner) Scan(ctx context.Context, securities []contracts.Security, req *Request, minWinRatePct float64, progress ProgressFunc) (*ScanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	total := len(securities)
	jobs := make(chan contracts.Security)

	type outcome struct {
		security contracts.Security
		trades   []contracts.TradeRecord
		err      error
	}
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := range jobs {
				result, err := s.engine.Run(ctx, sec, req)
				if err != nil {
					outcomes <- outcome{security: sec, err: err}
					continue
				}
				outcomes <- outcome{security: sec, trades: result.Trades}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sec := range securities {
			select {
			case <-ctx.Done():
				return
			case jobs <- sec:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &ScanResult{Trades: make(map[string][]contracts.TradeRecord)}
	completed := 0
	for out := range outcomes {
		completed++
		if progress != nil {
			progress(completed, total)
		}

		if out.err != nil {
			result.Skipped++
			s.logger.WithError(out.err).WithField("stock_code", out.security.Code).Warn("Skipping security")
			continue
		}
		result.Scanned++

		summary, ok := contracts.Summarize(out.security.Code, out.security.Name, out.trades)
		if !ok {
			continue // zero trades
		}
		if summary.WinRatePct < minWinRatePct {
			continue
		}
		result.Summaries = append(result.Summaries, summary)
		result.Trades[out.security.Code] = out.trades
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Descending by average return; ties break on code so repeated scans
	// produce identical output.
	sort.SliceStable(result.Summaries, func(i, j int) bool {
		a, b := result.Summaries[i], result.Summaries[j]
		if a.AvgReturnPct != b.AvgReturnPct {
			return a.AvgReturnPct > b.AvgReturnPct
		}
		return a.Code < b.Code
	})

	s.logger.WithFields(map[string]interface{}{
		"total":   total,
		"scanned": result.Scanned,
		"skipped": result.Skipped,
		"matched": len(result.Summaries),
	}).Info("Scan completed")

	return result, nil
}
