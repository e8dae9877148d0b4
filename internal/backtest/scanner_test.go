package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

func newTestScanner(prices *fakePrices, workers int) *Scanner {
	log := logger.NewNop()
	return NewScanner(NewEngine(prices, nil, log), log, workers)
}

func TestScanAggregatesAndSorts(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{bars: map[string][]contracts.PriceBar{
		// Identical series: equal average returns, tie broken by code.
		"000660": rising,
		"005930": rising,
	}}
	scanner := newTestScanner(prices, 2)

	securities := []contracts.Security{
		{Code: "005930", Name: "삼성전자"},
		{Code: "000660", Name: "SK하이닉스"},
	}

	result, err := scanner.Scan(context.Background(), securities, breakoutRequest(rising, 1), 50, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(result.Summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(result.Summaries))
	}
	if result.Summaries[0].Code != "000660" || result.Summaries[1].Code != "005930" {
		t.Errorf("tie not broken by code: %s, %s", result.Summaries[0].Code, result.Summaries[1].Code)
	}
	for _, summary := range result.Summaries {
		if summary.Occurrences != 5 {
			t.Errorf("%s occurrences = %d, want 5", summary.Code, summary.Occurrences)
		}
		if summary.WinRatePct != 100 {
			t.Errorf("%s win rate = %v, want 100", summary.Code, summary.WinRatePct)
		}
		if len(result.Trades[summary.Code]) != 5 {
			t.Errorf("%s trades = %d, want 5", summary.Code, len(result.Trades[summary.Code]))
		}
	}
}

func TestScanSkipsFailedSecurities(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{
		bars: map[string][]contracts.PriceBar{"005930": rising},
		errs: map[string]error{"999999": errors.New("provider down")},
	}
	scanner := newTestScanner(prices, 2)

	securities := []contracts.Security{
		{Code: "005930", Name: "삼성전자"},
		{Code: "999999", Name: "유령종목"},
	}

	result, err := scanner.Scan(context.Background(), securities, breakoutRequest(rising, 1), 0, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Skipped != 1 || result.Scanned != 1 {
		t.Errorf("scanned/skipped = %d/%d, want 1/1", result.Scanned, result.Skipped)
	}
	if len(result.Summaries) != 1 {
		t.Errorf("got %d summaries, want 1", len(result.Summaries))
	}
}

func TestScanExcludesZeroTradeSecurities(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{bars: map[string][]contracts.PriceBar{
		"005930": rising,
		"035420": risingBars(60), // below the history floor: no signals
	}}
	scanner := newTestScanner(prices, 1)

	securities := []contracts.Security{
		{Code: "005930"},
		{Code: "035420"},
	}

	result, err := scanner.Scan(context.Background(), securities, breakoutRequest(rising, 1), 0, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Scanned != 2 {
		t.Errorf("scanned = %d, want 2", result.Scanned)
	}
	if len(result.Summaries) != 1 {
		t.Fatalf("got %d summaries, want zero-trade security excluded", len(result.Summaries))
	}
	if result.Summaries[0].Code != "005930" {
		t.Errorf("kept %s, want 005930", result.Summaries[0].Code)
	}
}

func TestScanFiltersByWinRate(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{bars: map[string][]contracts.PriceBar{"005930": rising}}
	scanner := newTestScanner(prices, 1)

	securities := []contracts.Security{{Code: "005930"}}

	// All trades win, but the threshold is out of reach.
	result, err := scanner.Scan(context.Background(), securities, breakoutRequest(rising, 1), 101, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Summaries) != 0 {
		t.Errorf("got %d summaries, want 0 above win-rate threshold", len(result.Summaries))
	}
}

func TestScanReportsProgress(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{bars: map[string][]contracts.PriceBar{
		"A00001": rising, "A00002": rising, "A00003": rising,
	}}
	scanner := newTestScanner(prices, 2)

	securities := []contracts.Security{{Code: "A00001"}, {Code: "A00002"}, {Code: "A00003"}}

	var mu sync.Mutex
	var calls []int
	progress := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		calls = append(calls, completed)
	}

	if _, err := scanner.Scan(context.Background(), securities, breakoutRequest(rising, 1), 0, progress); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 3 {
		t.Fatalf("progress called %d times, want 3", len(calls))
	}
	if calls[len(calls)-1] != 3 {
		t.Errorf("final completed = %d, want 3", calls[len(calls)-1])
	}
}

func TestScanCancellation(t *testing.T) {
	rising := risingBars(130)
	prices := &fakePrices{bars: map[string][]contracts.PriceBar{"005930": rising}}
	scanner := newTestScanner(prices, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx, []contracts.Security{{Code: "005930"}}, breakoutRequest(rising, 1), 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestScanInvalidRequest(t *testing.T) {
	scanner := newTestScanner(&fakePrices{}, 1)
	req := &Request{Technical: &contracts.ConditionSpec{}, Horizon: 0}
	if _, err := scanner.Scan(context.Background(), nil, req, 0, nil); err == nil {
		t.Error("Scan() expected error for invalid request")
	}
}
