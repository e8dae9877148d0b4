package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

// fakePrices serves canned bars per stock code, rebuilding the series on
// every call the way a real provider would.
type fakePrices struct {
	bars map[string][]contracts.PriceBar
	errs map[string]error
}

func (f *fakePrices) FetchPrices(_ context.Context, code string, _, _ time.Time) (*contracts.PriceSeries, error) {
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	bars := make([]contracts.PriceBar, len(f.bars[code]))
	copy(bars, f.bars[code])
	return contracts.NewPriceSeries(code, bars), nil
}

type fakeFilings struct {
	records []contracts.FilingRecord
	err     error
}

func (f *fakeFilings) FetchFilings(_ context.Context, _ string, _, _ int) ([]contracts.FilingRecord, error) {
	return f.records, f.err
}

// risingBars builds n consecutive daily bars with strictly rising closes
// so a close-above-MA breakout holds on every defined row.
func risingBars(n int) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = contracts.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func breakoutRequest(bars []contracts.PriceBar, horizon int) *Request {
	last := bars[len(bars)-1].Date
	return &Request{
		Technical: &contracts.ConditionSpec{
			Breakout: &contracts.BreakoutRule{
				Field:  contracts.FieldClose,
				Op:     contracts.OpAbove,
				Window: 5,
			},
		},
		Start:   last.AddDate(0, 0, -5),
		End:     last,
		Horizon: horizon,
	}
}

func TestEngineRunFullPipeline(t *testing.T) {
	bars := risingBars(130)
	engine := NewEngine(&fakePrices{bars: map[string][]contracts.PriceBar{"005930": bars}}, nil, logger.NewNop())

	req := breakoutRequest(bars, 1)
	result, err := engine.Run(context.Background(), contracts.Security{Code: "005930", Name: "삼성전자"}, req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Six bars inside the window, close > MA5 on all of them, the last
	// one has no later bar: five trades.
	if len(result.Trades) != 5 {
		t.Fatalf("got %d trades, want 5", len(result.Trades))
	}
	for _, tr := range result.Trades {
		if tr.ReturnPct <= 0 {
			t.Errorf("return = %v, want positive on rising closes", tr.ReturnPct)
		}
		if tr.Name != "삼성전자" {
			t.Errorf("trade name = %q", tr.Name)
		}
	}
}

func TestEngineRunShortHistoryYieldsNoTrades(t *testing.T) {
	bars := risingBars(60) // below the 120-bar technical floor
	engine := NewEngine(&fakePrices{bars: map[string][]contracts.PriceBar{"X": bars}}, nil, logger.NewNop())

	result, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, breakoutRequest(bars, 1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("got %d trades, want 0 below the history floor", len(result.Trades))
	}
}

func TestEngineRunEmptySeries(t *testing.T) {
	engine := NewEngine(&fakePrices{bars: map[string][]contracts.PriceBar{}}, nil, logger.NewNop())

	req := breakoutRequest(risingBars(10), 1)
	if _, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req); !errors.Is(err, contracts.ErrNoData) {
		t.Errorf("Run() error = %v, want ErrNoData", err)
	}
}

func TestEngineRunProviderError(t *testing.T) {
	boom := errors.New("provider down")
	engine := NewEngine(&fakePrices{errs: map[string]error{"X": boom}}, nil, logger.NewNop())

	req := breakoutRequest(risingBars(10), 1)
	if _, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want wrapped provider error", err)
	}
}

func TestEngineRunInvalidRequest(t *testing.T) {
	engine := NewEngine(&fakePrices{}, nil, logger.NewNop())

	req := &Request{Technical: &contracts.ConditionSpec{}, Horizon: 0, Start: day0, End: day0}
	if _, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req); err == nil {
		t.Error("Run() expected error for zero horizon")
	}
}

func TestEngineFundamentalGateFailsClosedWithoutProvider(t *testing.T) {
	bars := risingBars(130)
	engine := NewEngine(&fakePrices{bars: map[string][]contracts.PriceBar{"X": bars}}, nil, logger.NewNop())

	req := breakoutRequest(bars, 1)
	req.Fundamental = &contracts.FundamentalConditionSpec{
		Surplus: map[string]contracts.SurplusRule{
			contracts.AccountNetIncome: {Period: contracts.PeriodYear},
		},
	}

	result, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("got %d trades, want 0 when fundamentals cannot be checked", len(result.Trades))
	}
}

func TestEngineFundamentalGateOpensWithQualifyingFilings(t *testing.T) {
	bars := risingBars(130)

	// Three profitable annual filings, all effective before the series
	// starts, keep the surplus gate open across the window.
	var records []contracts.FilingRecord
	for year := 2019; year <= 2021; year++ {
		records = append(records, contracts.FilingRecord{
			StockCode:    "X",
			FiscalYear:   year,
			Report:       contracts.ReportAnnual,
			Account:      "당기순이익",
			Amount:       1000,
			Consolidated: true,
		})
	}

	engine := NewEngine(
		&fakePrices{bars: map[string][]contracts.PriceBar{"X": bars}},
		&fakeFilings{records: records},
		logger.NewNop(),
	)

	req := breakoutRequest(bars, 1)
	req.Fundamental = &contracts.FundamentalConditionSpec{
		Surplus: map[string]contracts.SurplusRule{
			contracts.AccountNetIncome: {Period: contracts.PeriodYear},
		},
	}

	result, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Trades) != 5 {
		t.Errorf("got %d trades, want 5 with the fundamental gate open", len(result.Trades))
	}
}

func TestEngineFundamentalFetchErrorClosesGate(t *testing.T) {
	bars := risingBars(130)
	engine := NewEngine(
		&fakePrices{bars: map[string][]contracts.PriceBar{"X": bars}},
		&fakeFilings{err: errors.New("dart down")},
		logger.NewNop(),
	)

	req := breakoutRequest(bars, 1)
	req.Fundamental = &contracts.FundamentalConditionSpec{
		Surplus: map[string]contracts.SurplusRule{
			contracts.AccountNetIncome: {Period: contracts.PeriodYear},
		},
	}

	// A provider outage degrades to "gate closed": the run still
	// completes, it just produces no signals.
	result, err := engine.Run(context.Background(), contracts.Security{Code: "X"}, req)
	if err != nil {
		t.Fatalf("Run() error = %v, want gate closed instead of failure", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("got %d trades, want 0 when the filing provider is down", len(result.Trades))
	}
}
