package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/fundamental"
	"github.com/wonny/stockscan/internal/technical"
	"github.com/wonny/stockscan/pkg/logger"
)

// Request describes one backtest over one or many securities.
type Request struct {
	Technical   *contracts.ConditionSpec
	Fundamental *contracts.FundamentalConditionSpec
	Start       time.Time
	End         time.Time
	Horizon     int

	// LookbackDays shifts the price fetch window back so long moving
	// averages are defined by Start.
	LookbackDays int
}

// Validate checks the request is runnable.
func (r *Request) Validate() error {
	if r.Technical == nil {
		return fmt.Errorf("technical condition spec is required")
	}
	if err := r.Technical.Validate(); err != nil {
		return fmt.Errorf("technical spec: %w", err)
	}
	if err := r.Fundamental.Validate(); err != nil {
		return fmt.Errorf("fundamental spec: %w", err)
	}
	if r.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1 trading day")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end date %s before start date %s",
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

func (r *Request) lookbackDays() int {
	if r.LookbackDays > 0 {
		return r.LookbackDays
	}
	return 200
}

// Result is one security's backtest outcome.
type Result struct {
	Security contracts.Security
	Trades   []contracts.TradeRecord
}

// Engine runs the signal pipeline for a single security: fetch, extend
// MAs, evaluate both condition layers, simulate forward returns.
// ⭐ SSOT: 단일 종목 백테스트 파이프라인은 이 엔진에서만
type Engine struct {
	prices   contracts.PriceProvider
	filings  contracts.FilingProvider
	techEval *technical.Evaluator
	fundEval *fundamental.Evaluator
	logger   *logger.Logger
}

// NewEngine creates a backtest engine. filings may be nil when no
// fundamental data source is configured; fundamental conditions then
// evaluate all-false.
func NewEngine(prices contracts.PriceProvider, filings contracts.FilingProvider, log *logger.Logger) *Engine {
	return &Engine{
		prices:   prices,
		filings:  filings,
		techEval: technical.NewEvaluator(log),
		fundEval: fundamental.NewEvaluator(log),
		logger:   log,
	}
}

// Run executes the pipeline for one security.
func (e *Engine) Run(ctx context.Context, security contracts.Security, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fetchFrom := req.Start.AddDate(0, 0, -req.lookbackDays())
	series, err := e.prices.FetchPrices(ctx, security.Code, fetchFrom, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", security.Code, err)
	}
	if series == nil || series.Empty() {
		return nil, fmt.Errorf("prices for %s: %w", security.Code, contracts.ErrNoData)
	}

	windows := append([]int{}, technical.DefaultWindows...)
	windows = append(windows, req.Technical.MAWindows()...)
	technical.ExtendMAs(series, windows)

	techMask, err := e.techEval.Evaluate(series, req.Technical)
	if err != nil {
		return nil, fmt.Errorf("evaluate technical conditions for %s: %w", security.Code, err)
	}

	fundMask := e.fundamentalMask(ctx, security.Code, req, series.Dates())

	combined := make([]bool, series.Len())
	for i := range combined {
		combined[i] = techMask[i] && fundMask[i]
	}
	if err := series.SetSignal(combined); err != nil {
		return nil, err
	}

	trades := Simulate(series, security.Name, req.Start, req.End, req.Horizon)

	e.logger.WithFields(map[string]interface{}{
		"stock_code": security.Code,
		"bars":       series.Len(),
		"trades":     len(trades),
	}).Debug("Backtest completed")

	return &Result{Security: security, Trades: trades}, nil
}

// fundamentalMask resolves the fundamental gate. An empty spec is
// vacuously true; a non-empty spec without a filing source, or with a
// failing one, fails closed rather than failing the run.
func (e *Engine) fundamentalMask(ctx context.Context, code string, req *Request, dates []time.Time) []bool {
	if req.Fundamental.IsEmpty() {
		return e.fundEval.Evaluate(nil, req.Fundamental, dates)
	}

	if e.filings == nil {
		e.logger.WithField("stock_code", code).Warn("Fundamental conditions requested without a filing provider")
		return make([]bool, len(dates))
	}

	fromYear, toYear := req.Fundamental.YearRange(req.Start.Year(), req.End.Year())
	records, err := e.filings.FetchFilings(ctx, code, fromYear, toYear)
	if err != nil {
		e.logger.WithError(err).WithField("stock_code", code).Warn("Filing fetch failed, fundamental gate closed")
		return make([]bool, len(dates))
	}

	stmts := fundamental.Normalize(records)
	return e.fundEval.Evaluate(stmts, req.Fundamental, dates)
}
