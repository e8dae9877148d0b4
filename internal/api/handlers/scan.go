package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stockscan/internal/backtest"
	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/preset"
	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/logger"
)

// ScanHandler handles backtest and scan API endpoints
// ⭐ SSOT: 백테스트/스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	engine   *backtest.Engine
	scanner  *backtest.Scanner
	universe contracts.UniverseProvider
	repo     *backtest.Repository // nil when no database is configured
	config   *config.Config
	logger   *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(engine *backtest.Engine, scanner *backtest.Scanner, universe contracts.UniverseProvider, repo *backtest.Repository, cfg *config.Config, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		engine:   engine,
		scanner:  scanner,
		universe: universe,
		repo:     repo,
		config:   cfg,
		logger:   log,
	}
}

// BacktestRequest is the POST /api/backtest payload
type BacktestRequest struct {
	Code        string                              `json:"code"`
	Name        string                              `json:"name"`
	Technical   *contracts.ConditionSpec            `json:"technical"`
	Fundamental *contracts.FundamentalConditionSpec `json:"fundamental,omitempty"`
	Start       string                              `json:"start"`
	End         string                              `json:"end"`
	HorizonDays int                                 `json:"horizon_days"`
}

// BacktestResponse pairs the trades with their aggregate summary.
// Message is set when the run produced nothing to evaluate.
type BacktestResponse struct {
	Code    string                  `json:"code"`
	Name    string                  `json:"name"`
	Trades  []contracts.TradeRecord `json:"trades"`
	Summary *contracts.ScanSummary  `json:"summary,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// Backtest runs the pipeline for one security
// POST /api/backtest
func (h *ScanHandler) Backtest(w http.ResponseWriter, r *http.Request) {
	var payload BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	req, err := h.buildRequest(payload.Technical, payload.Fundamental, payload.Start, payload.End, payload.HorizonDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	security := contracts.Security{Code: payload.Code, Name: payload.Name}
	result, err := h.engine.Run(r.Context(), security, req)
	if errors.Is(err, contracts.ErrNoData) {
		// An empty provider response is a valid empty result, not a failure
		respondJSON(w, http.StatusOK, BacktestResponse{
			Code:    payload.Code,
			Name:    payload.Name,
			Trades:  []contracts.TradeRecord{},
			Message: "no data for this security",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", payload.Code).Error("Backtest failed")
		respondError(w, http.StatusBadGateway, "backtest failed: "+err.Error())
		return
	}

	resp := BacktestResponse{Code: payload.Code, Name: payload.Name, Trades: result.Trades}
	if summary, ok := contracts.Summarize(payload.Code, payload.Name, result.Trades); ok {
		resp.Summary = &summary
	}
	respondJSON(w, http.StatusOK, resp)
}

// ScanRequest is the POST /api/scan payload
type ScanRequest struct {
	Market        contracts.Market                    `json:"market"`
	Technical     *contracts.ConditionSpec            `json:"technical"`
	Fundamental   *contracts.FundamentalConditionSpec `json:"fundamental,omitempty"`
	Start         string                              `json:"start"`
	End           string                              `json:"end"`
	HorizonDays   int                                 `json:"horizon_days"`
	MinWinRatePct *float64                            `json:"min_win_rate_pct,omitempty"`
}

// ScanResponse is the aggregated scan output
type ScanResponse struct {
	RunID     int64                   `json:"run_id,omitempty"`
	Summaries []contracts.ScanSummary `json:"summaries"`
	Scanned   int                     `json:"scanned"`
	Skipped   int                     `json:"skipped"`
}

// Scan runs the pipeline over a market universe
// POST /api/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var payload ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	resp, status, err := h.runScan(r.Context(), &payload, "", "", nil)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ScanPreset runs a saved screen by name
// POST /api/presets/{name}/scan
func (h *ScanHandler) ScanPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p, err := preset.Find(h.config.Scan.PresetDir, name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	hash, err := preset.Hash(p)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	end := time.Now().Truncate(24 * time.Hour)
	start, _ := p.Window(end)
	payload := &ScanRequest{
		Market:        p.Market,
		Technical:     p.Technical,
		Fundamental:   p.Fundamental,
		Start:         start.Format("2006-01-02"),
		End:           end.Format("2006-01-02"),
		HorizonDays:   p.HorizonDays,
		MinWinRatePct: &p.MinWinRatePct,
	}

	resp, status, err := h.runScan(r.Context(), payload, p.Name, hash, nil)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListPresets returns the saved screens
// GET /api/presets
func (h *ScanHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := preset.LoadDir(h.config.Scan.PresetDir)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load presets")
		respondError(w, http.StatusInternalServerError, "failed to load presets")
		return
	}
	respondJSON(w, http.StatusOK, presets)
}

// LatestScan returns the stored summaries of the most recent run
// GET /api/scans/latest
func (h *ScanHandler) LatestScan(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "scan persistence is not configured")
		return
	}

	summaries, err := h.repo.LatestSummaries(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest scan")
		respondError(w, http.StatusInternalServerError, "failed to load latest scan")
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// runScan resolves the universe, executes the scan and persists it.
func (h *ScanHandler) runScan(ctx context.Context, payload *ScanRequest, presetName, presetHash string, progress backtest.ProgressFunc) (*ScanResponse, int, error) {
	market := payload.Market
	if market == "" {
		market = contracts.MarketAll
	}
	if !market.Valid() {
		return nil, http.StatusBadRequest, fmt.Errorf("unknown market %q", market)
	}

	req, err := h.buildRequest(payload.Technical, payload.Fundamental, payload.Start, payload.End, payload.HorizonDays)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	minWinRate := h.config.Scan.MinWinRate
	if payload.MinWinRatePct != nil {
		minWinRate = *payload.MinWinRatePct
	}

	securities, err := h.universe.ListSecurities(ctx, market)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("resolve universe: %w", err)
	}

	startedAt := time.Now()
	result, err := h.scanner.Scan(ctx, securities, req, minWinRate, progress)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("scan failed: %w", err)
	}

	resp := &ScanResponse{
		Summaries: result.Summaries,
		Scanned:   result.Scanned,
		Skipped:   result.Skipped,
	}
	if resp.Summaries == nil {
		resp.Summaries = []contracts.ScanSummary{}
	}

	if h.repo != nil {
		run := &backtest.RunRecord{
			PresetName:    presetName,
			PresetHash:    presetHash,
			Market:        market,
			Start:         req.Start,
			End:           req.End,
			Horizon:       req.Horizon,
			MinWinRatePct: minWinRate,
			UniverseSize:  len(securities),
			StartedAt:     startedAt,
			FinishedAt:    time.Now(),
		}
		runID, err := h.repo.SaveRun(ctx, run, result)
		if err != nil {
			h.logger.WithError(err).Error("Failed to persist scan run")
		} else {
			resp.RunID = runID
		}
	}

	return resp, http.StatusOK, nil
}

// buildRequest parses the shared request fields.
func (h *ScanHandler) buildRequest(tech *contracts.ConditionSpec, fund *contracts.FundamentalConditionSpec, startStr, endStr string, horizon int) (*backtest.Request, error) {
	if tech == nil {
		return nil, fmt.Errorf("technical conditions are required")
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", startStr)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q (want YYYY-MM-DD)", endStr)
	}

	if horizon == 0 {
		horizon = h.config.Scan.HorizonDays
	}

	req := &backtest.Request{
		Technical:    tech,
		Fundamental:  fund,
		Start:        start,
		End:          end,
		Horizon:      horizon,
		LookbackDays: h.config.Scan.LookbackDays,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
