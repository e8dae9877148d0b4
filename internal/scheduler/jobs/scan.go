package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockscan/internal/backtest"
	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/preset"
	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/logger"
)

// ScanJob runs a saved screen over the full universe after the market closes
// ⭐ SSOT: 정기 스캔 스케줄은 이 Job에서만
type ScanJob struct {
	scanner  *backtest.Scanner
	universe contracts.UniverseProvider
	repo     *backtest.Repository // nil when persistence is disabled
	cfg      config.ScanConfig
	logger   *logger.Logger
}

// NewScanJob creates a new scheduled scan job
func NewScanJob(scanner *backtest.Scanner, universe contracts.UniverseProvider, repo *backtest.Repository, cfg config.ScanConfig, log *logger.Logger) *ScanJob {
	return &ScanJob{
		scanner:  scanner,
		universe: universe,
		repo:     repo,
		cfg:      cfg,
		logger:   log,
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "nightly_scan"
}

// Schedule returns the cron schedule (weekdays after the KRX close)
func (j *ScanJob) Schedule() string {
	if j.cfg.ScheduleSpec != "" {
		return j.cfg.ScheduleSpec
	}
	return "0 0 18 * * MON-FRI" // 6 PM weekdays (with seconds)
}

// Run executes the scheduled scan
func (j *ScanJob) Run(ctx context.Context) error {
	p, err := preset.Find(j.cfg.PresetDir, j.cfg.SchedulePreset)
	if err != nil {
		return fmt.Errorf("failed to load scheduled preset: %w", err)
	}
	hash, err := preset.Hash(p)
	if err != nil {
		return fmt.Errorf("failed to hash preset: %w", err)
	}

	end := time.Now().Truncate(24 * time.Hour)
	start, _ := p.Window(end)

	req := &backtest.Request{
		Technical:    p.Technical,
		Fundamental:  p.Fundamental,
		Start:        start,
		End:          end,
		Horizon:      p.HorizonDays,
		LookbackDays: j.cfg.LookbackDays,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid preset request: %w", err)
	}

	if params, err := backtest.MarshalParams(req); err == nil {
		j.logger.WithFields(map[string]interface{}{
			"preset": p.Name,
			"hash":   hash,
			"params": string(params),
		}).Info("Starting scheduled scan")
	}

	securities, err := j.universe.ListSecurities(ctx, p.Market)
	if err != nil {
		return fmt.Errorf("failed to resolve universe: %w", err)
	}
	if p.TopN > 0 && len(securities) > p.TopN {
		securities = securities[:p.TopN]
	}

	startedAt := time.Now()
	result, err := j.scanner.Scan(ctx, securities, req, p.MinWinRatePct, nil)
	if err != nil {
		return fmt.Errorf("scheduled scan failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"preset":    p.Name,
		"scanned":   result.Scanned,
		"skipped":   result.Skipped,
		"summaries": len(result.Summaries),
	}).Info("Scheduled scan completed")

	if j.repo == nil {
		return nil
	}

	run := &backtest.RunRecord{
		PresetName:    p.Name,
		PresetHash:    hash,
		Market:        p.Market,
		Start:         start,
		End:           end,
		Horizon:       p.HorizonDays,
		MinWinRatePct: p.MinWinRatePct,
		UniverseSize:  len(securities),
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
	}
	runID, err := j.repo.SaveRun(ctx, run, result)
	if err != nil {
		return fmt.Errorf("failed to persist scan run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"preset": p.Name,
	}).Info("Scan run persisted")

	return nil
}
