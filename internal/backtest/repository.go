package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockscan/internal/contracts"
)

// Repository persists scan runs and their results.
// ⭐ SSOT: 스캔 결과 저장은 이 저장소에서만
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository backed by a pgx pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the scan tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE SCHEMA IF NOT EXISTS scan;

		CREATE TABLE IF NOT EXISTS scan.runs (
			id BIGSERIAL PRIMARY KEY,
			preset_name TEXT NOT NULL DEFAULT '',
			preset_hash TEXT NOT NULL DEFAULT '',
			market TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			horizon_days INT NOT NULL,
			min_win_rate_pct DOUBLE PRECISION NOT NULL,
			universe_size INT NOT NULL,
			scanned INT NOT NULL,
			skipped INT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS scan.summaries (
			run_id BIGINT NOT NULL REFERENCES scan.runs(id) ON DELETE CASCADE,
			rank INT NOT NULL,
			stock_code TEXT NOT NULL,
			stock_name TEXT NOT NULL,
			occurrences INT NOT NULL,
			avg_return_pct DOUBLE PRECISION NOT NULL,
			win_rate_pct DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, stock_code)
		);

		CREATE TABLE IF NOT EXISTS scan.trades (
			run_id BIGINT NOT NULL REFERENCES scan.runs(id) ON DELETE CASCADE,
			stock_code TEXT NOT NULL,
			entry_date DATE NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_date DATE NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			return_pct DOUBLE PRECISION NOT NULL,
			direction TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS trades_run_code_idx ON scan.trades (run_id, stock_code);
	`
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure scan schema: %w", err)
	}
	return nil
}

// RunRecord captures the parameters and timing of one stored scan.
type RunRecord struct {
	ID            int64
	PresetName    string
	PresetHash    string
	Market        contracts.Market
	Start         time.Time
	End           time.Time
	Horizon       int
	MinWinRatePct float64
	UniverseSize  int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// SaveRun stores a scan run with its summaries and trades atomically.
func (r *Repository) SaveRun(ctx context.Context, run *RunRecord, result *ScanResult) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO scan.runs (
			preset_name, preset_hash, market, start_date, end_date,
			horizon_days, min_win_rate_pct, universe_size, scanned, skipped,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		run.PresetName, run.PresetHash, string(run.Market), run.Start, run.End,
		run.Horizon, run.MinWinRatePct, run.UniverseSize, result.Scanned, result.Skipped,
		run.StartedAt, run.FinishedAt,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert scan run: %w", err)
	}

	for rank, summary := range result.Summaries {
		_, err := tx.Exec(ctx, `
			INSERT INTO scan.summaries (
				run_id, rank, stock_code, stock_name,
				occurrences, avg_return_pct, win_rate_pct
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			runID, rank+1, summary.Code, summary.Name,
			summary.Occurrences, summary.AvgReturnPct, summary.WinRatePct,
		)
		if err != nil {
			return 0, fmt.Errorf("insert summary for %s: %w", summary.Code, err)
		}

		for _, trade := range result.Trades[summary.Code] {
			_, err := tx.Exec(ctx, `
				INSERT INTO scan.trades (
					run_id, stock_code, entry_date, entry_price,
					exit_date, exit_price, return_pct, direction
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
				runID, trade.Code, trade.EntryDate, trade.EntryPrice,
				trade.ExitDate, trade.ExitPrice, trade.ReturnPct, string(trade.Direction),
			)
			if err != nil {
				return 0, fmt.Errorf("insert trade for %s: %w", trade.Code, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit scan run: %w", err)
	}
	return runID, nil
}

// LatestSummaries loads the ranked summaries of the most recent run.
func (r *Repository) LatestSummaries(ctx context.Context) ([]contracts.ScanSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.stock_code, s.stock_name, s.occurrences, s.avg_return_pct, s.win_rate_pct
		FROM scan.summaries s
		JOIN (SELECT id FROM scan.runs ORDER BY id DESC LIMIT 1) latest ON s.run_id = latest.id
		ORDER BY s.rank
	`)
	if err != nil {
		return nil, fmt.Errorf("query latest summaries: %w", err)
	}
	defer rows.Close()

	var summaries []contracts.ScanSummary
	for rows.Next() {
		var s contracts.ScanSummary
		if err := rows.Scan(&s.Code, &s.Name, &s.Occurrences, &s.AvgReturnPct, &s.WinRatePct); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// MarshalParams serializes a request for audit logging alongside a run.
func MarshalParams(req *Request) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"technical":   req.Technical,
		"fundamental": req.Fundamental,
		"start":       req.Start.Format("2006-01-02"),
		"end":         req.End.Format("2006-01-02"),
		"horizon":     req.Horizon,
	})
}
