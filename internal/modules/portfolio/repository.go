// Package portfolio provides the SQLite-backed portfolio store.
package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Schema holds the DDL for the portfolio database.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id TEXT PRIMARY KEY,
	risk_tolerance TEXT NOT NULL DEFAULT 'medium',
	last_rebalanced_at INTEGER,
	created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS positions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	protocol TEXT NOT NULL,
	chain TEXT NOT NULL,
	symbol TEXT NOT NULL,
	value REAL NOT NULL,
	initial_yield REAL NOT NULL,
	current_yield REAL,
	initial_risk_score REAL,
	current_risk_score REAL,
	entered_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_portfolio ON positions(portfolio_id);

CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	severity TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_analyses_portfolio ON analyses(portfolio_id, created_at DESC);
`

// Repository handles portfolio database operations. It implements
// domain.PortfolioStore.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Get returns the portfolio with its positions, or domain.ErrPortfolioNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, risk_tolerance, last_rebalanced_at FROM portfolios WHERE id = ?`, id)

	var p domain.Portfolio
	var tolerance string
	var lastRebalancedUnix sql.NullInt64
	if err := row.Scan(&p.ID, &tolerance, &lastRebalancedUnix); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	p.RiskTolerance = domain.RiskTolerance(tolerance)
	if lastRebalancedUnix.Valid {
		t := time.Unix(lastRebalancedUnix.Int64, 0).UTC()
		p.LastRebalanced = &t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT protocol, chain, symbol, value, initial_yield, current_yield,
			initial_risk_score, current_risk_score, entered_at
		FROM positions WHERE portfolio_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Positions = append(p.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return &p, nil
}

// ListIDs returns all stored portfolio identifiers.
func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio ids: %w", err)
	}
	return ids, nil
}

// Save upserts the portfolio and replaces its positions in one transaction.
func (r *Repository) Save(ctx context.Context, p *domain.Portfolio) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastRebalanced interface{}
	if p.LastRebalanced != nil {
		lastRebalanced = p.LastRebalanced.UTC().Unix()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO portfolios (id, risk_tolerance, last_rebalanced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			risk_tolerance = excluded.risk_tolerance,
			last_rebalanced_at = excluded.last_rebalanced_at`,
		p.ID, string(p.RiskTolerance), lastRebalanced); err != nil {
		return fmt.Errorf("failed to upsert portfolio: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE portfolio_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	for _, pos := range p.Positions {
		var currentYield, initialRisk, currentRisk interface{}
		if pos.CurrentYield != nil {
			currentYield = *pos.CurrentYield
		}
		if pos.InitialRiskScore != nil {
			initialRisk = *pos.InitialRiskScore
		}
		if pos.CurrentRiskScore != nil {
			currentRisk = *pos.CurrentRiskScore
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO positions (portfolio_id, protocol, chain, symbol, value,
				initial_yield, current_yield, initial_risk_score, current_risk_score, entered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, pos.Protocol, pos.Chain, pos.Symbol, pos.Value,
			pos.InitialYield, currentYield, initialRisk, currentRisk, pos.EnteredAt.UTC().Unix()); err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio save: %w", err)
	}
	return nil
}

// SaveAnalysis persists one analysis result as a JSON payload.
func (r *Repository) SaveAnalysis(ctx context.Context, analysis *domain.AnalysisResult) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO analyses (id, portfolio_id, severity, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		analysis.ID, analysis.PortfolioID, string(analysis.Evaluation.Severity),
		string(payload), analysis.AnalyzedAt.UTC().Unix()); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	r.log.Debug().
		Str("portfolio_id", analysis.PortfolioID).
		Str("analysis_id", analysis.ID).
		Msg("Analysis persisted")
	return nil
}

// History returns the most recent analyses for a portfolio, newest first.
// limit <= 0 means a default page of 20.
func (r *Repository) History(ctx context.Context, id string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, portfolio_id, severity, payload, created_at
		FROM analyses WHERE portfolio_id = ?
		ORDER BY created_at DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []domain.AnalysisRecord
	for rows.Next() {
		var rec domain.AnalysisRecord
		var payload string
		var createdAtUnix int64
		if err := rows.Scan(&rec.ID, &rec.PortfolioID, &rec.Severity, &payload, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		rec.Analysis = []byte(payload)
		rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC().Format(time.RFC3339)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return records, nil
}

// scanPosition reads one positions row.
func scanPosition(rows *sql.Rows) (domain.Position, error) {
	var pos domain.Position
	var currentYield, initialRisk, currentRisk sql.NullFloat64
	var enteredAtUnix int64

	err := rows.Scan(&pos.Protocol, &pos.Chain, &pos.Symbol, &pos.Value,
		&pos.InitialYield, &currentYield, &initialRisk, &currentRisk, &enteredAtUnix)
	if err != nil {
		return domain.Position{}, err
	}

	if currentYield.Valid {
		v := currentYield.Float64
		pos.CurrentYield = &v
	}
	if initialRisk.Valid {
		v := initialRisk.Float64
		pos.InitialRiskScore = &v
	}
	if currentRisk.Valid {
		v := currentRisk.Float64
		pos.CurrentRiskScore = &v
	}
	pos.EnteredAt = time.Unix(enteredAtUnix, 0).UTC()

	return pos, nil
}
