package domain

import (
	"context"
	"errors"
)

// ErrPortfolioNotFound is returned by PortfolioStore.Get for unknown IDs.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// ErrEmptyPortfolio is returned by metric computations on a portfolio with no
// positions; dividing by position count or total value is undefined there.
var ErrEmptyPortfolio = errors.New("portfolio has no positions")

// MarketDataProvider supplies the current market pool snapshot.
type MarketDataProvider interface {
	ListPools(ctx context.Context) ([]MarketPool, error)
}

// RiskScorer attaches a risk assessment to a market pool. A nil result means
// the pool cannot be assessed and must be excluded from ranking.
type RiskScorer interface {
	Assess(pool MarketPool) *RiskAssessment
}

// AnalysisRecord is one persisted analysis as surfaced by history retrieval.
type AnalysisRecord struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Severity    string `json:"severity"`
	CreatedAt   string `json:"created_at"`
	Analysis    []byte `json:"analysis"`
}

// PortfolioStore persists portfolios and analysis history. The engine calls
// SaveAnalysis only when an analysis recommends rebalancing; history retrieval
// is a pass-through for the HTTP layer, never read by the engine itself.
type PortfolioStore interface {
	Get(ctx context.Context, id string) (*Portfolio, error)
	ListIDs(ctx context.Context) ([]string, error)
	SaveAnalysis(ctx context.Context, analysis *AnalysisResult) error
	History(ctx context.Context, id string, limit int) ([]AnalysisRecord, error)
}
