// Package marketcache provides persistent caching for market pool snapshots.
// Snapshots are stored as JSON blobs with expiration timestamps so restarts
// and scheduler sweeps do not hammer the upstream API.
package marketcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/yieldwatch/internal/domain"
)

// DefaultTTL is how long a pool snapshot stays fresh. Yields move slowly
// enough that a quarter hour of staleness does not change any verdict.
const DefaultTTL = 15 * time.Minute

// Schema holds the DDL for the market cache database.
const Schema = `
CREATE TABLE IF NOT EXISTS pool_snapshots (
	key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pool_snapshots_expires ON pool_snapshots(expires_at);
`

// snapshotKey is the single row key; the cache holds one market snapshot.
const snapshotKey = "pools"

// Repository provides cache operations for pool snapshots.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new market cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves the snapshot with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, pools []domain.MarketPool, ttl time.Duration) error {
	payload, err := json.Marshal(pools)
	if err != nil {
		return fmt.Errorf("failed to marshal pool snapshot: %w", err)
	}

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pool_snapshots (key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		snapshotKey, string(payload), now.Unix(), now.Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store pool snapshot: %w", err)
	}
	return nil
}

// Get returns the stored snapshot. fresh reports whether it is still within
// its TTL; an expired snapshot is returned anyway so callers can fall back to
// it when the upstream is down.
func (r *Repository) Get(ctx context.Context) (pools []domain.MarketPool, fresh bool, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM pool_snapshots WHERE key = ?`, snapshotKey)

	var payload string
	var expiresAtUnix int64
	if err := row.Scan(&payload, &expiresAtUnix); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query pool snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &pools); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal pool snapshot: %w", err)
	}

	fresh = time.Now().UTC().Unix() < expiresAtUnix
	return pools, fresh, nil
}

// PurgeExpired deletes expired snapshots and returns the number removed.
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pool_snapshots WHERE expires_at < ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired snapshots: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged snapshots: %w", err)
	}
	return removed, nil
}
