package marketcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// CachedProvider wraps a MarketDataProvider with cache-first reads. A fresh
// snapshot is served directly; otherwise the upstream is fetched and cached.
// When the upstream fails and a stale snapshot exists, the stale snapshot is
// served so scheduled analyses keep working through upstream outages.
type CachedProvider struct {
	upstream domain.MarketDataProvider
	repo     *Repository
	ttl      time.Duration
	log      zerolog.Logger
}

// NewCachedProvider creates a new caching market data provider.
func NewCachedProvider(
	upstream domain.MarketDataProvider,
	repo *Repository,
	ttl time.Duration,
	log zerolog.Logger,
) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedProvider{
		upstream: upstream,
		repo:     repo,
		ttl:      ttl,
		log:      log.With().Str("component", "market_cache").Logger(),
	}
}

// ListPools implements domain.MarketDataProvider.
func (p *CachedProvider) ListPools(ctx context.Context) ([]domain.MarketPool, error) {
	cached, fresh, err := p.repo.Get(ctx)
	if err != nil {
		// A broken cache read must not take the engine down; go upstream.
		p.log.Warn().Err(err).Msg("Cache read failed")
	} else if fresh {
		p.log.Debug().Int("pools", len(cached)).Msg("Serving cached pool snapshot")
		return cached, nil
	}

	pools, upstreamErr := p.upstream.ListPools(ctx)
	if upstreamErr != nil {
		if len(cached) > 0 {
			p.log.Warn().Err(upstreamErr).
				Int("pools", len(cached)).
				Msg("Upstream fetch failed; serving stale pool snapshot")
			return cached, nil
		}
		return nil, upstreamErr
	}

	if err := p.repo.Store(ctx, pools, p.ttl); err != nil {
		p.log.Warn().Err(err).Msg("Failed to cache pool snapshot")
	}
	return pools, nil
}
