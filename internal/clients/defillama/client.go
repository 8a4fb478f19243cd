// Package defillama provides a client for the DefiLlama yields API.
package defillama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Client for yields.llama.fi
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new DefiLlama yields client. baseURL defaults to the
// public API when empty.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://yields.llama.fi"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "defillama").Logger(),
	}
}

// poolRecord is the wire shape of one pool in the /pools response.
type poolRecord struct {
	Chain   string  `json:"chain"`
	Project string  `json:"project"`
	Symbol  string  `json:"symbol"`
	APY     float64 `json:"apy"`
	TVLUsd  float64 `json:"tvlUsd"`
}

// ListPools fetches the current pool snapshot. Pools carry no risk assessment
// here; the risk scorer attaches one before the engine runs.
func (c *Client) ListPools(ctx context.Context) ([]domain.MarketPool, error) {
	url := c.baseURL + "/pools"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("url", url).Msg("Fetching market pools")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Status string       `json:"status"`
		Data   []poolRecord `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	pools := make([]domain.MarketPool, 0, len(result.Data))
	for _, rec := range result.Data {
		if rec.Project == "" || rec.Chain == "" {
			continue
		}
		pools = append(pools, domain.MarketPool{
			Protocol:     rec.Project,
			Chain:        rec.Chain,
			Symbol:       rec.Symbol,
			YieldRate:    rec.APY,
			ReserveValue: rec.TVLUsd,
		})
	}

	c.log.Debug().Int("pools", len(pools)).Msg("Fetched market pools")
	return pools, nil
}
