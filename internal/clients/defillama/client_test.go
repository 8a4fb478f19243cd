package defillama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": [
				{"chain": "Ethereum", "project": "lido", "symbol": "STETH", "apy": 4.5, "tvlUsd": 2000000000},
				{"chain": "Ethereum", "project": "aave-v3", "symbol": "AUSDC", "apy": 3.8, "tvlUsd": 500000000},
				{"chain": "", "project": "broken", "symbol": "X", "apy": 99.0, "tvlUsd": 1000},
				{"chain": "Ethereum", "project": "", "symbol": "Y", "apy": 12.0, "tvlUsd": 1000}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())

	pools, err := client.ListPools(context.Background())

	require.NoError(t, err)
	require.Len(t, pools, 2, "records without a chain or project are dropped")

	assert.Equal(t, "lido", pools[0].Protocol)
	assert.Equal(t, "Ethereum", pools[0].Chain)
	assert.Equal(t, "STETH", pools[0].Symbol)
	assert.Equal(t, 4.5, pools[0].YieldRate)
	assert.Equal(t, 2e9, pools[0].ReserveValue)
	assert.Nil(t, pools[0].Risk, "the client never attaches risk assessments")

	assert.Equal(t, "aave-v3", pools[1].Protocol)
}

func TestListPools_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())

	_, err := client.ListPools(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestListPools_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "success", "data": "nope"`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())

	_, err := client.ListPools(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestListPools_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "success", "data": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListPools(ctx)

	assert.Error(t, err)
}
