package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/yieldwatch/internal/database"
	"github.com/aristath/yieldwatch/internal/modules/portfolio"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := database.New(database.Config{
		Path: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Name: "portfolio-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema(portfolio.Schema))

	handler := NewHandler(portfolio.NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api/portfolios/{id}", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func TestHandleSaveAndGet(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"risk_tolerance": "low",
		"positions": [
			{"protocol": "Lido", "chain": "Ethereum", "symbol": "stETH",
			 "value": 5000, "initial_yield": 4.5, "entered_at": "2026-06-01T12:00:00Z"}
		]
	}`
	req := httptest.NewRequest(http.MethodPut, "/api/portfolios/p1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/portfolios/p1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Portfolio struct {
				ID            string `json:"id"`
				RiskTolerance string `json:"risk_tolerance"`
				Positions     []struct {
					Protocol string  `json:"protocol"`
					Value    float64 `json:"value"`
				} `json:"positions"`
			} `json:"portfolio"`
			Metrics struct {
				WeightedYield float64 `json:"weighted_yield"`
			} `json:"metrics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "p1", response.Data.Portfolio.ID)
	assert.Equal(t, "low", response.Data.Portfolio.RiskTolerance)
	require.Len(t, response.Data.Portfolio.Positions, 1)
	assert.Equal(t, "Lido", response.Data.Portfolio.Positions[0].Protocol)
	assert.InDelta(t, 4.5, response.Data.Metrics.WeightedYield, 0.001)
}

func TestHandleGet_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolios/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSave_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "bad tolerance",
			body: `{"risk_tolerance": "yolo", "positions": []}`,
		},
		{
			name: "missing protocol",
			body: `{"positions": [{"chain": "Ethereum", "value": 100, "initial_yield": 4.0, "entered_at": "2026-06-01T12:00:00Z"}]}`,
		},
		{
			name: "non-positive value",
			body: `{"positions": [{"protocol": "Lido", "chain": "Ethereum", "value": 0, "initial_yield": 4.0, "entered_at": "2026-06-01T12:00:00Z"}]}`,
		},
		{
			name: "bad timestamp",
			body: `{"positions": [{"protocol": "Lido", "chain": "Ethereum", "value": 100, "initial_yield": 4.0, "entered_at": "yesterday"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)

			req := httptest.NewRequest(http.MethodPut, "/api/portfolios/p1", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
