package interbank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

func TestClient_Transfer(t *testing.T) {
	var got transferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transfers", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(transferResponse{Accepted: got.DestinationAccount != 666})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"}, nil)

	ok, err := client.Transfer(context.Background(), 1001, 9009, decimal.RequireFromString("6000"), domain.CurrencyDollars)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, transferRequest{SourceAccount: 1001, DestinationAccount: 9009, Amount: "6000", Currency: "DOLARES"}, got)

	ok, err = client.Transfer(context.Background(), 1001, 666, decimal.NewFromInt(100), domain.CurrencyPesos)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ServerErrorOpensBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := client.Transfer(ctx, 1, 2, decimal.NewFromInt(100), domain.CurrencyPesos)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.Transfer(ctx, 1, 2, decimal.NewFromInt(100), domain.CurrencyPesos)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load(), "an open breaker must not reach the gateway")
}

func TestClient_DeclineDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(transferResponse{Accepted: false, Reason: "unknown account"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, MaxFailures: 1}, nil)
	for i := 0; i < 3; i++ {
		ok, err := client.Transfer(context.Background(), 1, 2, decimal.NewFromInt(100), domain.CurrencyPesos)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestClient_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := client.Transfer(context.Background(), 1, 2, decimal.NewFromInt(100), domain.CurrencyPesos)
	assert.Error(t, err)
}

func TestDisabledGateway(t *testing.T) {
	ok, err := DisabledGateway{}.Transfer(context.Background(), 1, 2, decimal.NewFromInt(100), domain.CurrencyPesos)
	require.NoError(t, err)
	assert.False(t, ok)
}
