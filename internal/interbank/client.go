// Package interbank talks to the external network that settles transfers to
// accounts held by other banks.
package interbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// Config holds the client settings.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open before probing
}

// Client implements domain.InterbankGateway over HTTP behind a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

type transferRequest struct {
	SourceAccount      int64  `json:"sourceAccount"`
	DestinationAccount int64  `json:"destinationAccount"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
}

type transferResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// NewClient creates a new interbank client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	maxFailures := cfg.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "interbank-gateway",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// Transfer asks the network to credit destination. A clean refusal returns
// false with a nil error; transport failures and non-2xx answers are errors
// and count against the breaker.
func (c *Client) Transfer(ctx context.Context, source, destination int64, amount decimal.Decimal, currency domain.Currency) (bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, transferRequest{
			SourceAccount:      source,
			DestinationAccount: destination,
			Amount:             amount.String(),
			Currency:           string(currency),
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("interbank gateway unavailable: %w", err)
		}
		return false, err
	}

	resp := result.(*transferResponse)
	if !resp.Accepted {
		c.logger.Info("interbank transfer declined",
			zap.Int64("source_account", source),
			zap.Int64("destination_account", destination),
			zap.String("reason", resp.Reason),
		)
	}
	return resp.Accepted, nil
}

func (c *Client) send(ctx context.Context, payload transferRequest) (*transferResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interbank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create interbank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("interbank request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read interbank response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("interbank gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out transferResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode interbank response: %w", err)
	}
	return &out, nil
}

// State reports the breaker state, for health reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// DisabledGateway declines every transfer. Used when no gateway is configured,
// so every non-local destination fails cleanly.
type DisabledGateway struct{}

// Transfer implements domain.InterbankGateway.
func (DisabledGateway) Transfer(context.Context, int64, int64, decimal.Decimal, domain.Currency) (bool, error) {
	return false, nil
}
