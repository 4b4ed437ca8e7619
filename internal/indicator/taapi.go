// Package indicator fetches technical indicator values from taapi.io.
package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"trade_bot/internal/config"
	"trade_bot/internal/core"
	apperrors "trade_bot/pkg/errors"
	apihttp "trade_bot/pkg/http"
)

// TAAPI is an indicator source backed by the taapi.io REST API. Requests
// are throttled through a token bucket because the free tiers rate-limit
// aggressively.
type TAAPI struct {
	client   *apihttp.Client
	secret   string
	interval string
	limiter  *rate.Limiter
	logger   core.ILogger
}

// NewTAAPI creates a taapi.io indicator source from configuration.
func NewTAAPI(cfg config.IndicatorConfig, logger core.ILogger) *TAAPI {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &TAAPI{
		client:   apihttp.NewClient(cfg.BaseURL, timeout, nil),
		secret:   cfg.APIKey.Reveal(),
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateRPS), 1),
		logger:   logger.WithField("component", "taapi"),
	}
}

type rsiResponse struct {
	Value *json.Number `json:"value"`
}

// Fetch returns the RSI value for a symbol. A response without a value is
// reported as ErrIndicatorUnavailable rather than treated as zero.
func (t *TAAPI) Fetch(ctx context.Context, symbol string) (core.IndicatorSet, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return core.IndicatorSet{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := t.client.Get(ctx, "/rsi", map[string]string{
		"secret":   t.secret,
		"symbol":   symbol,
		"interval": t.interval,
		"type":     "stocks",
	})
	if err != nil {
		return core.IndicatorSet{}, fmt.Errorf("fetch rsi for %s: %w", symbol, err)
	}

	var resp rsiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.IndicatorSet{}, fmt.Errorf("decode rsi for %s: %w", symbol, err)
	}
	if resp.Value == nil {
		return core.IndicatorSet{}, fmt.Errorf("rsi missing for %s: %w", symbol, apperrors.ErrIndicatorUnavailable)
	}

	rsi, err := decimal.NewFromString(resp.Value.String())
	if err != nil {
		return core.IndicatorSet{}, fmt.Errorf("parse rsi %q for %s: %w", resp.Value, symbol, err)
	}

	t.logger.Debug("Fetched RSI", "symbol", symbol, "rsi", rsi.String())

	return core.IndicatorSet{
		Symbol: symbol,
		Values: map[string]decimal.Decimal{"rsi": rsi},
	}, nil
}
