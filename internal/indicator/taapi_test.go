package indicator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_bot/internal/config"
	apperrors "trade_bot/pkg/errors"
	"trade_bot/pkg/logging"
)

func newTestTAAPI(t *testing.T, handler http.HandlerFunc) *TAAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewTAAPI(config.IndicatorConfig{
		APIKey:    "taapi-secret",
		BaseURL:   srv.URL,
		Interval:  "1m",
		TimeoutMS: 5000,
		RateRPS:   1000, // effectively unthrottled for tests
	}, logging.Nop())
}

func TestFetch_ReturnsRSI(t *testing.T) {
	src := newTestTAAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rsi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "taapi-secret", q.Get("secret"))
		assert.Equal(t, "AAPL", q.Get("symbol"))
		assert.Equal(t, "1m", q.Get("interval"))
		assert.Equal(t, "stocks", q.Get("type"))
		w.Write([]byte(`{"value":34.7}`))
	})

	set, err := src.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)

	rsi, ok := set.RSI()
	require.True(t, ok)
	assert.True(t, rsi.Equal(decimal.RequireFromString("34.7")))
}

func TestFetch_MissingValue(t *testing.T) {
	src := newTestTAAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"no data"}`))
	})

	_, err := src.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndicatorUnavailable))
}

func TestFetch_ServerErrorIsTransient(t *testing.T) {
	src := newTestTAAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := src.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestFetch_ContextCanceled(t *testing.T) {
	src := newTestTAAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":50}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, "AAPL")
	assert.Error(t, err)
}
