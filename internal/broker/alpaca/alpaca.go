// Package alpaca implements the brokerage collaborator against the Alpaca
// trading and market data REST APIs.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade_bot/internal/config"
	"trade_bot/internal/core"
	apihttp "trade_bot/pkg/http"
)

// headerSigner attaches Alpaca API credentials to every request.
type headerSigner struct {
	apiKey    string
	secretKey string
}

func (s *headerSigner) SignRequest(req *http.Request) error {
	req.Header.Set("APCA-API-KEY-ID", s.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)
	return nil
}

// Broker talks to Alpaca. Trading calls (account, positions, orders) go to
// the trading host; price quotes go to the market data host.
type Broker struct {
	trading *apihttp.Client
	data    *apihttp.Client
	logger  core.ILogger
}

// New creates an Alpaca broker client from configuration.
func New(cfg config.BrokerConfig, logger core.ILogger) *Broker {
	signer := &headerSigner{
		apiKey:    cfg.APIKey.Reveal(),
		secretKey: cfg.SecretKey.Reveal(),
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond

	return &Broker{
		trading: apihttp.NewClient(cfg.BaseURL, timeout, signer),
		data:    apihttp.NewClient(cfg.DataURL, timeout, signer),
		logger:  logger.WithField("component", "alpaca"),
	}
}

type accountResponse struct {
	Cash           string `json:"cash"`
	BuyingPower    string `json:"buying_power"`
	PortfolioValue string `json:"portfolio_value"`
}

type positionResponse struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	MarketValue string `json:"market_value"`
}

// GetPortfolioState fetches the account and all open positions and
// assembles a snapshot.
func (b *Broker) GetPortfolioState(ctx context.Context) (*core.PortfolioState, error) {
	body, err := b.trading.Get(ctx, "/v2/account", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	var acct accountResponse
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	cash, err := decimal.NewFromString(acct.Cash)
	if err != nil {
		return nil, fmt.Errorf("parse account cash %q: %w", acct.Cash, err)
	}
	buyingPower, err := decimal.NewFromString(acct.BuyingPower)
	if err != nil {
		return nil, fmt.Errorf("parse buying power %q: %w", acct.BuyingPower, err)
	}
	equity, err := decimal.NewFromString(acct.PortfolioValue)
	if err != nil {
		return nil, fmt.Errorf("parse portfolio value %q: %w", acct.PortfolioValue, err)
	}

	body, err = b.trading.Get(ctx, "/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	var raw []positionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	positions := make(map[string]core.PositionSnapshot, len(raw))
	for _, p := range raw {
		qty, err := decimal.NewFromString(p.Qty)
		if err != nil {
			b.logger.Warn("Skipping position with unparsable qty", "symbol", p.Symbol, "qty", p.Qty)
			continue
		}
		value, err := decimal.NewFromString(p.MarketValue)
		if err != nil {
			value = decimal.Zero
		}
		positions[p.Symbol] = core.PositionSnapshot{
			Symbol:        p.Symbol,
			QuantityOwned: qty,
			MarketValue:   value,
		}
	}

	return &core.PortfolioState{
		TotalEquity: equity,
		Cash:        cash,
		BuyingPower: buyingPower,
		Positions:   positions,
	}, nil
}

type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price     json.Number `json:"p"`
		Timestamp time.Time   `json:"t"`
	} `json:"trade"`
}

// GetPriceQuote returns the latest trade price for a symbol.
func (b *Broker) GetPriceQuote(ctx context.Context, symbol string) (core.PriceQuote, error) {
	body, err := b.data.Get(ctx, "/v2/stocks/"+symbol+"/trades/latest", nil)
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("fetch latest trade for %s: %w", symbol, err)
	}

	var resp latestTradeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.PriceQuote{}, fmt.Errorf("decode latest trade for %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(resp.Trade.Price.String())
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("parse trade price %q: %w", resp.Trade.Price, err)
	}

	return core.PriceQuote{
		Symbol: symbol,
		Price:  price,
		AsOf:   resp.Trade.Timestamp,
	}, nil
}

type orderPayload struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
}

type orderResponse struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SubmitOrder places a market day order. A client order ID is generated
// when the request carries none, so a transport-level retry of the same
// request cannot fill twice.
func (b *Broker) SubmitOrder(ctx context.Context, req core.OrderRequest) (*core.OrderConfirmation, error) {
	side := "buy"
	if req.Side == core.SideSell {
		side = "sell"
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	payload := orderPayload{
		Symbol:        req.Symbol,
		Qty:           req.Quantity.String(),
		Side:          side,
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: clientOrderID,
	}

	b.logger.Info("Submitting order",
		"symbol", req.Symbol,
		"side", side,
		"qty", payload.Qty,
		"representation", req.Representation.String(),
		"client_order_id", clientOrderID)

	body, err := b.trading.Post(ctx, "/v2/orders", payload)
	if err != nil {
		return nil, fmt.Errorf("submit order for %s: %w", req.Symbol, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order response for %s: %w", req.Symbol, err)
	}

	return &core.OrderConfirmation{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
		SubmittedAt:   resp.SubmittedAt,
	}, nil
}
