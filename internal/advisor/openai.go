// Package advisor obtains trade recommendations from an OpenAI chat model.
//
// The model is prompted with the symbol's RSI, price, current holdings, and
// available cash, and instructed to answer with exactly one of
// "BUY [Amount]", "SELL [Amount]", or "NOTHING". The reply is returned as
// raw text; interpretation belongs to the intent parser.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trade_bot/internal/config"
	"trade_bot/internal/core"
	apihttp "trade_bot/pkg/http"
)

type bearerSigner struct {
	token string
}

func (s *bearerSigner) SignRequest(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return nil
}

// OpenAI is an advisor backed by the OpenAI chat completions API.
type OpenAI struct {
	client  *apihttp.Client
	model   string
	limiter *rate.Limiter
	logger  core.ILogger
}

// New creates an OpenAI advisor from configuration.
func New(cfg config.AdvisorConfig, logger core.ILogger) *OpenAI {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	signer := &bearerSigner{token: cfg.APIKey.Reveal()}

	return &OpenAI{
		client:  apihttp.NewClient(cfg.BaseURL, timeout, signer),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateRPS), 1),
		logger:  logger.WithField("component", "advisor"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Recommend asks the model for a decision on one symbol. The raw reply is
// logged for auditing before being returned.
func (o *OpenAI) Recommend(ctx context.Context, actx core.AdvisorContext) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	prompt := buildPrompt(actx)
	o.logger.Debug("Advisor prompt", "symbol", actx.Symbol, "prompt", prompt)

	body, err := o.client.Post(ctx, "/v1/chat/completions", chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   40,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion for %s: %w", actx.Symbol, err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode chat completion for %s: %w", actx.Symbol, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion for %s returned no choices", actx.Symbol)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Info("Advisor reply", "symbol", actx.Symbol, "reply", reply)
	return reply, nil
}

func buildPrompt(actx core.AdvisorContext) string {
	rsi, _ := actx.Indicators.RSI()
	return fmt.Sprintf(
		"You are an expert stock trader specializing in day trading and you have been "+
			"tasked with reviewing the following information of a stock: "+
			"Relative Strength Index (RSI)=%s, the current price of the stock [Stock_Price]=%s, "+
			"how many shares of this stock you currently own [Shares_Owned_Of_Stock]=%s, "+
			"and how much money is available [Wallet]=%s. "+
			"The overbought threshold is 70 and the oversold threshold is 30. "+
			"Your goal is to maximize profit while adhering to strict risk management. "+
			"Your risk tolerance is a maximum of 2%% of your wallet per trade. "+
			"If a trade is executed, a stop-loss should be set at a price that limits potential loss to this amount. "+
			"Please reply with exactly one of the following: BUY [Amount], SELL [Amount], NOTHING.",
		rsi, actx.Price, actx.SharesOwned, actx.Wallet)
}
