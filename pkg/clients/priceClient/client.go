// Package priceClient fetches spot prices from a Binance compatible ticker API.
package priceClient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tickerPricePath = "/api/v3/ticker/price"

// PriceQuote is a price as reported by the source. Price is kept as the
// decimal string the source returned.
type PriceQuote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type IPriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*PriceQuote, error)
}

type Config struct {
	BaseUrl string
	Timeout time.Duration
	// RequestsPerSecond caps outgoing ticker requests; 0 disables the limit
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() *Config {
	return &Config{
		BaseUrl: "https://api.binance.com",
		Timeout: 10 * time.Second,
	}
}

type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	config     *Config
	limiter    *rate.Limiter
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if _, err := url.Parse(cfg.BaseUrl); err != nil || cfg.BaseUrl == "" {
		return nil, fmt.Errorf("invalid price source base url '%s'", cfg.BaseUrl)
	}
	c := &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

type errorResponse struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (*PriceQuote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	endpoint := strings.TrimRight(c.config.BaseUrl, "/") + tickerPricePath + "?symbol=" + url.QueryEscape(symbol)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("price request rate limited: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Sugar().Debugw("Fetching price", zap.String("symbol", symbol), zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read price response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("price source returned status %d: %s (code %d)", resp.StatusCode, apiErr.Msg, apiErr.Code)
		}
		return nil, fmt.Errorf("price source returned status %d: %s", resp.StatusCode, string(body))
	}

	var quote PriceQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if quote.Price == "" {
		return nil, fmt.Errorf("price source returned no price for %s", symbol)
	}

	c.logger.Sugar().Debugw("Fetched price",
		zap.String("symbol", quote.Symbol),
		zap.String("price", quote.Price),
	)
	return &quote, nil
}

var _ IPriceSource = (*Client)(nil)
