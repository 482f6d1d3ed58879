package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// PaperBaseURL is Alpaca's paper trading endpoint.
const PaperBaseURL = "https://paper-api.alpaca.markets"

// AlpacaClient implements Client against the Alpaca trading REST API.
type AlpacaClient struct {
	BaseURL   string
	KeyID     string
	SecretKey string
	Client    *http.Client
}

// NewAlpacaClient creates a client with optional proxy support.
func NewAlpacaClient(baseURL, keyID, secretKey, proxyURL string) *AlpacaClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = PaperBaseURL
	}
	return &AlpacaClient{
		BaseURL:   baseURL,
		KeyID:     keyID,
		SecretKey: secretKey,
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

func (a *AlpacaClient) Name() string { return "alpaca" }

type alpacaAccount struct {
	Equity decimal.Decimal `json:"equity"`
}

type alpacaPosition struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}

type alpacaLeg struct {
	LimitPrice string `json:"limit_price,omitempty"`
	StopPrice  string `json:"stop_price,omitempty"`
}

type alpacaOrder struct {
	Symbol        string     `json:"symbol"`
	Qty           string     `json:"qty"`
	Side          string     `json:"side"`
	Type          string     `json:"type"`
	TimeInForce   string     `json:"time_in_force"`
	LimitPrice    string     `json:"limit_price"`
	OrderClass    string     `json:"order_class"`
	TakeProfit    *alpacaLeg `json:"take_profit"`
	StopLoss      *alpacaLeg `json:"stop_loss"`
	ClientOrderID string     `json:"client_order_id,omitempty"`
}

// GetEquity returns the account equity.
func (a *AlpacaClient) GetEquity(ctx context.Context) (float64, error) {
	var acct alpacaAccount
	if err := a.do(ctx, http.MethodGet, "/v2/account", nil, &acct); err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	return acct.Equity.InexactFloat64(), nil
}

// GetOpenPositions lists every open position.
func (a *AlpacaClient) GetOpenPositions(ctx context.Context) ([]model.Position, error) {
	var raw []alpacaPosition
	if err := a.do(ctx, http.MethodGet, "/v2/positions", nil, &raw); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	out := make([]model.Position, len(raw))
	for i, p := range raw {
		out[i] = model.Position{
			Symbol:        p.Symbol,
			Quantity:      p.Qty.InexactFloat64(),
			EntryPrice:    p.AvgEntryPrice.InexactFloat64(),
			CurrentPrice:  p.CurrentPrice.InexactFloat64(),
			UnrealizedPnL: p.UnrealizedPL.InexactFloat64(),
		}
	}
	return out, nil
}

// PlaceBracketOrder submits a day limit buy with take-profit and stop-loss legs.
func (a *AlpacaClient) PlaceBracketOrder(ctx context.Context, sig model.Signal, clientOrderID string) error {
	order := alpacaOrder{
		Symbol:        sig.Symbol,
		Qty:           strconv.Itoa(sig.Quantity),
		Side:          "buy",
		Type:          "limit",
		TimeInForce:   "day",
		LimitPrice:    priceString(sig.EntryPrice),
		OrderClass:    "bracket",
		TakeProfit:    &alpacaLeg{LimitPrice: priceString(sig.TargetPrice)},
		StopLoss:      &alpacaLeg{StopPrice: priceString(sig.StopPrice)},
		ClientOrderID: clientOrderID,
	}
	if err := a.do(ctx, http.MethodPost, "/v2/orders", order, nil); err != nil {
		return fmt.Errorf("place bracket %s: %w", sig.Symbol, err)
	}
	return nil
}

// ClosePosition liquidates the whole position in symbol at market.
func (a *AlpacaClient) ClosePosition(ctx context.Context, symbol string) error {
	if err := a.do(ctx, http.MethodDelete, "/v2/positions/"+url.PathEscape(symbol), nil, nil); err != nil {
		return fmt.Errorf("close position %s: %w", symbol, err)
	}
	return nil
}

func (a *AlpacaClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", a.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.SecretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodDelete {
		return ErrNoPosition
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("alpaca: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func priceString(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
