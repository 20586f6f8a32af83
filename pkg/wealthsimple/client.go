// Package wealthsimple implements the brokerage interface against the
// Wealthsimple Trade REST service.
package wealthsimple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/brokerage"
	"github.com/vignesh-goutham/drip/pkg/types"
)

const (
	DefaultBaseURL = "https://trade-service.wealthsimple.com"

	otpHeader         = "x-wealthsimple-otp"
	accessTokenHeader = "x-access-token"

	activityPageSize = 99
)

var accountTypes = map[string]types.AccountType{
	"ca_tfsa": types.AccountTypeTFSA,
	"ca_rrsp": types.AccountTypeRRSP,
}

// Client talks to Wealthsimple Trade
type Client struct {
	client *resty.Client
}

var _ brokerage.Brokerage = (*Client)(nil)

// NewClient creates a new Wealthsimple Trade client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		client: client,
	}
}

type money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

type accountResponse struct {
	ID          string `json:"id"`
	AccountType string `json:"account_type"`
	BuyingPower money  `json:"buying_power"`
}

type positionResponse struct {
	Quantity    decimal.Decimal `json:"quantity"`
	MarketValue money           `json:"market_value"`
	Stock       struct {
		Symbol string `json:"symbol"`
	} `json:"stock"`
}

type activityResponse struct {
	Object      string `json:"object"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	MarketValue money  `json:"market_value"`
}

type securityResponse struct {
	ID    string `json:"id"`
	Stock struct {
		Symbol string `json:"symbol"`
	} `json:"stock"`
}

type results[T any] struct {
	Results  []T    `json:"results"`
	Bookmark string `json:"bookmark,omitempty"`
}

type orderRequest struct {
	AccountID    string          `json:"account_id"`
	SecurityID   string          `json:"security_id"`
	OrderType    string          `json:"order_type"`
	OrderSubType string          `json:"order_sub_type"`
	TimeInForce  string          `json:"time_in_force"`
	MarketValue  decimal.Decimal `json:"market_value"`
}

// Login authenticates, answering the passcode challenge through otp
func (c *Client) Login(ctx context.Context, email, password string, otp brokerage.OTPFunc) error {
	req := loginRequest{Email: email, Password: password}

	resp, err := c.client.R().SetContext(ctx).SetBody(req).Post("/auth/login")
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized && strings.Contains(resp.Header().Get(otpHeader), "required") {
		if otp == nil {
			return fmt.Errorf("%w: passcode required", types.ErrAuthenticationFailed)
		}

		slog.Info("Passcode requested, waiting for verification code")
		code, err := otp(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
		}
		if code == "" {
			return fmt.Errorf("%w: empty passcode", types.ErrAuthenticationFailed)
		}

		req.OTP = code
		resp, err = c.client.R().SetContext(ctx).SetBody(req).Post("/auth/login")
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
		}
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: login returned status %d", types.ErrAuthenticationFailed, resp.StatusCode())
	}

	token := resp.Header().Get(accessTokenHeader)
	if token == "" {
		return fmt.Errorf("%w: no access token in login response", types.ErrAuthenticationFailed)
	}
	c.client.SetHeader("Authorization", token)

	slog.Info("Logged in to Wealthsimple Trade")
	return nil
}

// Accounts maps the TFSA and RRSP account types to their ids
func (c *Client) Accounts(ctx context.Context) (map[types.AccountType]string, error) {
	accounts, err := c.listAccounts(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[types.AccountType]string, len(accounts))
	for _, acc := range accounts {
		if accountType, ok := accountTypes[acc.AccountType]; ok {
			ids[accountType] = acc.ID
		}
	}
	return ids, nil
}

// AccountData returns every account with its buying power
func (c *Client) AccountData(ctx context.Context) ([]types.Account, error) {
	accounts, err := c.listAccounts(ctx)
	if err != nil {
		return nil, err
	}

	data := make([]types.Account, 0, len(accounts))
	for _, acc := range accounts {
		data = append(data, types.Account{
			ID:          acc.ID,
			Type:        accountTypes[acc.AccountType],
			BuyingPower: acc.BuyingPower.Amount,
		})
	}
	return data, nil
}

func (c *Client) listAccounts(ctx context.Context) ([]accountResponse, error) {
	var out results[accountResponse]
	if err := c.get(ctx, "/account/list", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return out.Results, nil
}

// Positions returns the holdings of an account
func (c *Client) Positions(ctx context.Context, accountID string) ([]types.Position, error) {
	var out results[positionResponse]
	query := url.Values{"account_id": {accountID}}
	if err := c.get(ctx, "/account/positions", query, &out); err != nil {
		return nil, fmt.Errorf("failed to get positions for %s: %w", accountID, err)
	}

	positions := make([]types.Position, 0, len(out.Results))
	for _, p := range out.Results {
		positions = append(positions, types.Position{
			Symbol:      p.Stock.Symbol,
			Quantity:    p.Quantity,
			MarketValue: p.MarketValue.Amount,
		})
	}
	return positions, nil
}

// Activities returns the most recent page of account history, newest first
func (c *Client) Activities(ctx context.Context, filter types.ActivityFilter) ([]types.Activity, error) {
	query := url.Values{"limit": {fmt.Sprint(activityPageSize)}}
	for _, t := range filter.Types {
		query.Add("type", t)
	}
	if len(filter.Accounts) > 0 {
		query.Set("account_ids", strings.Join(filter.Accounts, ","))
	}

	var out results[activityResponse]
	if err := c.get(ctx, "/account/activities", query, &out); err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}

	activities := make([]types.Activity, 0, len(out.Results))
	for _, a := range out.Results {
		activities = append(activities, types.Activity{
			Kind:   a.Object,
			Symbol: a.Symbol,
			Status: a.Status,
			Amount: a.MarketValue.Amount,
		})
	}
	return activities, nil
}

// FractionalBuy places a day order for amount worth of symbol
func (c *Client) FractionalBuy(ctx context.Context, accountID, symbol string, amount decimal.Decimal) (any, error) {
	securityID, err := c.findSecurity(ctx, symbol)
	if err != nil {
		return nil, err
	}

	order := orderRequest{
		AccountID:    accountID,
		SecurityID:   securityID,
		OrderType:    "buy_value",
		OrderSubType: "fractional",
		TimeInForce:  "day",
		MarketValue:  amount,
	}

	resp, err := c.client.R().SetContext(ctx).SetBody(order).Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("failed to place order for %s: %w", symbol, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("order for %s returned status %d: %s", symbol, resp.StatusCode(), resp.String())
	}

	return orderResponse(resp.Body()), nil
}

// orderResponse passes JSON bodies through untouched; anything else is kept as
// text so the result stays serialisable
func orderResponse(body []byte) any {
	switch {
	case len(bytes.TrimSpace(body)) == 0:
		return nil
	case json.Valid(body):
		return json.RawMessage(body)
	default:
		return string(body)
	}
}

func (c *Client) findSecurity(ctx context.Context, symbol string) (string, error) {
	var out results[securityResponse]
	if err := c.get(ctx, "/search/securities", url.Values{"query": {symbol}}, &out); err != nil {
		return "", fmt.Errorf("failed to look up security %s: %w", symbol, err)
	}

	for _, s := range out.Results {
		if strings.EqualFold(s.Stock.Symbol, symbol) {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("no security found for symbol %s", symbol)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req := c.client.R().SetContext(ctx).SetResult(out)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
