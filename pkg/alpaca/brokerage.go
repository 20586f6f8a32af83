package alpaca

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	alpaca "github.com/alpacahq/alpaca-trade-api-go/v2/alpaca"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/brokerage"
	"github.com/vignesh-goutham/drip/pkg/types"
)

const (
	paperBaseURL = "https://paper-api.alpaca.markets"
	liveBaseURL  = "https://api.alpaca.markets"
)

type tradingClient interface {
	GetAccount() (*alpaca.Account, error)
	ListPositions() ([]alpaca.Position, error)
	GetAccountActivities(activityType *string, opts *alpaca.AccountActivitiesRequest) ([]alpaca.AccountActivity, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// Brokerage adapts an Alpaca trading account to the brokerage interface.
// Alpaca has one account per key pair; it is listed under accountType.
type Brokerage struct {
	client      tradingClient
	accountType types.AccountType
	accountID   string
}

var _ brokerage.Brokerage = (*Brokerage)(nil)

// NewBrokerage creates a new Alpaca brokerage
func NewBrokerage(apiKey, secretKey string, isPaperTrading bool, accountType types.AccountType) *Brokerage {
	baseURL := liveBaseURL
	if isPaperTrading {
		baseURL = paperBaseURL
	}

	client := alpaca.NewClient(alpaca.ClientOpts{
		ApiKey:    apiKey,
		ApiSecret: secretKey,
		BaseURL:   baseURL,
	})

	return &Brokerage{
		client:      client,
		accountType: accountType,
	}
}

// Login checks the API keys by fetching the account; no passcode is involved
func (a *Brokerage) Login(ctx context.Context, email, password string, otp brokerage.OTPFunc) error {
	account, err := a.client.GetAccount()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
	}
	a.accountID = account.ID

	slog.Info("Logged in to Alpaca", "account_id", account.ID)
	return nil
}

// Accounts lists the single Alpaca account under the configured type
func (a *Brokerage) Accounts(ctx context.Context) (map[types.AccountType]string, error) {
	if a.accountID == "" {
		return nil, fmt.Errorf("not logged in")
	}
	return map[types.AccountType]string{a.accountType: a.accountID}, nil
}

// AccountData returns the account with its buying power
func (a *Brokerage) AccountData(ctx context.Context) ([]types.Account, error) {
	account, err := a.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return []types.Account{{
		ID:          account.ID,
		Type:        a.accountType,
		BuyingPower: account.BuyingPower,
	}}, nil
}

// Positions returns every open position
func (a *Brokerage) Positions(ctx context.Context, accountID string) ([]types.Position, error) {
	positions, err := a.client.ListPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	out := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, types.Position{
			Symbol:   p.Symbol,
			Quantity: p.Qty,
		})
	}
	return out, nil
}

// Activities maps dividend and fill activities, newest first
func (a *Brokerage) Activities(ctx context.Context, filter types.ActivityFilter) ([]types.Activity, error) {
	activities, err := a.client.GetAccountActivities(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get account activities: %w", err)
	}

	wantDividends := len(filter.Types) == 0 || slices.Contains(filter.Types, types.ActivityTypeDividend)
	wantBuys := len(filter.Types) == 0 || slices.Contains(filter.Types, types.ActivityTypeBuy)

	var out []types.Activity
	for _, act := range activities {
		switch {
		case strings.HasPrefix(act.ActivityType, "DIV") && wantDividends:
			out = append(out, types.Activity{
				Kind:   types.ActivityKindDividend,
				Symbol: act.Symbol,
				Amount: act.NetAmount,
			})
		case act.ActivityType == "FILL" && act.Side == "buy" && wantBuys:
			status := act.Type
			if act.Type == "fill" {
				status = types.OrderStatusPosted
			}
			out = append(out, types.Activity{
				Kind:   types.ActivityKindOrder,
				Symbol: act.Symbol,
				Status: status,
				Amount: act.Price.Mul(act.Qty),
			})
		}
	}
	return out, nil
}

// FractionalBuy places a notional day market order
func (a *Brokerage) FractionalBuy(ctx context.Context, accountID, symbol string, amount decimal.Decimal) (any, error) {
	notional := amount
	order, err := a.client.PlaceOrder(alpaca.PlaceOrderRequest{
		AssetKey:    &symbol,
		Notional:    &notional,
		Side:        alpaca.Buy,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place buy order for %s: %w", symbol, err)
	}

	slog.Info("Placed notional buy order", "symbol", symbol, "amount", amount.StringFixed(2), "order_id", order.ID)
	return order, nil
}
