package brokerage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/types"
)

// PaperOrder is the response returned for a simulated fractional buy
type PaperOrder struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Value     decimal.Decimal `json:"market_value"`
	Status    string          `json:"status"`
}

// PaperBrokerage implements the Brokerage interface in memory
type PaperBrokerage struct {
	mu          sync.RWMutex
	email       string
	password    string
	otpRequired bool
	loggedIn    bool
	accounts    []types.Account
	positions   map[string][]types.Position // account id -> positions
	activities  map[string][]types.Activity // account id -> history, newest first
	failures    map[string]error            // symbol -> placement error
	orders      []PaperOrder
}

// NewPaperBrokerage creates a paper brokerage accepting the given credentials
func NewPaperBrokerage(email, password string) *PaperBrokerage {
	return &PaperBrokerage{
		email:      email,
		password:   password,
		positions:  make(map[string][]types.Position),
		activities: make(map[string][]types.Activity),
		failures:   make(map[string]error),
	}
}

// RequireOTP makes Login ask for a one-time passcode
func (b *PaperBrokerage) RequireOTP() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.otpRequired = true
}

// AddAccount registers an account with its buying power
func (b *PaperBrokerage) AddAccount(id string, accountType types.AccountType, buyingPower decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts = append(b.accounts, types.Account{
		ID:          id,
		Type:        accountType,
		BuyingPower: buyingPower,
	})
}

// AddPosition adds a holding to an account
func (b *PaperBrokerage) AddPosition(accountID string, position types.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.positions[accountID] = append(b.positions[accountID], position)
}

// RecordActivity appends an activity as the oldest entry of an account's history
func (b *PaperBrokerage) RecordActivity(accountID string, activity types.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.activities[accountID] = append(b.activities[accountID], activity)
}

// FailOrdersFor makes every placement for symbol fail with err
func (b *PaperBrokerage) FailOrdersFor(symbol string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[symbol] = err
}

// Orders returns the orders placed so far
func (b *PaperBrokerage) Orders() []PaperOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.orders)
}

// Login checks the credentials and, when required, the passcode
func (b *PaperBrokerage) Login(ctx context.Context, email, password string, otp OTPFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if email != b.email || password != b.password {
		return fmt.Errorf("%w: invalid email or password", types.ErrAuthenticationFailed)
	}

	if b.otpRequired {
		if otp == nil {
			return fmt.Errorf("%w: passcode required", types.ErrAuthenticationFailed)
		}
		code, err := otp(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
		}
		if code == "" {
			return fmt.Errorf("%w: empty passcode", types.ErrAuthenticationFailed)
		}
	}

	b.loggedIn = true
	return nil
}

// Accounts lists account ids by type
func (b *PaperBrokerage) Accounts(ctx context.Context) (map[types.AccountType]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkSession(); err != nil {
		return nil, err
	}

	accounts := make(map[types.AccountType]string, len(b.accounts))
	for _, acc := range b.accounts {
		accounts[acc.Type] = acc.ID
	}
	return accounts, nil
}

// AccountData returns all accounts with their buying power
func (b *PaperBrokerage) AccountData(ctx context.Context) ([]types.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkSession(); err != nil {
		return nil, err
	}
	return slices.Clone(b.accounts), nil
}

// Positions returns the holdings of an account
func (b *PaperBrokerage) Positions(ctx context.Context, accountID string) ([]types.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkSession(); err != nil {
		return nil, err
	}
	if b.account(accountID) == nil {
		return nil, fmt.Errorf("no account found with id %s", accountID)
	}
	return slices.Clone(b.positions[accountID]), nil
}

// Activities returns the newest-first history of the filtered accounts
func (b *PaperBrokerage) Activities(ctx context.Context, filter types.ActivityFilter) ([]types.Activity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkSession(); err != nil {
		return nil, err
	}

	var activities []types.Activity
	for _, accountID := range filter.Accounts {
		for _, a := range b.activities[accountID] {
			if matchesType(a, filter.Types) {
				activities = append(activities, a)
			}
		}
	}
	return activities, nil
}

// FractionalBuy spends amount of the account's buying power on symbol
func (b *PaperBrokerage) FractionalBuy(ctx context.Context, accountID, symbol string, amount decimal.Decimal) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkSession(); err != nil {
		return nil, err
	}
	if err, ok := b.failures[symbol]; ok {
		return nil, err
	}

	acc := b.account(accountID)
	if acc == nil {
		return nil, fmt.Errorf("no account found with id %s", accountID)
	}
	if acc.BuyingPower.LessThan(amount) {
		return nil, fmt.Errorf("insufficient funds: need %s, have %s", amount, acc.BuyingPower)
	}
	acc.BuyingPower = acc.BuyingPower.Sub(amount)

	order := PaperOrder{
		ID:        "order-" + uuid.NewString(),
		AccountID: accountID,
		Symbol:    symbol,
		Value:     amount,
		Status:    types.OrderStatusPosted,
	}
	b.orders = append(b.orders, order)

	// newest first
	b.activities[accountID] = append([]types.Activity{{
		Kind:   types.ActivityKindOrder,
		Symbol: symbol,
		Status: types.OrderStatusPosted,
		Amount: amount,
	}}, b.activities[accountID]...)

	slog.Info("Executed paper buy order", "symbol", symbol, "amount", amount.StringFixed(2), "buying_power", acc.BuyingPower.StringFixed(2))
	return order, nil
}

func (b *PaperBrokerage) checkSession() error {
	if !b.loggedIn {
		return fmt.Errorf("not logged in")
	}
	return nil
}

func (b *PaperBrokerage) account(id string) *types.Account {
	for i := range b.accounts {
		if b.accounts[i].ID == id {
			return &b.accounts[i]
		}
	}
	return nil
}

func matchesType(a types.Activity, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	kind := a.Kind
	if a.Kind == types.ActivityKindOrder {
		kind = types.ActivityTypeBuy
	}
	return slices.Contains(wanted, kind)
}
