package brokerage

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/types"
)

// OTPFunc answers a one-time passcode challenge during login
type OTPFunc func(ctx context.Context) (string, error)

// Brokerage defines the interface for the brokerage service
type Brokerage interface {
	// Login authenticates the session, calling otp when the brokerage asks for a passcode
	Login(ctx context.Context, email, password string, otp OTPFunc) error

	// Accounts lists account ids by account type
	Accounts(ctx context.Context) (map[types.AccountType]string, error)

	// AccountData lists every account with its buying power
	AccountData(ctx context.Context) ([]types.Account, error)

	// Positions gets all current positions of an account
	Positions(ctx context.Context, accountID string) ([]types.Position, error)

	// Activities gets account history, newest first
	Activities(ctx context.Context, filter types.ActivityFilter) ([]types.Activity, error)

	// FractionalBuy places a buy order expressed in currency
	FractionalBuy(ctx context.Context, accountID, symbol string, amount decimal.Decimal) (any, error)
}
