package brokerage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/drip/pkg/types"
)

func newLoggedInPaper(t *testing.T, buyingPower decimal.Decimal) *PaperBrokerage {
	t.Helper()

	b := NewPaperBrokerage("me@example.com", "hunter2")
	b.AddAccount("tfsa-1", types.AccountTypeTFSA, buyingPower)
	b.AddAccount("rrsp-1", types.AccountTypeRRSP, decimal.Zero)
	require.NoError(t, b.Login(context.Background(), "me@example.com", "hunter2", nil))
	return b
}

func TestPaperLogin(t *testing.T) {
	okOTP := func(ctx context.Context) (string, error) { return "123456", nil }
	failingOTP := func(ctx context.Context) (string, error) { return "", types.ErrCodeNotFound }
	emptyOTP := func(ctx context.Context) (string, error) { return "", nil }

	tests := []struct {
		name        string
		requireOTP  bool
		password    string
		otp         OTPFunc
		expectError bool
		errorIs     error
	}{
		{
			name:     "valid credentials",
			password: "hunter2",
		},
		{
			name:        "wrong password",
			password:    "hunter3",
			expectError: true,
			errorIs:     types.ErrAuthenticationFailed,
		},
		{
			name:       "passcode answered",
			requireOTP: true,
			password:   "hunter2",
			otp:        okOTP,
		},
		{
			name:        "passcode missing callback",
			requireOTP:  true,
			password:    "hunter2",
			expectError: true,
			errorIs:     types.ErrAuthenticationFailed,
		},
		{
			name:        "passcode callback fails",
			requireOTP:  true,
			password:    "hunter2",
			otp:         failingOTP,
			expectError: true,
			errorIs:     types.ErrCodeNotFound,
		},
		{
			name:        "passcode callback returns nothing",
			requireOTP:  true,
			password:    "hunter2",
			otp:         emptyOTP,
			expectError: true,
			errorIs:     types.ErrAuthenticationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewPaperBrokerage("me@example.com", "hunter2")
			if tt.requireOTP {
				b.RequireOTP()
			}

			err := b.Login(context.Background(), "me@example.com", tt.password, tt.otp)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.errorIs)
				_, err = b.Accounts(context.Background())
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPaperAccounts(t *testing.T) {
	b := newLoggedInPaper(t, decimal.NewFromInt(1000))

	accounts, err := b.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[types.AccountType]string{
		types.AccountTypeTFSA: "tfsa-1",
		types.AccountTypeRRSP: "rrsp-1",
	}, accounts)

	data, err := b.AccountData(context.Background())
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.True(t, decimal.NewFromInt(1000).Equal(data[0].BuyingPower))
}

func TestPaperActivitiesFilter(t *testing.T) {
	b := newLoggedInPaper(t, decimal.Zero)
	b.RecordActivity("tfsa-1", types.Activity{Kind: types.ActivityKindDividend, Symbol: "VFV", Amount: decimal.NewFromInt(3)})
	b.RecordActivity("tfsa-1", types.Activity{Kind: types.ActivityKindOrder, Symbol: "VFV", Status: types.OrderStatusPosted})
	b.RecordActivity("tfsa-1", types.Activity{Kind: "deposit", Amount: decimal.NewFromInt(100)})
	b.RecordActivity("rrsp-1", types.Activity{Kind: types.ActivityKindDividend, Symbol: "XEQT", Amount: decimal.NewFromInt(1)})

	tests := []struct {
		name     string
		filter   types.ActivityFilter
		expected int
	}{
		{
			name:     "dividends and buys of one account",
			filter:   types.ActivityFilter{Types: []string{types.ActivityTypeDividend, types.ActivityTypeBuy}, Accounts: []string{"tfsa-1"}},
			expected: 2,
		},
		{
			name:     "no type filter",
			filter:   types.ActivityFilter{Accounts: []string{"tfsa-1"}},
			expected: 3,
		},
		{
			name:     "both accounts",
			filter:   types.ActivityFilter{Types: []string{types.ActivityTypeDividend}, Accounts: []string{"tfsa-1", "rrsp-1"}},
			expected: 2,
		},
		{
			name:     "no accounts",
			filter:   types.ActivityFilter{Types: []string{types.ActivityTypeDividend}},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activities, err := b.Activities(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Len(t, activities, tt.expected)
		})
	}
}

func TestPaperFractionalBuy(t *testing.T) {
	tests := []struct {
		name            string
		buyingPower     decimal.Decimal
		symbol          string
		amount          decimal.Decimal
		failure         error
		expectError     bool
		errorContains   string
		expectedBalance decimal.Decimal
	}{
		{
			name:            "successful buy",
			buyingPower:     decimal.NewFromFloat(1000.00),
			symbol:          "VFV",
			amount:          decimal.NewFromFloat(250.25),
			expectedBalance: decimal.NewFromFloat(749.75),
		},
		{
			name:            "buy with exact balance",
			buyingPower:     decimal.NewFromFloat(100.00),
			symbol:          "VFV",
			amount:          decimal.NewFromFloat(100.00),
			expectedBalance: decimal.Zero,
		},
		{
			name:          "insufficient funds",
			buyingPower:   decimal.NewFromFloat(10.00),
			symbol:        "VFV",
			amount:        decimal.NewFromFloat(10.01),
			expectError:   true,
			errorContains: "insufficient funds",
		},
		{
			name:          "injected failure",
			buyingPower:   decimal.NewFromFloat(1000.00),
			symbol:        "XEQT",
			amount:        decimal.NewFromFloat(5),
			failure:       errors.New("market closed"),
			expectError:   true,
			errorContains: "market closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newLoggedInPaper(t, tt.buyingPower)
			if tt.failure != nil {
				b.FailOrdersFor(tt.symbol, tt.failure)
			}

			resp, err := b.FractionalBuy(context.Background(), "tfsa-1", tt.symbol, tt.amount)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Empty(t, b.Orders())
				return
			}

			require.NoError(t, err)
			order, ok := resp.(PaperOrder)
			require.True(t, ok)
			assert.Equal(t, tt.symbol, order.Symbol)
			assert.Equal(t, types.OrderStatusPosted, order.Status)

			data, err := b.AccountData(context.Background())
			require.NoError(t, err)
			assert.True(t, tt.expectedBalance.Equal(data[0].BuyingPower),
				"Expected balance %v, got %v", tt.expectedBalance, data[0].BuyingPower)

			// the new order is the newest activity
			activities, err := b.Activities(context.Background(), types.ActivityFilter{Accounts: []string{"tfsa-1"}})
			require.NoError(t, err)
			require.NotEmpty(t, activities)
			assert.True(t, activities[0].IsPostedBuy())
			assert.Equal(t, tt.symbol, activities[0].Symbol)
		})
	}
}

func TestPaperUnknownAccount(t *testing.T) {
	b := newLoggedInPaper(t, decimal.Zero)

	_, err := b.Positions(context.Background(), "missing")
	assert.Error(t, err)

	_, err = b.FractionalBuy(context.Background(), "missing", "VFV", decimal.NewFromInt(5))
	assert.Error(t, err)
}
