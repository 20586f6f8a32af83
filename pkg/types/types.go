package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType selects which brokerage account the bot reinvests in
type AccountType string

const (
	AccountTypeTFSA AccountType = "tfsa"
	AccountTypeRRSP AccountType = "rrsp"
)

// ParseAccountType validates a configured account type
func ParseAccountType(value string) (AccountType, error) {
	switch AccountType(value) {
	case AccountTypeTFSA, AccountTypeRRSP:
		return AccountType(value), nil
	default:
		return "", &ConfigError{Key: "ACCOUNT_TYPE", Value: value}
	}
}

// Activity kinds and order statuses reported by the brokerage
const (
	ActivityKindOrder    = "order"
	ActivityKindDividend = "dividend"

	OrderStatusPosted = "posted"

	ActivityTypeDividend = "dividend"
	ActivityTypeBuy      = "buy"
)

// Account is one entry of the brokerage's account data listing
type Account struct {
	ID          string          `json:"id"`
	Type        AccountType     `json:"type"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}

// Position is a currently held instrument
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	MarketValue decimal.Decimal `json:"market_value"`
}

// Activity is one entry of the account history, newest first
type Activity struct {
	Kind   string          `json:"object"`
	Symbol string          `json:"symbol"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
}

// IsPostedBuy reports whether the activity is a completed buy order
func (a Activity) IsPostedBuy() bool {
	return a.Kind == ActivityKindOrder && a.Status == OrderStatusPosted
}

// IsDividend reports whether the activity is a dividend payment
func (a Activity) IsDividend() bool {
	return a.Kind == ActivityKindDividend
}

// ActivityFilter narrows an activity query
type ActivityFilter struct {
	Types    []string
	Accounts []string
}

// OrderPlan is the amount to buy for one held symbol
type OrderPlan struct {
	Symbol         string
	BuyAmount      decimal.Decimal
	DividendAmount decimal.Decimal
}

// PlacementResult carries either the brokerage response or an error message
type PlacementResult struct {
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OrderResult is the outcome of attempting one OrderPlan
type OrderResult struct {
	Symbol         string          `json:"symbol"`
	BuyAmount      decimal.Decimal `json:"buyAmount"`
	DividendAmount decimal.Decimal `json:"dividendAmount"`
	Result         PlacementResult `json:"result"`
}

// MarshalJSON renders the amounts as plain numbers with two decimals
func (r OrderResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol         string          `json:"symbol"`
		BuyAmount      json.Number     `json:"buyAmount"`
		DividendAmount json.Number     `json:"dividendAmount"`
		Result         PlacementResult `json:"result"`
	}{
		Symbol:         r.Symbol,
		BuyAmount:      json.Number(r.BuyAmount.StringFixed(2)),
		DividendAmount: json.Number(r.DividendAmount.StringFixed(2)),
		Result:         r.Result,
	})
}

// Failed reports whether the placement did not go through
func (r OrderResult) Failed() bool {
	return r.Result.Error != ""
}

// ItemType represents the type of item in the unified table
type ItemType string

const (
	ItemTypeRun ItemType = "RUN"
)

// UnifiedItem represents a single item in the unified DynamoDB table
type UnifiedItem struct {
	PK        string    `json:"pk" dynamodbav:"pk"`     // Partition key
	SK        string    `json:"sk" dynamodbav:"sk"`     // Sort key
	Type      ItemType  `json:"type" dynamodbav:"type"` // Item type
	Data      string    `json:"data" dynamodbav:"data"` // JSON data
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// RunRecord is the journal entry written after each invocation
type RunRecord struct {
	UUID         uuid.UUID     `json:"uuid"`
	AccountType  AccountType   `json:"account_type"`
	Debug        bool          `json:"debug"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	OrderResults []OrderResult `json:"order_results,omitempty"`
	Error        string        `json:"error,omitempty"`
}
