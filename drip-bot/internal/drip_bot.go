package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/drip-bot/pkg/notification"
	"github.com/vignesh-goutham/drip/pkg/alpaca"
	"github.com/vignesh-goutham/drip/pkg/allocation"
	"github.com/vignesh-goutham/drip/pkg/brokerage"
	"github.com/vignesh-goutham/drip/pkg/dividends"
	"github.com/vignesh-goutham/drip/pkg/dynamodb"
	"github.com/vignesh-goutham/drip/pkg/otp"
	"github.com/vignesh-goutham/drip/pkg/types"
	"github.com/vignesh-goutham/drip/pkg/wealthsimple"
)

const debugResponse = "debug mode"

// Journal records finished runs
type Journal interface {
	SaveRun(ctx context.Context, record types.RunRecord) error
}

// Notifier reports run outcomes to the operator
type Notifier interface {
	NotifyRunComplete(accountType types.AccountType, results []types.OrderResult, debug bool) error
	NotifyError(errorType string, message string, details string) error
}

// DripBot reinvests the dividends of one account
type DripBot struct {
	config   *Config
	broker   brokerage.Brokerage
	otp      brokerage.OTPFunc
	journal  Journal
	notifier Notifier
	now      func() time.Time
}

// NewDripBot creates a drip bot for the configured brokerage
func NewDripBot(ctx context.Context, config *Config) (*DripBot, error) {
	var broker brokerage.Brokerage
	var otpFunc brokerage.OTPFunc

	switch config.Brokerage {
	case BrokerageWealthsimple:
		broker = wealthsimple.NewClient(config.WSBaseURL)
		otpFunc = gmailOTP(config)
	case BrokerageAlpaca:
		broker = alpaca.NewBrokerage(config.AlpacaAPIKey, config.AlpacaSecretKey, config.IsPaperTrading, config.AccountType)
	case BrokeragePaper:
		paper := brokerage.NewPaperBrokerage(config.WSEmail, config.WSPassword)
		paper.AddAccount("paper-"+string(config.AccountType), config.AccountType, config.PaperBuyingPower)
		broker = paper
	default:
		return nil, &types.ConfigError{Key: "BROKERAGE", Value: config.Brokerage}
	}

	var journal Journal
	if config.TableName != "" {
		dbService, err := dynamodb.NewService(ctx, config.DynamoDBRegion, config.TableName)
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB service: %w", err)
		}
		journal = dbService
	}

	notifier := notification.NewDiscordNotificationService(config.DiscordWebhookURL, config.Currency)

	return newDripBot(config, broker, otpFunc, journal, notifier), nil
}

func newDripBot(config *Config, broker brokerage.Brokerage, otpFunc brokerage.OTPFunc, journal Journal, notifier Notifier) *DripBot {
	return &DripBot{
		config:   config,
		broker:   broker,
		otp:      otpFunc,
		journal:  journal,
		notifier: notifier,
		now:      time.Now,
	}
}

// gmailOTP reads the passcode from the configured mailbox. The mailbox is
// only opened once the brokerage actually asks for a code.
func gmailOTP(config *Config) brokerage.OTPFunc {
	return func(ctx context.Context) (string, error) {
		inbox, err := otp.NewGmailInbox(ctx, config.GmailKeyFile, config.GmailAddress)
		if err != nil {
			return "", fmt.Errorf("%w: %w", types.ErrCodeNotFound, err)
		}
		return otp.NewRetriever(inbox, config.OTPQuery, config.OTPDelay).FetchCode(ctx)
	}
}

// Run executes one reinvestment pass and returns a result per held symbol
func (db *DripBot) Run(ctx context.Context) ([]types.OrderResult, error) {
	started := db.now()
	slog.Info("Starting drip run", "brokerage", db.config.Brokerage, "account_type", db.config.AccountType, "debug", db.config.Debug)

	results, err := db.run(ctx)

	db.record(ctx, started, results, err)
	if err != nil {
		slog.Error("Drip run failed", "error", err)
		db.notify(func(n Notifier) error {
			return n.NotifyError("Drip Run", "Dividend reinvestment failed", err.Error())
		})
		return nil, err
	}

	db.notify(func(n Notifier) error {
		return n.NotifyRunComplete(db.config.AccountType, results, db.config.Debug)
	})
	slog.Info("Drip run completed", "orders", len(results))
	return results, nil
}

func (db *DripBot) run(ctx context.Context) ([]types.OrderResult, error) {
	if err := db.broker.Login(ctx, db.config.WSEmail, db.config.WSPassword, db.otp); err != nil {
		return nil, wrapAs(types.ErrAuthenticationFailed, err)
	}

	accounts, err := db.broker.Accounts(ctx)
	if err != nil {
		return nil, wrapAs(types.ErrAccountDataUnavailable, err)
	}
	accountID, ok := accounts[db.config.AccountType]
	if !ok || accountID == "" {
		return nil, fmt.Errorf("%w: no %s account", types.ErrAccountNotFound, db.config.AccountType)
	}
	slog.Info("Resolved account", "account_type", db.config.AccountType, "account_id", accountID)

	buyingPower, positions, activities, err := db.gather(ctx, accountID)
	if err != nil {
		return nil, wrapAs(types.ErrAccountDataUnavailable, err)
	}

	if len(positions) == 0 {
		slog.Info("No positions held, nothing to reinvest")
		return []types.OrderResult{}, nil
	}

	state := dividends.Compute(positions, activities)
	plans, err := allocation.Plan(buyingPower, state)
	if err != nil {
		return nil, err
	}
	slog.Info("Planned orders", "buying_power", buyingPower.StringFixed(2), "uninvested_dividends", state.Total().StringFixed(2), "orders", len(plans))

	results := make([]types.OrderResult, 0, len(plans))
	for _, plan := range plans {
		results = append(results, types.OrderResult{
			Symbol:         plan.Symbol,
			BuyAmount:      plan.BuyAmount,
			DividendAmount: plan.DividendAmount,
			Result:         db.place(ctx, accountID, plan),
		})
	}
	return results, nil
}

// gather fetches everything the plan depends on
func (db *DripBot) gather(ctx context.Context, accountID string) (decimal.Decimal, []types.Position, []types.Activity, error) {
	accountData, err := db.broker.AccountData(ctx)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	var buyingPower decimal.Decimal
	found := false
	for _, account := range accountData {
		if account.ID == accountID {
			buyingPower = account.BuyingPower
			found = true
			break
		}
	}
	if !found {
		return decimal.Zero, nil, nil, fmt.Errorf("no account data for %s", accountID)
	}

	positions, err := db.broker.Positions(ctx, accountID)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	activities, err := db.broker.Activities(ctx, types.ActivityFilter{
		Types:    []string{types.ActivityTypeDividend, types.ActivityTypeBuy},
		Accounts: []string{accountID},
	})
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	return buyingPower, positions, activities, nil
}

// place sends one order. Failures stay local to the symbol.
func (db *DripBot) place(ctx context.Context, accountID string, plan types.OrderPlan) types.PlacementResult {
	if db.config.Debug {
		slog.Info("Debug mode, skipping order", "symbol", plan.Symbol, "amount", plan.BuyAmount.StringFixed(2))
		return types.PlacementResult{Response: debugResponse}
	}

	if allocation.BelowMinimum(plan.BuyAmount) {
		slog.Warn("Order below minimum", "symbol", plan.Symbol, "amount", plan.BuyAmount.StringFixed(2))
		return types.PlacementResult{Error: types.ErrOrderRejected.Error()}
	}

	response, err := db.broker.FractionalBuy(ctx, accountID, plan.Symbol, plan.BuyAmount)
	if err != nil {
		slog.Error("Order failed", "symbol", plan.Symbol, "amount", plan.BuyAmount.StringFixed(2),
			"error", fmt.Errorf("%w: %w", types.ErrOrderPlacementFailed, err))
		return types.PlacementResult{Error: err.Error()}
	}

	slog.Info("Order placed", "symbol", plan.Symbol, "amount", plan.BuyAmount.StringFixed(2))
	return types.PlacementResult{Response: response}
}

func (db *DripBot) record(ctx context.Context, started time.Time, results []types.OrderResult, runErr error) {
	if db.journal == nil {
		return
	}

	record := types.RunRecord{
		UUID:         uuid.New(),
		AccountType:  db.config.AccountType,
		Debug:        db.config.Debug,
		StartedAt:    started,
		FinishedAt:   db.now(),
		OrderResults: results,
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}

	// failed runs are journaled too, often after the deadline hit
	if err := db.journal.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		slog.Warn("Failed to journal run", "error", err)
	}
}

func (db *DripBot) notify(send func(Notifier) error) {
	if db.notifier == nil {
		return
	}
	if err := send(db.notifier); err != nil {
		slog.Warn("Failed to send notification", "error", err)
	}
}

// wrapAs tags err with a run-level sentinel unless it already carries one
func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
