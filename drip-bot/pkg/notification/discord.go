package notification

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/types"
)

// DiscordNotificationService handles sending notifications to Discord
type DiscordNotificationService struct {
	client     *resty.Client
	webhookURL string
	currency   string
	enabled    bool
}

// DiscordWebhookPayload represents the payload sent to Discord webhook
type DiscordWebhookPayload struct {
	Content string `json:"content"`
}

// NewDiscordNotificationService creates a new Discord notification service
func NewDiscordNotificationService(webhookURL, currency string) *DiscordNotificationService {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	return &DiscordNotificationService{
		client:     client,
		webhookURL: webhookURL,
		currency:   currency,
		enabled:    webhookURL != "",
	}
}

// maxContentLength is Discord's limit on a webhook message's content
const maxContentLength = 2000

// sendNotification sends a notification to Discord, split into as many
// messages as the content limit requires
func (d *DiscordNotificationService) sendNotification(message string) error {
	if !d.enabled {
		slog.Debug("Discord notifications disabled (no webhook URL)")
		return nil
	}

	for _, chunk := range splitMessage(message, maxContentLength) {
		if err := d.post(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiscordNotificationService) post(message string) error {
	resp, err := d.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(DiscordWebhookPayload{Content: message}).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Discord notification: %w", err)
	}

	if resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("Discord webhook returned status %d", resp.StatusCode())
	}

	return nil
}

// splitMessage breaks message on line boundaries into chunks of at most limit
// characters. A single line longer than limit is cut.
func splitMessage(message string, limit int) []string {
	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(message, "\n") {
		if runes := []rune(line); len(runes) > limit {
			line = string(runes[:limit-1]) + "…"
		}

		needed := utf8.RuneCountInString(line)
		if current.Len() > 0 {
			needed++
		}
		if utf8.RuneCountInString(current.String())+needed > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 || len(chunks) == 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Format renders an amount in the configured currency, e.g. $1,234.50
func (d *DiscordNotificationService) Format(amount decimal.Decimal) string {
	return FormatAmount(amount, d.currency)
}

// FormatAmount renders an amount with the currency's symbol and grouping
func FormatAmount(amount decimal.Decimal, currency string) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, currency).Display()
}

// NotifyRunComplete summarises the orders of one run
func (d *DiscordNotificationService) NotifyRunComplete(accountType types.AccountType, results []types.OrderResult, debug bool) error {
	var b strings.Builder

	title := "✅ **Dividend Reinvestment Complete**"
	if debug {
		title = "🧪 **Dividend Reinvestment Complete (debug mode)**"
	}
	fmt.Fprintf(&b, "%s\nAccount: %s\n", title, strings.ToUpper(string(accountType)))

	total := decimal.Zero
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			fmt.Fprintf(&b, "❌ %s %s: %s\n", r.Symbol, d.Format(r.BuyAmount), r.Result.Error)
			continue
		}
		total = total.Add(r.BuyAmount)
		fmt.Fprintf(&b, "🛒 %s %s (dividends %s)\n", r.Symbol, d.Format(r.BuyAmount), d.Format(r.DividendAmount))
	}
	fmt.Fprintf(&b, "Invested: %s\nFailed: %d of %d", d.Format(total), failed, len(results))

	return d.sendNotification(b.String())
}

// NotifyError sends a notification for errors
func (d *DiscordNotificationService) NotifyError(errorType string, message string, details string) error {
	errorMessage := fmt.Sprintf("⚠️ **Error Alert**\n"+
		"**%s**\n"+
		"%s\n"+
		"Details: %s",
		errorType, message, details)

	return d.sendNotification(errorMessage)
}
