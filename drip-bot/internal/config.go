package internal

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/otp"
	"github.com/vignesh-goutham/drip/pkg/types"
	"github.com/vignesh-goutham/drip/pkg/wealthsimple"
)

// Brokerage backends
const (
	BrokerageWealthsimple = "wealthsimple"
	BrokerageAlpaca       = "alpaca"
	BrokeragePaper        = "paper"
)

// Config holds the application configuration
type Config struct {
	Brokerage   string
	AccountType types.AccountType
	Debug       bool
	Currency    string

	// Wealthsimple credentials
	WSEmail    string
	WSPassword string
	WSBaseURL  string

	// Verification code mailbox
	GmailAddress string
	GmailKeyFile string
	OTPQuery     string
	OTPDelay     time.Duration

	// Alpaca credentials
	AlpacaAPIKey    string
	AlpacaSecretKey string
	IsPaperTrading  bool

	// Paper brokerage
	PaperBuyingPower decimal.Decimal

	// DynamoDB run journal, disabled without a table name
	DynamoDBRegion string
	TableName      string

	// Discord notifications
	DiscordWebhookURL string

	InvocationTimeout time.Duration
}

// LoadConfigFromEnv loads configuration from environment variables, reading
// a .env file first when one exists
func LoadConfigFromEnv() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		slog.Warn("Ignoring unreadable .env file", "error", err)
	}

	config := &Config{}

	config.Brokerage = strings.ToLower(getEnvOrDefault("BROKERAGE", BrokerageWealthsimple))
	accountType, err := types.ParseAccountType(strings.ToLower(getEnvOrDefault("ACCOUNT_TYPE", string(types.AccountTypeTFSA))))
	if err != nil {
		return nil, err
	}
	config.AccountType = accountType
	config.Debug = getEnvAsBoolOrDefault("DEBUG", false)
	config.Currency = getEnvOrDefault("CURRENCY", "CAD")

	config.WSEmail = os.Getenv("WS_EMAIL")
	config.WSPassword = os.Getenv("WS_PASS")
	config.WSBaseURL = getEnvOrDefault("WS_BASE_URL", wealthsimple.DefaultBaseURL)

	config.GmailAddress = os.Getenv("GMAIL_ADDRESS")
	config.GmailKeyFile = getEnvOrDefault("GMAIL_KEY_FILE", "./serviceAccount.json")
	config.OTPQuery = getEnvOrDefault("OTP_QUERY", otp.DefaultQuery)
	config.OTPDelay = getEnvAsDurationOrDefault("OTP_DELAY", otp.DefaultDelay)

	config.AlpacaAPIKey = os.Getenv("ALPACA_API_KEY")
	config.AlpacaSecretKey = os.Getenv("ALPACA_SECRET_KEY")
	config.IsPaperTrading = getEnvAsBoolOrDefault("IS_PAPER_TRADING", true)

	config.PaperBuyingPower = getEnvAsDecimalOrDefault("PAPER_BUYING_POWER", decimal.Zero)

	config.DynamoDBRegion = getEnvOrDefault("DYNAMODB_REGION", "us-east-1")
	config.TableName = os.Getenv("TABLE_NAME")

	config.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")

	config.InvocationTimeout = getEnvAsDurationOrDefault("INVOCATION_TIMEOUT", 5*time.Minute)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadDotEnv reads .env from the working directory; a missing file is not an error
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Validate checks that the selected brokerage has what it needs
func (c *Config) Validate() error {
	required := map[string]string{}

	switch c.Brokerage {
	case BrokerageWealthsimple:
		required["WS_EMAIL"] = c.WSEmail
		required["WS_PASS"] = c.WSPassword
		required["GMAIL_ADDRESS"] = c.GmailAddress
	case BrokerageAlpaca:
		required["ALPACA_API_KEY"] = c.AlpacaAPIKey
		required["ALPACA_SECRET_KEY"] = c.AlpacaSecretKey
	case BrokeragePaper:
	default:
		return &types.ConfigError{Key: "BROKERAGE", Value: c.Brokerage}
	}

	for _, key := range []string{"WS_EMAIL", "WS_PASS", "GMAIL_ADDRESS", "ALPACA_API_KEY", "ALPACA_SECRET_KEY"} {
		if value, ok := required[key]; ok && value == "" {
			return &types.ConfigError{Key: key}
		}
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsBoolOrDefault gets an environment variable as bool or returns a default value
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	lowerValue := strings.ToLower(value)
	return lowerValue == "true" || lowerValue == "1" || lowerValue == "yes"
}

// getEnvAsDurationOrDefault gets an environment variable as a duration or returns a default value
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return d
}

// getEnvAsDecimalOrDefault gets an environment variable as a decimal or returns a default value
func getEnvAsDecimalOrDefault(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		slog.Warn("Invalid decimal, using default", "key", key, "value", value, "default", defaultValue.String())
		return defaultValue
	}
	return d
}
