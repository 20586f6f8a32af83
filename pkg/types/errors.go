package types

import (
	"errors"
	"fmt"
)

// Errors that abort a whole run
var (
	ErrCodeNotFound           = errors.New("verification code not found")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountDataUnavailable = errors.New("account data unavailable")
	ErrInvalidInput           = errors.New("invalid input")
)

// Errors local to a single symbol's order
var (
	ErrOrderRejected        = errors.New("fractional orders must be $1 or more in value")
	ErrOrderPlacementFailed = errors.New("order placement failed")
)

// ConfigError reports an unusable configuration value
type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("required environment variable %s is not set", e.Key)
	}
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
}
