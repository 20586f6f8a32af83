package internal

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vignesh-goutham/drip/pkg/types"
)

// Runner performs one drip run
type Runner interface {
	Run(ctx context.Context) ([]types.OrderResult, error)
}

// Envelope is the response body returned to the caller
type Envelope struct {
	Status       int                 `json:"status"`
	OrderResults []types.OrderResult `json:"orderResults,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Respond runs the bot and wraps the outcome in an envelope
func Respond(ctx context.Context, runner Runner) Envelope {
	results, err := runner.Run(ctx)
	if err != nil {
		return ErrorEnvelope(err)
	}
	return Envelope{Status: http.StatusOK, OrderResults: results}
}

// ErrorEnvelope reports a failure that happened before or during the run
func ErrorEnvelope(err error) Envelope {
	return Envelope{Status: http.StatusInternalServerError, Error: err.Error()}
}

// MarshalJSON keeps orderResults on success even when it is empty
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Error != "" {
		return json.Marshal(struct {
			Status int    `json:"status"`
			Error  string `json:"error"`
		}{e.Status, e.Error})
	}

	results := e.OrderResults
	if results == nil {
		results = []types.OrderResult{}
	}
	return json.Marshal(struct {
		Status       int                 `json:"status"`
		OrderResults []types.OrderResult `json:"orderResults"`
	}{e.Status, results})
}
