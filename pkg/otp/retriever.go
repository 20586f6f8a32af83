// Package otp fetches brokerage verification codes from an email inbox.
package otp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vignesh-goutham/drip/pkg/types"
	"google.golang.org/api/gmail/v1"
)

const (
	DefaultQuery = "Wealthsimple verification code"
	DefaultDelay = 10 * time.Second
)

var codePattern = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)

// Inbox looks up the newest message matching a search query
type Inbox interface {
	LatestMessage(ctx context.Context, query string) (*gmail.Message, error)
}

// Retriever waits for the verification email and extracts its code
type Retriever struct {
	inbox Inbox
	query string
	delay time.Duration
}

// NewRetriever creates a retriever; an empty query or negative delay falls back to the defaults
func NewRetriever(inbox Inbox, query string, delay time.Duration) *Retriever {
	if query == "" {
		query = DefaultQuery
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Retriever{
		inbox: inbox,
		query: query,
		delay: delay,
	}
}

// FetchCode waits for the inbox to receive the email, then returns the first
// six digit code in the newest matching message. One attempt only.
func (r *Retriever) FetchCode(ctx context.Context) (string, error) {
	slog.Info("Waiting for verification email", "delay", r.delay, "query", r.query)

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", types.ErrCodeNotFound, ctx.Err())
	case <-time.After(r.delay):
	}

	msg, err := r.inbox.LatestMessage(ctx, r.query)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrCodeNotFound, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: no message matches %q", types.ErrCodeNotFound, r.query)
	}

	body, err := decodeBody(messageData(msg))
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode message %s: %w", types.ErrCodeNotFound, msg.Id, err)
	}

	code, ok := FindCode(body)
	if !ok {
		return "", fmt.Errorf("%w: message %s has no six digit code", types.ErrCodeNotFound, msg.Id)
	}

	slog.Info("Found verification code", "message_id", msg.Id)
	return code, nil
}

// FindCode returns the first run of exactly six digits in text
func FindCode(text string) (string, bool) {
	match := codePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// messageData picks the first MIME part carrying a body, falling back to the
// top-level body for single-part messages
func messageData(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if data := partData(msg.Payload.Parts); data != "" {
		return data
	}
	if msg.Payload.Body != nil {
		return msg.Payload.Body.Data
	}
	return ""
}

func partData(parts []*gmail.MessagePart) string {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Body != nil && part.Body.Data != "" {
			return part.Body.Data
		}
		if data := partData(part.Parts); data != "" {
			return data
		}
	}
	return ""
}

var urlSafe = strings.NewReplacer("-", "+", "_", "/")

// decodeBody undoes the URL-safe base64 transport encoding, padding optional
func decodeBody(data string) (string, error) {
	if data == "" {
		return "", fmt.Errorf("empty body")
	}

	raw := strings.TrimRight(urlSafe.Replace(data), "=")
	decoded, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
