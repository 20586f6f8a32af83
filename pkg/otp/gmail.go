package otp

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailInbox reads one mailbox through a service account with domain-wide delegation
type GmailInbox struct {
	service *gmail.Service
	address string
}

// NewGmailInbox creates an inbox from a service account key file
func NewGmailInbox(ctx context.Context, keyFile, address string) (*GmailInbox, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	return NewGmailInboxFromJSON(ctx, key, address)
}

// NewGmailInboxFromJSON creates an inbox from service account key material
func NewGmailInboxFromJSON(ctx context.Context, key []byte, address string) (*GmailInbox, error) {
	if address == "" {
		return nil, fmt.Errorf("mailbox address is required")
	}

	jwt, err := google.JWTConfigFromJSON(key, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	jwt.Subject = address

	return newGmailInbox(ctx, address, option.WithHTTPClient(jwt.Client(ctx)))
}

func newGmailInbox(ctx context.Context, address string, opts ...option.ClientOption) (*GmailInbox, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailInbox{
		service: service,
		address: address,
	}, nil
}

// LatestMessage returns the newest message matching query, or nil when none does
func (g *GmailInbox) LatestMessage(ctx context.Context, query string) (*gmail.Message, error) {
	list, err := g.service.Users.Messages.List(g.address).
		Q(query).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return nil, nil
	}

	msg, err := g.service.Users.Messages.Get(g.address, list.Messages[0].Id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", list.Messages[0].Id, err)
	}
	return msg, nil
}
