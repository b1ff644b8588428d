package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anforaErrors "github.com/anforahq/anfora/internal/errors"
	"github.com/anforahq/anfora/internal/mailer"
	toolcore "github.com/anforahq/anfora/internal/tool"
)

const (
	defaultEmailFetch = 5
	maxEmailFetch     = 20
)

func init() {
	toolcore.RegisterBuiltin("fetch_emails", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		defaultFetch := options.Tools.Email.DefaultFetch
		if defaultFetch <= 0 {
			defaultFetch = defaultEmailFetch
		}
		maxFetch := options.Tools.Email.MaxFetch
		if maxFetch <= 0 {
			maxFetch = maxEmailFetch
		}
		gmailCfg := options.Gmail
		return &FetchEmailsTool{
			DefaultFetch: defaultFetch,
			MaxFetch:     maxFetch,
			List: func(ctx context.Context, limit int) ([]mailer.Message, error) {
				client, err := mailer.New(ctx, gmailCfg)
				if err != nil {
					return nil, err
				}
				return client.ListUnread(ctx, limit)
			},
		}, nil
	})
}

// FetchEmailsTool lists unread inbox messages. List is exported so tests can
// stub out the Gmail API.
type FetchEmailsTool struct {
	DefaultFetch int
	MaxFetch     int
	List         func(ctx context.Context, limit int) ([]mailer.Message, error)
}

type fetchEmailsInput struct {
	Limit int `json:"limit"`
}

func (t *FetchEmailsTool) Name() string { return "fetch_emails" }

func (t *FetchEmailsTool) Description() string {
	return "Fetch unread emails from the inbox. Returns sender, subject, date, and a snippet for each."
}

func (t *FetchEmailsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum number of emails to fetch (default %d, at most %d)", defaultEmailFetch, maxEmailFetch),
			},
		},
	}
}

func (t *FetchEmailsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args fetchEmailsInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	limit := args.Limit
	if limit <= 0 {
		limit = t.DefaultFetch
	}
	if limit > t.MaxFetch {
		limit = t.MaxFetch
	}

	messages, err := t.List(ctx, limit)
	if err != nil {
		if anforaErrors.IsCategory(err, anforaErrors.ErrAuthRequired) {
			return "Error: Gmail authorization required. Run the OAuth consent flow to create token.json, then retry.", nil
		}
		return fmt.Sprintf("Error fetching emails: %v", err), nil
	}

	if len(messages) == 0 {
		return "No unread emails found in inbox.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d unread emails:\n", len(messages))
	for i, msg := range messages {
		fmt.Fprintf(&b, "%d. [id: %s] From: %s | Subject: %s | Date: %s\n   %s\n",
			i+1, msg.ID, msg.From, msg.Subject, msg.Date, msg.Snippet)
	}
	return b.String(), nil
}
