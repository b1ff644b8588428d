package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	anforaErrors "github.com/anforahq/anfora/internal/errors"
	"github.com/anforahq/anfora/internal/mailer"
	toolcore "github.com/anforahq/anfora/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("reply_to_email", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		gmailCfg := options.Gmail
		return &ReplyTool{
			GetOriginal: func(ctx context.Context, id string) (*gmail.Message, error) {
				client, err := mailer.New(ctx, gmailCfg)
				if err != nil {
					return nil, err
				}
				return client.GetRaw(ctx, id)
			},
			Send: func(ctx context.Context, original *gmail.Message, body string) (string, error) {
				client, err := mailer.New(ctx, gmailCfg)
				if err != nil {
					return "", err
				}
				return client.SendReply(ctx, original, body)
			},
			MarkRead: func(ctx context.Context, id string) error {
				client, err := mailer.New(ctx, gmailCfg)
				if err != nil {
					return err
				}
				return client.MarkRead(ctx, id)
			},
		}, nil
	})
}

// ReplyTool sends a threaded reply and then marks the original as read.
// The two steps are not transactional; a failed mark-read after a
// successful send is reported, not rolled back.
type ReplyTool struct {
	GetOriginal func(ctx context.Context, id string) (*gmail.Message, error)
	Send        func(ctx context.Context, original *gmail.Message, body string) (string, error)
	MarkRead    func(ctx context.Context, id string) error
}

type replyInput struct {
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

func (t *ReplyTool) Name() string { return "reply_to_email" }

func (t *ReplyTool) Description() string {
	return "Reply to an email by message id. The reply stays in the original thread and the original is marked as read."
}

func (t *ReplyTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message_id": map[string]interface{}{
				"type":        "string",
				"description": "The id of the email to reply to, as returned by fetch_emails",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "The plain-text body of the reply",
			},
		},
		"required": []string{"message_id", "body"},
	}
}

func (t *ReplyTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args replyInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(args.MessageID) == "" {
		return "Error: message_id is required.", nil
	}
	if strings.TrimSpace(args.Body) == "" {
		return "Error: reply body is required.", nil
	}

	original, err := t.GetOriginal(ctx, args.MessageID)
	if err != nil {
		if anforaErrors.IsCategory(err, anforaErrors.ErrAuthRequired) {
			return "Error: Gmail authorization required. Run the OAuth consent flow to create token.json, then retry.", nil
		}
		return fmt.Sprintf("Error: could not fetch message %s: %v", args.MessageID, err), nil
	}

	sentID, err := t.Send(ctx, original, args.Body)
	if err != nil {
		return fmt.Sprintf("Error sending reply: %v", err), nil
	}

	if err := t.MarkRead(ctx, args.MessageID); err != nil {
		return fmt.Sprintf("Reply sent (id: %s), but marking the original as read failed: %v", sentID, err), nil
	}

	return fmt.Sprintf("Reply sent (id: %s) and original marked as read.", sentID), nil
}
