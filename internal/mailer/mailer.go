package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/anforahq/anfora/internal/config"
	anforaErrors "github.com/anforahq/anfora/internal/errors"
)

// Message is the flattened view of a Gmail message the tools work with.
type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Date      string `json:"date"`
	Snippet   string `json:"snippet"`
	MessageID string `json:"-"`
}

// Client wraps the Gmail API for the inbox tools. Service is exported so
// tests can inject a stub.
type Client struct {
	cfg     config.GmailConfig
	Service *gmail.Service
}

// New builds an authorized Gmail client. A missing or unrefreshable token
// yields ErrAuthRequired; the interactive consent flow is a deployment step,
// not something the agent can do mid conversation.
func New(ctx context.Context, cfg config.GmailConfig) (*Client, error) {
	credBytes, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %v", anforaErrors.ErrAuthRequired, err)
	}

	oauthCfg, err := google.ConfigFromJSON(credBytes, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: load token: %v", anforaErrors.ErrAuthRequired, err)
	}

	source := &savingTokenSource{
		path:    cfg.TokenFile,
		wrapped: oauthCfg.TokenSource(ctx, token),
		last:    token,
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{cfg: cfg, Service: svc}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// savingTokenSource persists refreshed tokens back to disk so the next
// process start does not depend on the old access token still being valid.
type savingTokenSource struct {
	path    string
	wrapped oauth2.TokenSource
	last    *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.wrapped.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %v", anforaErrors.ErrAuthRequired, err)
	}

	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if err := saveToken(s.path, token); err == nil {
			s.last = token
		}
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}

// ListUnread returns up to limit unread inbox messages, newest first.
func (c *Client) ListUnread(ctx context.Context, limit int) ([]Message, error) {
	list, err := c.Service.Users.Messages.List("me").
		Q("is:unread in:inbox").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list unread messages: %w", anforaErrors.MapError(err))
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.Get(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// Get fetches one message with the headers the tools need.
func (c *Client) Get(ctx context.Context, id string) (*Message, error) {
	raw, err := c.Service.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Date", "Message-ID", "References").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, anforaErrors.MapError(err))
	}
	return flatten(raw), nil
}

func flatten(raw *gmail.Message) *Message {
	msg := &Message{
		ID:       raw.Id,
		ThreadID: raw.ThreadId,
		Snippet:  raw.Snippet,
	}
	if raw.Payload == nil {
		return msg
	}
	for _, h := range raw.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = h.Value
		case "subject":
			msg.Subject = h.Value
		case "date":
			msg.Date = h.Value
		case "message-id":
			msg.MessageID = h.Value
		}
	}
	return msg
}

// SendReply sends body as a threaded reply to the given message and returns
// the sent message id.
func (c *Client) SendReply(ctx context.Context, original *gmail.Message, body string) (string, error) {
	mime, err := BuildReplyMIME(original, body)
	if err != nil {
		return "", err
	}

	sent, err := c.Service.Users.Messages.Send("me", &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(mime)),
		ThreadId: original.ThreadId,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("send reply: %w", anforaErrors.MapError(err))
	}
	return sent.Id, nil
}

// MarkRead removes the UNREAD label from a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.Service.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("mark message %s read: %w", id, anforaErrors.MapError(err))
	}
	return nil
}

// GetRaw fetches the full message, which SendReply needs for threading
// headers.
func (c *Client) GetRaw(ctx context.Context, id string) (*gmail.Message, error) {
	raw, err := c.Service.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Message-ID", "References").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, anforaErrors.MapError(err))
	}
	return raw, nil
}

var addressPattern = regexp.MustCompile(`<(.+?)>`)

// ExtractAddress pulls the bare address out of a "Name <addr>" header value.
func ExtractAddress(header string) string {
	if m := addressPattern.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return strings.TrimSpace(header)
}

// BuildReplyMIME renders the RFC 2822 reply. The subject gets a single "Re: "
// prefix, In-Reply-To points at the original, and References extends the
// original chain so threading survives in other clients too.
func BuildReplyMIME(original *gmail.Message, body string) (string, error) {
	if original == nil || original.Payload == nil {
		return "", fmt.Errorf("original message has no headers")
	}

	var from, subject, messageID, references string
	for _, h := range original.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			from = h.Value
		case "subject":
			subject = h.Value
		case "message-id":
			messageID = h.Value
		case "references":
			references = h.Value
		}
	}

	to := ExtractAddress(from)
	if to == "" {
		return "", fmt.Errorf("original message has no sender")
	}

	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if messageID != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", messageID)
		chain := strings.TrimSpace(references + " " + messageID)
		fmt.Fprintf(&b, "References: %s\r\n", chain)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return b.String(), nil
}
