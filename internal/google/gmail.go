package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"meetprep/internal/models"
)

const gmailUser = "me"

// GmailClient searches, reads and sends mail through the Gmail API.
type GmailClient struct {
	service *gmail.Service
	logger  *slog.Logger
}

// NewGmailClient creates a Gmail client from already-authenticated options.
func NewGmailClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*GmailClient, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailClient{service: service, logger: logger}, nil
}

// Search returns the ids of messages matching query.
func (c *GmailClient) Search(ctx context.Context, query string, maxResults int64) ([]string, error) {
	c.logger.Debug("Searching mail", "query", query, "max", maxResults)
	call := c.service.Users.Messages.List(gmailUser).Q(query).Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
		if maxResults > 0 && int64(len(ids)) >= maxResults {
			break
		}
	}
	return ids, nil
}

// GetMetadata fetches a message's Subject, From and Date headers plus snippet and labels.
func (c *GmailClient) GetMetadata(ctx context.Context, id string) (models.EmailMessage, error) {
	msg, err := c.service.Users.Messages.Get(gmailUser, id).
		Format("metadata").
		MetadataHeaders("Subject", "From", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return models.EmailMessage{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return toInternalMessage(msg, false), nil
}

// GetFull fetches a message including its decoded plain-text body.
func (c *GmailClient) GetFull(ctx context.Context, id string) (models.EmailMessage, error) {
	msg, err := c.service.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return models.EmailMessage{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return toInternalMessage(msg, true), nil
}

// Send delivers a raw RFC 5322 message as the authenticated user.
func (c *GmailClient) Send(ctx context.Context, raw []byte) error {
	_, err := c.service.Users.Messages.Send(gmailUser, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func toInternalMessage(msg *gmail.Message, withBody bool) models.EmailMessage {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if h == nil {
				continue
			}
			name := strings.ToLower(h.Name)
			if _, ok := headers[name]; !ok {
				headers[name] = h.Value
			}
		}
	}

	subject := headers["subject"]
	if subject == "" {
		subject = "No Subject"
	}

	out := models.EmailMessage{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		Subject:     subject,
		From:        parseSender(headers["from"]),
		ReceivedAt:  receivedAt(headers["date"], msg.InternalDate),
		Snippet:     truncateRunes(msg.Snippet, models.SnippetLimit),
		Labels:      msg.LabelIds,
		IsRead:      !slices.Contains(msg.LabelIds, "UNREAD"),
		IsStarred:   slices.Contains(msg.LabelIds, "STARRED"),
		IsImportant: slices.Contains(msg.LabelIds, "IMPORTANT"),
	}
	if withBody {
		out.BodyPreview = extractBody(msg.Payload)
	}
	return out
}

// parseSender splits a combined From header into name and address.
func parseSender(from string) models.Sender {
	from = strings.TrimSpace(from)
	if from == "" {
		return models.Sender{}
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return models.Sender{Address: from}
	}
	return models.Sender{Name: addr.Name, Address: addr.Address}
}

func receivedAt(dateHeader string, internalDate int64) time.Time {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t
		}
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate)
	}
	return time.Time{}
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// extractBody walks the MIME tree preferring the first text/plain part and
// falling back to tag-stripped text/html.
func extractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if text, ok := findPart(part, "text/plain"); ok {
		return strings.TrimSpace(text)
	}
	if html, ok := findPart(part, "text/html"); ok {
		text := htmlTagRe.ReplaceAllString(html, " ")
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) (string, bool) {
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
			return decoded, true
		}
	}
	for _, p := range part.Parts {
		if p == nil {
			continue
		}
		if text, ok := findPart(p, mimeType); ok {
			return text, true
		}
	}
	return "", false
}

func decodeBase64URL(data string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", err
		}
	}
	return string(b), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
