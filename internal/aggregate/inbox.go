package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"meetprep/internal/classify"
	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

const (
	inboxWindow       = 24 * time.Hour
	inboxPreviewLimit = 500
)

// InboxEmail is a fetched message with its generative category.
type InboxEmail struct {
	models.EmailMessage
	Category models.InboxCategory
}

// InboxContext is the categorized inbox of the last 24 hours.
type InboxContext struct {
	Emails []InboxEmail
	Counts map[models.InboxCategory]int
	// Fallback is set when the model answer could not be parsed and every
	// email was filed under highPriority.
	Fallback bool
}

// ByCategory returns the emails filed under c in fetch order.
func (c *InboxContext) ByCategory(cat models.InboxCategory) []InboxEmail {
	var out []InboxEmail
	for _, e := range c.Emails {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// InboxContextBuilder fetches recent priority mail and has the text
// generator categorize it in one batch.
type InboxContextBuilder struct {
	mail      gateway.MailGateway
	generator gateway.TextGenerator
	logger    *slog.Logger
	now       func() time.Time
}

func NewInboxContextBuilder(logger *slog.Logger, mail gateway.MailGateway, generator gateway.TextGenerator) *InboxContextBuilder {
	return &InboxContextBuilder{mail: mail, generator: generator, logger: logger, now: time.Now}
}

func (b *InboxContextBuilder) WithClock(now func() time.Time) *InboxContextBuilder {
	b.now = now
	return b
}

// Build fails when the mailbox cannot be searched or the text generator
// fails. Messages that cannot be fetched are skipped; a malformed model
// answer yields the highPriority fallback.
func (b *InboxContextBuilder) Build(ctx context.Context) (*InboxContext, error) {
	msgs, err := b.recentEmails(ctx)
	if err != nil {
		return nil, err
	}
	ic := &InboxContext{Counts: classify.InboxAssignment(nil).Counts()}
	if len(msgs) == 0 {
		return ic, nil
	}

	raw, err := b.generator.Generate(ctx, InboxPrompt(msgs))
	if err != nil {
		return nil, fmt.Errorf("failed to classify inbox: %w", err)
	}

	assignment, err := classify.ParseInboxCategories(raw, len(msgs))
	if err != nil {
		b.logger.Warn("Inbox classification unreadable, filing everything as high priority", "error", err, "emails", len(msgs))
		assignment = classify.FallbackInboxAssignment(len(msgs))
		ic.Fallback = true
	}

	ic.Emails = make([]InboxEmail, len(msgs))
	for i, m := range msgs {
		ic.Emails[i] = InboxEmail{EmailMessage: m, Category: assignment[i]}
	}
	ic.Counts = assignment.Counts()
	return ic, nil
}

func (b *InboxContextBuilder) recentEmails(ctx context.Context) ([]models.EmailMessage, error) {
	since := b.now().Add(-inboxWindow).Unix()
	query := "(is:important OR is:starred OR is:unread) after:" + strconv.FormatInt(since, 10)
	ids, err := b.mail.Search(ctx, query, classify.MaxInboxBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to search inbox: %w", err)
	}

	msgs := hydrate(ctx, b.logger, ids, classify.MaxInboxBatch, b.mail.GetFull)
	for i := range msgs {
		msgs[i].BodyPreview = truncateRunes(msgs[i].BodyPreview, inboxPreviewLimit)
	}
	return msgs, nil
}
