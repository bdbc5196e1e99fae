package caldav

import (
	"context"

	"golang.org/x/oauth2"

	"meetprep/internal/gateway"
)

// TokenGateway connects users through base but reads calendars from a
// shared CalDAV calendar instead of Google Calendar.
type TokenGateway struct {
	gateway.TokenGateway
	Calendar gateway.CalendarGateway
}

// WithCalendar wraps base so every connection uses cal for calendar reads.
func WithCalendar(base gateway.TokenGateway, cal gateway.CalendarGateway) *TokenGateway {
	return &TokenGateway{TokenGateway: base, Calendar: cal}
}

func (g *TokenGateway) Connect(ctx context.Context, tok *oauth2.Token) (gateway.Services, error) {
	svc, err := g.TokenGateway.Connect(ctx, tok)
	if err != nil {
		return gateway.Services{}, err
	}
	svc.Calendar = g.Calendar
	return svc, nil
}
