package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"meetprep/internal/gateway"
)

const revokeURL = "https://oauth2.googleapis.com/revoke"

// Scopes requested during the consent flow.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	drive.DriveReadonlyScope,
	tasks.TasksReadonlyScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// OAuth exchanges and refreshes Google tokens and builds per-user gateways.
type OAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuth builds the OAuth client. Explicit credentials take priority over
// credentialsFile, the JSON downloaded from the Google console.
func NewOAuth(logger *slog.Logger, clientID, clientSecret, redirectURL, credentialsFile string) (*OAuth, error) {
	config, err := getOAuthConfig(clientID, clientSecret, credentialsFile)
	if err != nil {
		return nil, err
	}
	if redirectURL != "" {
		config.RedirectURL = redirectURL
	}
	return &OAuth{config: config, httpClient: http.DefaultClient, logger: logger}, nil
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes explicit client credentials over a local credentials file.
func getOAuthConfig(clientID, clientSecret, credentialsFile string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}
	if credentialsFile == "" {
		return nil, errors.New("google client id/secret not configured and no credentials file given")
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("%s not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or a credentials file", credentialsFile)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	if config.RedirectURL == "" {
		config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	}
	return config, nil
}

// AuthCodeURL returns the consent page URL. Offline access and forced consent
// make Google return a refresh token every time.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh obtains a new access token. Google does not always rotate the
// refresh token, so the input one is carried over when absent.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	tok, err := o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// Revoke invalidates an access or refresh token.
func (o *OAuth) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to revoke token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// UserInfo returns the email address and display name of the token owner.
func (o *OAuth) UserInfo(ctx context.Context, tok *oauth2.Token) (email, name string, err error) {
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(o.config.Client(ctx, tok)))
	if err != nil {
		return "", "", fmt.Errorf("failed to create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	return info.Email, info.Name, nil
}

// HTTPClient returns an authenticated client for tok.
func (o *OAuth) HTTPClient(ctx context.Context, tok *oauth2.Token) *http.Client {
	return o.config.Client(ctx, tok)
}

// staticClient sends tok as is. Refreshing belongs to the caller, which
// persists the new token; a silent refresh here would be lost.
func (o *OAuth) staticClient(ctx context.Context, tok *oauth2.Token) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
}

// Connect builds the Calendar, Gmail, Drive and Tasks gateways for tok.
func (o *OAuth) Connect(ctx context.Context, tok *oauth2.Token) (gateway.Services, error) {
	opt := option.WithHTTPClient(o.staticClient(ctx, tok))

	cal, err := NewCalendarClient(ctx, o.logger, opt)
	if err != nil {
		return gateway.Services{}, err
	}
	mail, err := NewGmailClient(ctx, o.logger, opt)
	if err != nil {
		return gateway.Services{}, err
	}
	docs, err := NewDriveClient(ctx, o.logger, opt)
	if err != nil {
		return gateway.Services{}, err
	}
	todo, err := NewTasksClient(ctx, o.logger, opt)
	if err != nil {
		return gateway.Services{}, err
	}

	return gateway.Services{Calendar: cal, Mail: mail, Documents: docs, Tasks: todo}, nil
}
