package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/avirta/ytarchiver/internal/tokenfile"
)

// OAuth scopes: read access for listing, full access for entry deletion.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube",
}

// Google OAuth2 endpoints. Spelled out here instead of importing the
// golang.org/x/oauth2/google subpackage, which drags in cloud SDK metadata
// dependencies this tool has no use for.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// oobRedirect is the out-of-band redirect for installed applications: the
// user copies the authorization code from the browser and pastes it back.
const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

// OAuthConfig builds the oauth2 configuration for an installed-app flow.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleEndpoint,
		RedirectURL:  oobRedirect,
		Scopes:       defaultScopes,
	}
}

// Login performs the manual authorization-code flow:
//  1. Builds the consent URL and hands it to display
//  2. Blocks on prompt for the pasted authorization code
//  3. Exchanges the code for a token and saves it to tokenPath
//
// display shows the URL to the user; prompt reads the code back. Both are
// injected so tests never touch a terminal.
func Login(
	ctx context.Context,
	cfg *oauth2.Config,
	tokenPath string,
	display func(authURL string),
	prompt func() (string, error),
	logger *slog.Logger,
) error {
	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	logger.Info("starting authorization flow", slog.String("token_path", tokenPath))
	display(authURL)

	code, err := prompt()
	if err != nil {
		return fmt.Errorf("youtube: reading authorization code: %w", err)
	}

	if code == "" {
		return fmt.Errorf("youtube: empty authorization code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("youtube: exchanging authorization code: %w", err)
	}

	if err := tokenfile.Save(tokenPath, tok); err != nil {
		return fmt.Errorf("youtube: saving token: %w", err)
	}

	logger.Info("login successful", slog.Time("expiry", tok.Expiry))

	return nil
}

// TokenSourceFromFile loads the saved token and returns an auto-refreshing
// token source that persists refreshed tokens back to tokenPath. Returns an
// error if no token is on disk — the caller should direct the user to login.
func TokenSourceFromFile(ctx context.Context, cfg *oauth2.Config, tokenPath string, logger *slog.Logger) (oauth2.TokenSource, error) {
	tok, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, fmt.Errorf("youtube: no token at %s (run login first)", tokenPath)
	}

	return &persistingTokenSource{
		src:    cfg.TokenSource(ctx, tok),
		path:   tokenPath,
		last:   tok.AccessToken,
		logger: logger,
	}, nil
}

// persistingTokenSource wraps an oauth2.TokenSource and writes the token file
// whenever the access token changes, so a refresh during a long cycle
// survives the process.
type persistingTokenSource struct {
	src    oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube: refreshing token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		if saveErr := tokenfile.Save(p.path, tok); saveErr != nil {
			// A failed save is not fatal: the in-memory token still works
			// for this run. The next run will refresh again.
			p.logger.Warn("could not persist refreshed token", slog.String("error", saveErr.Error()))
		} else {
			p.logger.Debug("persisted refreshed token", slog.Time("expiry", tok.Expiry))
		}

		p.last = tok.AccessToken
	}

	return tok, nil
}
