// Package auth manages the Google OAuth consent flow and the credentials
// kept in server-side session state.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"taskcal/internal/models"
)

var (
	// ErrNoCredentials means the session holds no usable credentials; the
	// caller should redirect to the authorize flow.
	ErrNoCredentials = errors.New("no calendar credentials in session")

	// ErrStateMismatch means the callback's anti-forgery state token did not
	// match the one recorded at authorize time.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

const (
	stateKey       = "oauth_state"
	credentialsKey = "credentials"
)

func init() {
	gob.Register(models.Credentials{})
}

// Manager drives the two-step consent redirect and credential storage.
type Manager struct {
	config *oauth2.Config
	logger *slog.Logger
}

// NewManager loads the Google client secret file and prepares the OAuth
// config with calendar read/write scope.
func NewManager(clientSecretFile, redirectURL string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(clientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	cfg.RedirectURL = redirectURL

	return &Manager{config: cfg, logger: logger}, nil
}

// AuthURL records a fresh anti-forgery state token in the session and returns
// the provider consent URL to redirect the user-agent to.
func (m *Manager) AuthURL(c *gin.Context) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}

	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	if err := sess.Save(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return m.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// HandleCallback verifies the state token, exchanges the authorization code
// and stores the resulting credentials in the session.
func (m *Manager) HandleCallback(c *gin.Context) error {
	sess := sessions.Default(c)
	saved, _ := sess.Get(stateKey).(string)
	if saved == "" || saved != c.Query("state") {
		return ErrStateMismatch
	}
	sess.Delete(stateKey)

	token, err := m.config.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	return SaveCredentials(c, m.credentialsFromToken(token))
}

// SaveCredentials stores typed credentials in the session.
func SaveCredentials(c *gin.Context, creds models.Credentials) error {
	sess := sessions.Default(c)
	sess.Set(credentialsKey, creds)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Credentials returns the session credentials after a validity check. Expired
// tokens without a refresh token are dropped from the session so the state
// machine falls back to unauthenticated.
func (m *Manager) Credentials(c *gin.Context) (models.Credentials, error) {
	sess := sessions.Default(c)
	creds, ok := sess.Get(credentialsKey).(models.Credentials)
	if !ok {
		return models.Credentials{}, ErrNoCredentials
	}

	if !tokenFromCredentials(creds).Valid() && creds.RefreshToken == "" {
		m.logger.Info("dropping expired session credentials")
		ClearCredentials(c)
		return models.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

// ClearCredentials removes credentials from the session.
func ClearCredentials(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Delete(credentialsKey)
	_ = sess.Save()
}

// TokenSource yields a refreshing token source for calendar API calls.
func (m *Manager) TokenSource(c *gin.Context, creds models.Credentials) oauth2.TokenSource {
	return m.config.TokenSource(c.Request.Context(), tokenFromCredentials(creds))
}

func (m *Manager) credentialsFromToken(t *oauth2.Token) models.Credentials {
	return models.Credentials{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
		TokenURL:     m.config.Endpoint.TokenURL,
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		Scopes:       m.config.Scopes,
	}
}

func tokenFromCredentials(creds models.Credentials) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    creds.TokenType,
		Expiry:       creds.Expiry,
	}
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
