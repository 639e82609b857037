package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcal/internal/models"
)

func writeClientSecret(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client_secret.json")
	payload := `{"web":{"client_id":"test-client","client_secret":"test-secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost:8080/oauth2callback"]}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func newTestManager(t *testing.T) (*Manager, *gin.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr, err := NewManager(writeClientSecret(t), "http://localhost:8080/oauth2callback", logger)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(sessions.Sessions("taskcal_session", cookie.NewStore([]byte("test-secret"))))
	return mgr, engine
}

func TestNewManagerMissingSecretFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.json"), "http://localhost:8080/oauth2callback", logger)
	assert.Error(t, err)
}

func TestAuthURLRecordsFreshState(t *testing.T) {
	mgr, engine := newTestManager(t)

	engine.GET("/authorize", func(c *gin.Context) {
		authURL, err := mgr.AuthURL(c)
		require.NoError(t, err)
		c.String(http.StatusOK, authURL)
	})

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/authorize", nil))
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/authorize", nil))

	parsed, err := url.Parse(first.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)
	assert.NotEmpty(t, parsed.Query().Get("state"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Equal(t, "true", parsed.Query().Get("include_granted_scopes"))
	assert.Contains(t, parsed.Query().Get("scope"), "auth/calendar")

	secondParsed, err := url.Parse(second.Body.String())
	require.NoError(t, err)
	assert.NotEqual(t, parsed.Query().Get("state"), secondParsed.Query().Get("state"))

	assert.NotEmpty(t, first.Result().Cookies())
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	mgr, engine := newTestManager(t)

	var got error
	engine.GET("/oauth2callback", func(c *gin.Context) {
		got = mgr.HandleCallback(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=bogus&code=x", nil))

	assert.ErrorIs(t, got, ErrStateMismatch)
}

func TestCredentialsLifecycle(t *testing.T) {
	mgr, engine := newTestManager(t)

	engine.POST("/save", func(c *gin.Context) {
		var creds models.Credentials
		require.NoError(t, c.ShouldBindJSON(&creds))
		require.NoError(t, SaveCredentials(c, creds))
		c.Status(http.StatusNoContent)
	})

	var readErr error
	var read models.Credentials
	engine.GET("/read", func(c *gin.Context) {
		read, readErr = mgr.Credentials(c)
		c.Status(http.StatusOK)
	})

	save := func(body string) []*http.Cookie {
		req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		return rec.Result().Cookies()
	}

	readWith := func(cookies []*http.Cookie) {
		req := httptest.NewRequest(http.MethodGet, "/read", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
	}

	// No session at all.
	readWith(nil)
	assert.ErrorIs(t, readErr, ErrNoCredentials)

	// Valid credentials round-trip.
	expiry := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	cookies := save(`{"AccessToken":"tok","TokenType":"Bearer","Expiry":"` + expiry + `"}`)
	readWith(cookies)
	require.NoError(t, readErr)
	assert.Equal(t, "tok", read.AccessToken)

	// Expired without refresh token drops back to unauthenticated.
	stale := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	cookies = save(`{"AccessToken":"tok","TokenType":"Bearer","Expiry":"` + stale + `"}`)
	readWith(cookies)
	assert.ErrorIs(t, readErr, ErrNoCredentials)

	// Expired with refresh token stays usable; the token source refreshes.
	cookies = save(`{"AccessToken":"tok","RefreshToken":"ref","TokenType":"Bearer","Expiry":"` + stale + `"}`)
	readWith(cookies)
	assert.NoError(t, readErr)
}
