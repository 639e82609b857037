package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskcal/internal/auth"
)

// handleAuthorize begins the OAuth consent flow: records the anti-forgery
// state token and redirects the user-agent to the provider.
func (s *Server) handleAuthorize(c *gin.Context) {
	url, err := s.auth.AuthURL(c)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// handleOAuthCallback completes the flow: verifies the state token, exchanges
// the code and stores the credentials in the session.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	err := s.auth.HandleCallback(c)
	if errors.Is(err, auth.ErrStateMismatch) {
		s.respondError(c, http.StatusForbidden, err)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
