package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/cache"
	"shreelaxmi/site/internal/ids"
	"shreelaxmi/site/internal/middleware"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/security"
	"shreelaxmi/site/internal/service"
)

type userResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Role  string  `json:"role"`
	Image *string `json:"image,omitempty"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func newUserResponse(identity models.Identity) userResponse {
	return userResponse{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
		Role:  string(identity.Role),
		Image: identity.AvatarURL,
	}
}

func claimsUser(claims security.SessionClaims) userResponse {
	return userResponse{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  string(claims.Role),
	}
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req service.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	identity, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    newUserResponse(identity),
	})
}

func (h HandlerSet) SignIn(c *gin.Context) {
	var req service.CredentialsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendSession(c, session)
}

func (h HandlerSet) SignOut(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.session)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) CurrentSession(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      claimsUser(*claims),
		"expiresAt": expiresAt,
	})
}

func (h HandlerSet) RefreshSession(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	session, err := h.auth.Refresh(c.Request.Context(), *claims)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			middleware.ClearSessionCookie(c, h.session)
		}
		h.respondError(c, err)
		return
	}

	h.sendSession(c, session)
}

// GoogleRedirect starts the authorization-code flow.
func (h HandlerSet) GoogleRedirect(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider_unavailable"})
		return
	}

	state := ids.New()
	callback := safeCallback(c.Query("callbackUrl"), h.cfg.Auth.PostLoginRedirect)
	if err := h.states.Save(c.Request.Context(), state, callback); err != nil {
		h.log.Error().Err(err).Msg("save oauth state failed")
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": string(service.KindInfrastructure)})
		return
	}

	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback finishes the authorization-code flow. Failures go back to
// the sign-in page with an error code rather than a JSON body, since a
// browser is on the other end.
func (h HandlerSet) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider_unavailable"})
		return
	}

	if c.Query("error") != "" {
		h.signInFailed(c, "AccessDenied")
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		h.signInFailed(c, "OAuthCallback")
		return
	}

	callback, err := h.states.Consume(c.Request.Context(), state)
	if err != nil {
		if !errors.Is(err, cache.ErrStateNotFound) {
			h.log.Error().Err(err).Msg("consume oauth state failed")
		}
		h.signInFailed(c, "OAuthCallback")
		return
	}

	assertion, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn().Err(err).Msg("google code exchange failed")
		h.signInFailed(c, "OAuthCallback")
		return
	}

	session, err := h.auth.SignInWithProvider(c.Request.Context(), assertion)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAccountLinkRequired):
		h.signInFailed(c, "OAuthAccountNotLinked")
		return
	default:
		if service.KindOf(err) == service.KindInfrastructure {
			h.log.Error().Err(err).Msg("provider sign-in failed")
		}
		h.signInFailed(c, "OAuthCallback")
		return
	}

	middleware.SetSessionCookie(c, h.session, session.Token, session.ExpiresAt)
	c.Redirect(http.StatusFound, safeCallback(callback, h.cfg.Auth.PostLoginRedirect))
}

type idTokenRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// GoogleIDToken signs in with an ID token obtained by a client-side Google
// sign-in button.
func (h HandlerSet) GoogleIDToken(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider_unavailable"})
		return
	}

	var req idTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	assertion, err := h.google.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		h.respondError(c, service.ErrInvalidCredentials)
		return
	}

	session, err := h.auth.SignInWithProvider(c.Request.Context(), assertion)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendSession(c, session)
}

func (h HandlerSet) sendSession(c *gin.Context, session service.Session) {
	middleware.SetSessionCookie(c, h.session, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      newUserResponse(session.Identity),
	})
}

func (h HandlerSet) signInFailed(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.cfg.Auth.SignInPath+"?error="+url.QueryEscape(code))
}

// safeCallback only lets through same-site paths.
func safeCallback(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return raw
}
