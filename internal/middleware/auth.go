package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/security"
	"shreelaxmi/site/internal/service"
)

const (
	claimsKey        = "session_claims"
	sessionErrKey    = "session_error"
	refreshedHeader  = "X-Session-Token"
	refreshedExpires = "X-Session-Expires"
)

// Authenticator is the part of the auth service the session middleware uses.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (security.SessionClaims, error)
	Refresh(ctx context.Context, claims security.SessionClaims) (service.Session, error)
}

type SessionOptions struct {
	CookieName    string
	CookieDomain  string
	CookieSecure  bool
	RefreshWindow time.Duration
}

// Session resolves the caller's session from the Authorization header or the
// session cookie and stores its claims on the context. It never rejects a
// request; RequireSession and RequireRole do that.
//
// A token inside its final RefreshWindow is re-issued from the identity
// store, so role changes reach the client without waiting out the old token.
// Before that window the role in the token is trusted as issued: a demoted
// admin keeps admin access for up to SessionTTL minus RefreshWindow, 30
// minutes with the defaults.
func Session(auth Authenticator, opts SessionOptions, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := extractToken(c, opts.CookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Set(sessionErrKey, err)
			if fromCookie {
				ClearSessionCookie(c, opts)
			}
			c.Next()
			return
		}

		if opts.RefreshWindow > 0 && claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < opts.RefreshWindow {
			claims = refresh(c, auth, opts, claims, log)
			if claims.UserID == "" {
				c.Next()
				return
			}
		}

		c.Set(claimsKey, &claims)
		c.Next()
	}
}

func refresh(c *gin.Context, auth Authenticator, opts SessionOptions, claims security.SessionClaims, log zerolog.Logger) security.SessionClaims {
	session, err := auth.Refresh(c.Request.Context(), claims)
	if err == nil {
		SetSessionCookie(c, opts, session.Token, session.ExpiresAt)
		c.Header(refreshedHeader, session.Token)
		c.Header(refreshedExpires, session.ExpiresAt.UTC().Format(time.RFC3339))
		return session.Claims
	}

	if errors.Is(err, service.ErrUnauthorized) {
		// The identity behind the token no longer exists.
		c.Set(sessionErrKey, err)
		ClearSessionCookie(c, opts)
		return security.SessionClaims{}
	}

	log.Warn().Err(err).Str("user_id", claims.UserID).Msg("session refresh failed; keeping current token")
	return claims
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token), false
		}
		return "", false
	}
	if cookieName == "" {
		return "", false
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// ClaimsFrom returns the session claims Session stored on the context.
func ClaimsFrom(c *gin.Context) (*security.SessionClaims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*security.SessionClaims)
	return claims, ok && claims != nil
}

// SessionError reports why a presented token was not accepted, if one was.
func SessionError(c *gin.Context) error {
	value, ok := c.Get(sessionErrKey)
	if !ok {
		return nil
	}
	err, _ := value.(error)
	return err
}

func SetSessionCookie(c *gin.Context, opts SessionOptions, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     opts.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   opts.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		Secure:   opts.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c *gin.Context, opts SessionOptions) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     opts.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   opts.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
