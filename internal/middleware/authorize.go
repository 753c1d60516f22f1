package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/security"
	"shreelaxmi/site/internal/service"
)

// RequireSession rejects requests without a valid session.
func RequireSession() gin.HandlerFunc {
	return RequireRole(models.RoleUser)
}

// RequireRole is the endpoint-layer access gate: 401 without a session, 403
// when the session's role is insufficient. It runs before any handler that
// writes.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthenticatedReason(c)})
			return
		}

		if !security.Authorize(claims, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// RedirectUnlessRole guards admin views: anyone without the role is sent to
// the sign-in page with a callback to where they were going, and learns
// nothing about the view itself.
func RedirectUnlessRole(role models.Role, signInPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		if security.Authorize(claims, role) {
			c.Next()
			return
		}

		target := signInPath + "?callbackUrl=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

func unauthenticatedReason(c *gin.Context) string {
	err := SessionError(c)
	switch {
	case err == nil:
		return "unauthorized"
	case errors.Is(err, service.ErrTokenExpired):
		return string(service.KindTokenExpired)
	case errors.Is(err, service.ErrTokenMalformed):
		return string(service.KindTokenMalformed)
	default:
		return "unauthorized"
	}
}
