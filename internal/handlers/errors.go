package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/service"
)

var statusByKind = map[service.Kind]int{
	service.KindInvalidCredentials: http.StatusUnauthorized,
	service.KindUnauthorized:       http.StatusUnauthorized,
	service.KindForbidden:          http.StatusForbidden,
	service.KindTokenExpired:       http.StatusUnauthorized,
	service.KindTokenMalformed:     http.StatusUnauthorized,
	service.KindConflict:           http.StatusConflict,
	service.KindValidation:         http.StatusBadRequest,
	service.KindNotFound:           http.StatusNotFound,
	service.KindInfrastructure:     http.StatusServiceUnavailable,
}

// respondError renders err by kind. Only validation, conflict and not-found
// messages reach the client; everything else gets its kind alone.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var de *service.DomainError
	if !errors.As(err, &de) {
		h.log.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", c.Writer.Header().Get("X-Request-Id")).
			Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	status, ok := statusByKind[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": string(de.Kind)}
	switch de.Kind {
	case service.KindValidation:
		body["message"] = de.Message
		if len(de.Fields) > 0 {
			body["fields"] = de.Fields
		}
	case service.KindConflict, service.KindNotFound:
		body["message"] = de.Message
	case service.KindInfrastructure:
		h.log.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", c.Writer.Header().Get("X-Request-Id")).
			Msg("dependency failure")
		c.Header("Retry-After", "1")
	}

	c.JSON(status, body)
}

func badRequestBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(service.KindValidation),
		"message": "request body is not valid JSON",
	})
}
