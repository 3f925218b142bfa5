package handlers

import (
	"errors"
	"net/http"

	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/controlapi"
	"gameserver_panel/internal/service"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps service errors to HTTP responses and logs the unexpected ones.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error) {
	var (
		ae *auth.AuthError
		te *controlapi.TransportError
	)
	switch {
	case errors.As(err, &ae):
		c.JSON(http.StatusUnauthorized, gin.H{"error": ae.Message})
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	case errors.Is(err, service.ErrUnknownProvider), errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &te):
		h.logError(logKey, err, "status_code", te.StatusCode)
		resp := gin.H{"error": "control API request failed"}
		if te.StatusCode != 0 {
			resp["status_code"] = te.StatusCode
		}
		c.JSON(http.StatusBadGateway, resp)
	default:
		h.logError(logKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) logError(key string, err error, kv ...interface{}) {
	if h.log == nil {
		return
	}
	fields := append([]interface{}{"err", err}, kv...)
	h.log.Errorw(key, fields...)
}
