package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/apperrors"
)

func callerUID(c *gin.Context) string {
	uidVal, _ := c.Get("uid")
	if s, ok := uidVal.(string); ok {
		return s
	}
	return ""
}

func requestContextFields(c *gin.Context) []interface{} {
	return []interface{}{
		"request_id", c.GetString("request_id"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"user_uid", callerUID(c),
	}
}

func logWithContext(logger *zap.SugaredLogger, c *gin.Context, level string, msg string, fields ...interface{}) {
	all := append(requestContextFields(c), fields...)
	switch level {
	case "debug":
		logger.Debugw(msg, all...)
	case "warn":
		logger.Warnw(msg, all...)
	case "error":
		logger.Errorw(msg, all...)
	default:
		logger.Infow(msg, all...)
	}
}

// respondError logs err and writes the single user-facing message for it. Client
// mistakes log at warn, everything else at error.
func respondError(logger *zap.SugaredLogger, c *gin.Context, err error, msg string, fields ...interface{}) {
	status := apperrors.HTTPStatus(err)
	level := "error"
	if status < 500 {
		level = "warn"
	}
	logWithContext(logger, c, level, msg, append(fields, "status", status, "error", err)...)

	body := gin.H{"error": apperrors.UserMessage(err)}
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	c.JSON(status, body)
}

func (h *EntryHandler) logError(c *gin.Context, err error, msg string, fields ...interface{}) {
	respondError(h.logger, c, err, msg, fields...)
}

func (h *NotificationsHandler) logError(c *gin.Context, err error, msg string, fields ...interface{}) {
	respondError(h.logger, c, err, msg, fields...)
}
