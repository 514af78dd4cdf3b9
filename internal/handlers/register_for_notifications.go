package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/apperrors"
	notificationsmodels "io.winapps.meicho/internal/models/notifications"
)

// TokenRegistrar stores device push tokens. *notifications.Registry satisfies it.
type TokenRegistrar interface {
	Register(ctx context.Context, userID string, req notificationsmodels.RegisterRequest) (string, error)
}

type NotificationsHandler struct {
	registry TokenRegistrar
	logger   *zap.SugaredLogger
}

func NewNotificationsHandler(registry TokenRegistrar, logger *zap.SugaredLogger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &NotificationsHandler{registry: registry, logger: logger}
}

// RegisterPushToken handles registering user push tokens
func (ns *NotificationsHandler) RegisterPushToken(c *gin.Context) {
	var req notificationsmodels.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ns.logError(c, apperrors.NewValidationError("token", "Token and platform are required"), "invalid push token request", "bind_error", err)
		return
	}

	id, err := ns.registry.Register(c.Request.Context(), callerUID(c), req)
	if err != nil {
		ns.logError(c, err, "failed to save push token", "platform", req.Platform)
		return
	}

	c.JSON(http.StatusOK, notificationsmodels.RegisterResponse{ID: id, Message: "Token registered successfully"})
}
