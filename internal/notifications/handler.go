package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/auth"
)

// Upgrader attaches a WebSocket connection for the authenticated user
type Upgrader interface {
	Attach(w http.ResponseWriter, r *http.Request, userID string) error
}

type Handler struct {
	service  *Service
	upgrader Upgrader
	logger   *zap.Logger
}

func NewHandler(service *Service, upgrader Upgrader, logger *zap.Logger) *Handler {
	return &Handler{service: service, upgrader: upgrader, logger: logger}
}

// RegisterRoutes registers notification routes; the group must already require auth
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/notifications")
	{
		group.GET("", h.ListNotifications)
		group.GET("/ws", h.Stream)
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	userID := auth.UserID(c)

	sent, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": sent})
}

// Stream handles GET /api/v1/notifications/ws
func (h *Handler) Stream(c *gin.Context) {
	userID := auth.UserID(c)
	if err := h.upgrader.Attach(c.Writer, c.Request, userID); err != nil {
		// The upgrader already wrote the HTTP error response.
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("user_id", userID))
	}
}
