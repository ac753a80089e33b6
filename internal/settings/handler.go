package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type connectionRequest struct {
	Connected    bool   `json:"connected"`
	AccountEmail string `json:"account_email"`
}

// RegisterRoutes registers settings routes; the group must already require auth
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/settings")
	{
		group.GET("", h.GetSettings)
		group.PUT("", h.UpdateSettings)
		group.POST("/reset", h.ResetSettings)

		group.GET("/connection", h.GetConnection)
		group.PUT("/connection", h.UpdateConnection)
	}
}

// GetSettings handles GET /api/v1/settings
func (h *Handler) GetSettings(c *gin.Context) {
	userID := auth.UserID(c)

	s, err := h.service.GetSettings(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get settings", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// UpdateSettings handles PUT /api/v1/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	userID := auth.UserID(c)

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.service.SaveSettings(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrInvalidBrandTone) || errors.Is(err, ErrInvalidSettings) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to save settings", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// ResetSettings handles POST /api/v1/settings/reset
func (h *Handler) ResetSettings(c *gin.Context) {
	userID := auth.UserID(c)

	s, err := h.service.ResetSettings(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to reset settings", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// GetConnection handles GET /api/v1/settings/connection
func (h *Handler) GetConnection(c *gin.Context) {
	userID := auth.UserID(c)

	status, err := h.service.GetConnectionStatus(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get connection status", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load connection status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// UpdateConnection handles PUT /api/v1/settings/connection
func (h *Handler) UpdateConnection(c *gin.Context) {
	userID := auth.UserID(c)

	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.service.SetConnectionStatus(c.Request.Context(), userID, req.Connected, req.AccountEmail)
	if err != nil {
		h.logger.Error("Failed to update connection status", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update connection status"})
		return
	}

	c.JSON(http.StatusOK, status)
}
