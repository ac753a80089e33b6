package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service   *Service
	demoLogin bool
	logger    *zap.Logger
}

func NewHandler(s *Service, demoLogin bool, logger *zap.Logger) *Handler {
	return &Handler{service: s, demoLogin: demoLogin, logger: logger}
}

type demoTokenRequest struct {
	UserID string `json:"user_id"`
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

// DemoToken issues a token without credentials; only routed when demo login is enabled
func (h *Handler) DemoToken(c *gin.Context) {
	var req demoTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.New().String()
	}

	token, expiresAt, err := h.service.IssueToken(req.UserID)
	if err != nil {
		h.logger.Error("Failed to issue demo token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
		"user_id":      req.UserID,
	})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
}
