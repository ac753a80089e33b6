package crm

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/auth"
)

// Handler handles HTTP requests for the CRM authorization handshake
type Handler struct {
	service    *Service
	returnPath string
	logger     *zap.Logger
}

// NewHandler creates a new handler; the callback redirects the browser to returnPath
func NewHandler(service *Service, returnPath string, logger *zap.Logger) *Handler {
	return &Handler{service: service, returnPath: returnPath, logger: logger}
}

// RegisterRoutes registers the handshake routes. The callback is reached by a
// browser redirect from the provider and is identified by its state value, so
// it is registered on public rather than on the authenticated group.
func (h *Handler) RegisterRoutes(authenticated, public *gin.RouterGroup) {
	authenticated.POST("/crm/authorize", h.authorize)
	authenticated.GET("/crm/status", h.status)
	public.GET("/crm/callback", h.callback)
}

// authorize handles POST /api/v1/crm/authorize
func (h *Handler) authorize(c *gin.Context) {
	userID := auth.UserID(c)

	authorization, err := h.service.Begin(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to start CRM authorization", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start authorization"})
		return
	}

	c.JSON(http.StatusOK, authorization)
}

// status handles GET /api/v1/crm/status
func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.service.Status(auth.UserID(c))})
}

// callback handles GET /api/v1/crm/callback
func (h *Handler) callback(c *gin.Context) {
	stateValue := c.Query("state")
	if stateValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state"})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		if err := h.service.Abort(stateValue, errParam); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.redirect(c, StateFailed)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	if _, err := h.service.Complete(c.Request.Context(), stateValue, code); err != nil {
		if errors.Is(err, ErrUnknownState) || errors.Is(err, ErrStateExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrSuperseded) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.redirect(c, StateFailed)
		return
	}

	h.redirect(c, StateConnected)
}

func (h *Handler) redirect(c *gin.Context, state State) {
	target := url.URL{Path: h.returnPath}
	target.RawQuery = url.Values{"crm": {string(state)}}.Encode()
	c.Redirect(http.StatusFound, target.String())
}
