package onboarding

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/auth"
	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

// Handler handles HTTP requests for the onboarding screens
type Handler struct {
	sessions     *SessionStore
	brands       BrandStore
	accountEmail string
	logger       *zap.Logger
}

// NewHandler creates a new onboarding handler. accountEmail is recorded as the
// linked account when the simulated connection succeeds.
func NewHandler(sessions *SessionStore, brands BrandStore, accountEmail string, logger *zap.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		brands:       brands,
		accountEmail: accountEmail,
		logger:       logger,
	}
}

type connectionView struct {
	State     ConnectionState `json:"state"`
	Connected bool            `json:"connected"`
}

type formView struct {
	FormState
	BrandTones []settings.BrandTone `json:"brand_tones"`
}

type sessionResponse struct {
	SessionID  string                `json:"session_id"`
	Connection connectionView        `json:"connection"`
	Form       formView              `json:"form"`
	Outcome    SubmitResult          `json:"outcome,omitempty"`
	Toasts     []notifications.Toast `json:"toasts"`
	NavigateTo string                `json:"navigate_to,omitempty"`
}

type updateFormRequest struct {
	CompanyName *string             `json:"company_name"`
	BrandTone   *settings.BrandTone `json:"brand_tone"`
}

// RegisterRoutes registers onboarding routes; the group must already require auth
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/onboarding/sessions")
	{
		group.POST("", h.mount)
		group.DELETE("/:id", h.unmount)

		group.GET("/:id/connection", h.render)
		group.POST("/:id/connection/connect", h.connect)
		group.POST("/:id/connection/continue", h.continueToForm)

		group.GET("/:id/form", h.render)
		group.PATCH("/:id/form", h.updateForm)
		group.POST("/:id/form/submit", h.submit)
	}
}

// mount handles POST /api/v1/onboarding/sessions
func (h *Handler) mount(c *gin.Context) {
	s := h.sessions.Mount(auth.UserID(c))
	h.logger.Debug("Onboarding session mounted", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	c.JSON(http.StatusCreated, h.view(s, "", nil))
}

// unmount handles DELETE /api/v1/onboarding/sessions/:id
func (h *Handler) unmount(c *gin.Context) {
	if err := h.sessions.Unmount(c.Param("id"), auth.UserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// render handles GET /api/v1/onboarding/sessions/:id/{connection,form}
func (h *Handler) render(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(s, "", nil))
}

// connect handles POST /api/v1/onboarding/sessions/:id/connection/connect
func (h *Handler) connect(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	ctx, effects := WithEffects(c.Request.Context())
	if s.Connection.Connect() {
		// Recording the link is best-effort; the simulated connect cannot fail.
		if _, err := h.brands.SetConnectionStatus(ctx, s.UserID, true, h.accountEmail); err != nil {
			h.logger.Warn("Failed to record connection status", zap.Error(err), zap.String("user_id", s.UserID))
		}
		s.Notify(ctx, notifications.SeveritySuccess, notifications.MessageCRMConnected)
	}

	c.JSON(http.StatusOK, h.view(s, "", effects))
}

// continueToForm handles POST /api/v1/onboarding/sessions/:id/connection/continue
func (h *Handler) continueToForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	ctx, effects := WithEffects(c.Request.Context())
	s.Connection.Continue(ctx)
	c.JSON(http.StatusOK, h.view(s, "", effects))
}

// updateForm handles PATCH /api/v1/onboarding/sessions/:id/form
func (h *Handler) updateForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req updateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The tone goes first so a rejected request changes nothing.
	if req.BrandTone != nil {
		if err := s.Form.SetBrandTone(*req.BrandTone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.CompanyName != nil {
		s.Form.SetCompanyName(*req.CompanyName)
	}

	c.JSON(http.StatusOK, h.view(s, "", nil))
}

// submit handles POST /api/v1/onboarding/sessions/:id/form/submit
func (h *Handler) submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	// A save in flight is not aborted by the client going away.
	ctx, effects := WithEffects(context.WithoutCancel(c.Request.Context()))
	result := s.Form.Submit(ctx)

	status := http.StatusOK
	switch result {
	case SubmitRejected:
		status = http.StatusConflict
	case SubmitFailed:
		h.logger.Warn("Onboarding settings save failed", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	}

	c.JSON(status, h.view(s, result, effects))
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, err := h.sessions.Get(c.Param("id"), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

// view renders the session. Toasts and navigate_to come only from effects, so
// plain renders never report what another request triggered.
func (h *Handler) view(s *Session, outcome SubmitResult, effects *Effects) sessionResponse {
	toasts, navigateTo := []notifications.Toast{}, ""
	if effects != nil {
		toasts, navigateTo = effects.Toasts(), effects.NavigateTo()
	}
	state := s.Connection.State()
	return sessionResponse{
		SessionID: s.ID,
		Connection: connectionView{
			State:     state,
			Connected: state == Connected,
		},
		Form: formView{
			FormState:  s.Form.Snapshot(),
			BrandTones: settings.BrandTones,
		},
		Outcome:    outcome,
		Toasts:     toasts,
		NavigateTo: navigateTo,
	}
}
