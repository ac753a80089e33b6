package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/auth"
	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPIClient(t *testing.T, brands BrandStore) *apiClient {
	t.Helper()
	return newAPIClientWithSink(t, brands, nil)
}

func newAPIClientWithSink(t *testing.T, brands BrandStore, sink ToastSink) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService := auth.NewService("secret", "crm-copy", time.Hour)
	token, _, err := authService.IssueToken("user-1")
	require.NoError(t, err)

	store := NewSessionStore(DefaultConfig(), time.Minute, brands, sink)
	r := gin.New()
	api := r.Group("/api/v1", auth.RequireAuth(authService))
	NewHandler(store, brands, "company@example.com", zap.NewNop()).RegisterRoutes(api)

	return &apiClient{t: t, router: r, token: token}
}

func (c *apiClient) do(method, path, body string) (int, sessionResponse) {
	c.t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var resp sessionResponse
	if w.Code < 300 && w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func (c *apiClient) mount() string {
	code, resp := c.do(http.MethodPost, "/api/v1/onboarding/sessions", "")
	require.Equal(c.t, http.StatusCreated, code)
	return resp.SessionID
}

func TestConnectionFlow(t *testing.T) {
	brands := new(MockBrandStore)
	brands.On("SetConnectionStatus", mock.Anything, "user-1", true, "company@example.com").
		Return(&settings.ConnectionStatus{UserID: "user-1", Connected: true}, nil).Once()
	api := newAPIClient(t, brands)
	id := api.mount()
	base := "/api/v1/onboarding/sessions/" + id

	code, resp := api.do(http.MethodGet, base+"/connection", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Disconnected, resp.Connection.State)

	code, resp = api.do(http.MethodPost, base+"/connection/connect", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Connection.Connected)
	assert.Equal(t, []notifications.Toast{{Severity: notifications.SeveritySuccess, Message: notifications.MessageCRMConnected}}, resp.Toasts)

	code, resp = api.do(http.MethodPost, base+"/connection/connect", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Toasts)

	code, resp = api.do(http.MethodPost, base+"/connection/continue", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/onboarding", resp.NavigateTo)
	assert.Equal(t, Connected, resp.Connection.State)
	brands.AssertExpectations(t)
}

func TestConnectSurvivesStatusStoreFailure(t *testing.T) {
	brands := new(MockBrandStore)
	brands.On("SetConnectionStatus", mock.Anything, "user-1", true, mock.Anything).Return(nil, errors.New("db down"))
	api := newAPIClient(t, brands)
	id := api.mount()

	code, resp := api.do(http.MethodPost, "/api/v1/onboarding/sessions/"+id+"/connection/connect", "")

	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Connection.Connected)
}

func TestFormFlowSuccess(t *testing.T) {
	brands := new(MockBrandStore)
	brands.On("SaveBrand", mock.Anything, "user-1", "Acme Co", settings.BrandToneFriendly).Return(nil).Once()
	api := newAPIClient(t, brands)
	id := api.mount()
	base := "/api/v1/onboarding/sessions/" + id

	code, resp := api.do(http.MethodPatch, base+"/form", `{"company_name":"  Acme Co  ","brand_tone":"friendly"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "  Acme Co  ", resp.Form.CompanyName)
	assert.Equal(t, settings.BrandToneFriendly, resp.Form.BrandTone)
	assert.Len(t, resp.Form.BrandTones, 3)

	code, resp = api.do(http.MethodPost, base+"/form/submit", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, SubmitSaved, resp.Outcome)
	assert.Equal(t, "/dashboard", resp.NavigateTo)
	assert.False(t, resp.Form.IsSaving)
	assert.Equal(t, []notifications.Toast{{Severity: notifications.SeveritySuccess, Message: notifications.MessageSettingsSaved}}, resp.Toasts)
	brands.AssertExpectations(t)
}

func TestFormFlowFailure(t *testing.T) {
	brands := new(MockBrandStore)
	brands.On("SaveBrand", mock.Anything, "user-1", "My Company", settings.BrandToneProfessional).Return(errors.New("timeout"))
	api := newAPIClient(t, brands)
	id := api.mount()

	code, resp := api.do(http.MethodPost, "/api/v1/onboarding/sessions/"+id+"/form/submit", "")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, SubmitFailed, resp.Outcome)
	assert.Empty(t, resp.NavigateTo)
	assert.Equal(t, []notifications.Toast{{Severity: notifications.SeverityError, Message: notifications.MessageGenericError}}, resp.Toasts)
}

func TestFormRejectsUnknownTone(t *testing.T) {
	api := newAPIClient(t, new(MockBrandStore))
	id := api.mount()
	base := "/api/v1/onboarding/sessions/" + id

	code, _ := api.do(http.MethodPatch, base+"/form", `{"company_name":"Acme","brand_tone":"sarcastic"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := api.do(http.MethodGet, base+"/form", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", resp.Form.CompanyName)
	assert.Equal(t, settings.BrandToneProfessional, resp.Form.BrandTone)
}

func TestUnmountDestroysSession(t *testing.T) {
	api := newAPIClient(t, new(MockBrandStore))
	id := api.mount()

	code, _ := api.do(http.MethodDelete, "/api/v1/onboarding/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(http.MethodGet, "/api/v1/onboarding/sessions/"+id+"/form", "")
	assert.Equal(t, http.StatusNotFound, code)
}

// renderingSink renders the form from inside Notify, i.e. after the save has
// settled but before the submit response is written.
type renderingSink struct {
	api      *apiClient
	path     string
	rendered []sessionResponse
}

func (r *renderingSink) Notify(_ context.Context, _ string, _ notifications.Severity, _ string) {
	code, resp := r.api.do(http.MethodGet, r.path, "")
	require.Equal(r.api.t, http.StatusOK, code)
	r.rendered = append(r.rendered, resp)
}

func TestRenderDuringSubmitDoesNotTakeItsToasts(t *testing.T) {
	brands := new(MockBrandStore)
	brands.On("SaveBrand", mock.Anything, "user-1", "My Company", settings.BrandToneProfessional).Return(nil)
	sink := &renderingSink{}
	api := newAPIClientWithSink(t, brands, sink)
	sink.api = api
	id := api.mount()
	sink.path = "/api/v1/onboarding/sessions/" + id + "/form"

	code, resp := api.do(http.MethodPost, "/api/v1/onboarding/sessions/"+id+"/form/submit", "")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, SubmitSaved, resp.Outcome)
	assert.Equal(t, "/dashboard", resp.NavigateTo)
	assert.Equal(t, []notifications.Toast{{Severity: notifications.SeveritySuccess, Message: notifications.MessageSettingsSaved}}, resp.Toasts)

	require.Len(t, sink.rendered, 1)
	assert.True(t, sink.rendered[0].Form.IsSaving)
	assert.Empty(t, sink.rendered[0].Toasts)
	assert.Empty(t, sink.rendered[0].NavigateTo)
}

func TestFormRejectsUnknownToneWithoutApplyingName(t *testing.T) {
	api := newAPIClient(t, new(MockBrandStore))
	id := api.mount()
	base := "/api/v1/onboarding/sessions/" + id

	code, _ := api.do(http.MethodPatch, base+"/form", `{"company_name":"Acme","brand_tone":"loud"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, resp := api.do(http.MethodPatch, base+"/form", `{"brand_tone":"persuasive"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, settings.BrandTonePersuasive, resp.Form.BrandTone)
	assert.Equal(t, "", resp.Form.CompanyName)
	assert.Empty(t, resp.Toasts)
}
