package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(svc *Service, demo bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), NewHandler(svc, demo, zap.NewNop()))
	return r
}

func TestRequireAuth(t *testing.T) {
	svc := NewService("secret", "crm-copy", time.Hour)
	r := newTestRouter(svc, false)

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		token, _, err := svc.IssueToken("user-7")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "user-7", body["user_id"])
	})

	t.Run("query parameter", func(t *testing.T) {
		token, _, err := svc.IssueToken("user-8")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me?access_token="+token, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDemoTokenRoute(t *testing.T) {
	svc := NewService("secret", "crm-copy", time.Hour)

	w := httptest.NewRecorder()
	newTestRouter(svc, false).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/demo-token", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	newTestRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/demo-token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	userID, err := svc.ParseToken(body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, body["user_id"], userID)
}
