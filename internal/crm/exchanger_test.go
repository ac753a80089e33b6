package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExchanger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3600,
			"account_email": "owner@acme.test",
		})
	}))
	defer srv.Close()

	exchanger := NewHTTPExchanger(srv.Client(), srv.URL, "client-1", "secret", "https://app.example.com/cb")

	token, err := exchanger.Exchange(context.Background(), "good", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", token.AccountEmail)

	_, err = exchanger.Exchange(context.Background(), "bad", "verifier")
	assert.Error(t, err)
}

func TestHTTPExchangerRequiresAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account_email":"owner@acme.test"}`))
	}))
	defer srv.Close()

	exchanger := NewHTTPExchanger(srv.Client(), srv.URL, "client-1", "secret", "https://app.example.com/cb")

	_, err := exchanger.Exchange(context.Background(), "good", "verifier")
	assert.EqualError(t, err, "missing access token")
}
