package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Token is what the service keeps from a successful code exchange. The
// provider credential itself is not retained.
type Token struct {
	AccountEmail string
}

// Exchanger trades an authorization code for a token
type Exchanger interface {
	Exchange(ctx context.Context, code, codeVerifier string) (*Token, error)
}

// HTTPExchanger posts to the provider token endpoint
type HTTPExchanger struct {
	client       *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	redirectURI  string
}

// NewHTTPExchanger creates an exchanger for the configured provider
func NewHTTPExchanger(client *http.Client, tokenURL, clientID, clientSecret, redirectURI string) *HTTPExchanger {
	return &HTTPExchanger{
		client:       client,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
	}
}

func (e *HTTPExchanger) Exchange(ctx context.Context, code, codeVerifier string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", e.redirectURI)
	form.Set("client_id", e.clientID)
	form.Set("client_secret", e.clientSecret)
	form.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		AccountEmail string `json:"account_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("missing access token")
	}

	return &Token{AccountEmail: payload.AccountEmail}, nil
}
