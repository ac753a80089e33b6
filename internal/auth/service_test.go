package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	svc := NewService("secret", "crm-copy", time.Hour)

	token, expiresAt, err := svc.IssueToken("user-1")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewService("secret", "crm-copy", time.Hour)
	verifier := NewService("other", "crm-copy", time.Hour)

	token, _, err := issuer.IssueToken("user-1")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := NewService("secret", "crm-copy", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.IssueToken("user-1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	svc := NewService("secret", "crm-copy", time.Hour)

	_, _, err := svc.IssueToken("")
	assert.ErrorIs(t, err, ErrMissingSubject)
}
