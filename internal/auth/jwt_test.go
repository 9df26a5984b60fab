package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, "sneaker-rotation", time.Hour)
	require.NoError(t, err)
	return ts
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		issuer  string
		ttl     time.Duration
		wantErr string
	}{
		{"ok", "this-is-16-chars", "x", time.Minute, ""},
		{"short secret", "short", "x", time.Minute, "at least 16"},
		{"no issuer", "this-is-16-chars", "", time.Minute, "issuer"},
		{"zero ttl", "this-is-16-chars", "x", 0, "lifetime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.secret, tt.issuer, tt.ttl)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerateValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-abc-123")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "header.payload.signature")

	got, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-abc-123", got)
	assert.Equal(t, time.Hour, ts.TTL())
}

func TestGenerate_EmptySubject(t *testing.T) {
	_, err := newTestTokenService(t).Generate("")
	require.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, err := ts.Generate("user-123")
	require.NoError(t, err)

	otherSecret, err := NewTokenService("another-secret-with-enough-chars", "sneaker-rotation", time.Hour)
	require.NoError(t, err)
	foreignSig, err := otherSecret.Generate("user-123")
	require.NoError(t, err)

	otherIssuer, err := NewTokenService(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	foreignIss, err := otherIssuer.Generate("user-123")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    "sneaker-rotation",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"tampered":     good[:len(good)-3] + "xxx",
		"wrong secret": foreignSig,
		"wrong issuer": foreignIss,
		"alg none":     unsigned,
		"empty":        "",
		"garbage":      "not.a.jwt.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Validate(tok)
			assert.Error(t, err)
		})
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.GenerateWithDuration("user-123", -time.Second)
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}
