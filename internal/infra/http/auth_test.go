package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
)

func protected(t *testing.T, verifier *TokenVerifier) http.Handler {
	t.Helper()
	return RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(userID))
	}))
}

func signToken(t *testing.T, secret, issuer, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	verifier, err := NewTokenVerifier("0123456789abcdef", "food-diary")
	require.NoError(t, err)
	token := signToken(t, "0123456789abcdef", "food-diary", "user-1", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, verifier).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireAuthRejects(t *testing.T) {
	verifier, err := NewTokenVerifier("0123456789abcdef", "food-diary")
	require.NoError(t, err)

	expired := signToken(t, "0123456789abcdef", "food-diary", "user-1", -time.Minute)
	foreign := signToken(t, "another-secret-value", "food-diary", "user-1", time.Hour)
	issuer := signToken(t, "0123456789abcdef", "someone-else", "user-1", time.Hour)
	noSubject := signToken(t, "0123456789abcdef", "food-diary", "", time.Hour)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	headers := map[string]string{
		"missing":      "",
		"basic":        "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer not.a.token",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"wrong issuer": "Bearer " + issuer,
		"no subject":   "Bearer " + noSubject,
		"alg none":     "Bearer " + none,
	}
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/diaries", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			protected(t, verifier).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, domain.CodeAuthenticationFailed, decodeEnvelope(t, rec.Body).ErrorCode)
		})
	}
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier(" ", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
