package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func fixedVerifier(maxAge time.Duration, at time.Time) *SessionVerifier {
	v := NewSessionVerifier(testSecret, maxAge)
	v.now = func() time.Time { return at }
	return v
}

func TestSessionVerifier_SignAndVerify(t *testing.T) {
	v := NewSessionVerifier(testSecret, time.Hour)

	token, err := v.Sign("user-1", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestSessionVerifier_Rejects(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signer := fixedVerifier(0, now.Add(-2*time.Hour))
	oldToken, err := signer.Sign("user-1", 24*time.Hour)
	require.NoError(t, err)
	expiredToken, err := signer.Sign("user-1", time.Minute)
	require.NoError(t, err)

	other := NewSessionVerifier("a-different-secret-of-some-length", 0)
	foreignToken, err := other.Sign("user-1", time.Hour)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	bareToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *SessionVerifier
		token    string
	}{
		{name: "empty", verifier: fixedVerifier(0, now), token: ""},
		{name: "garbage", verifier: fixedVerifier(0, now), token: "not-a-jwt"},
		{name: "expired", verifier: fixedVerifier(0, now), token: expiredToken},
		{name: "older than max age", verifier: fixedVerifier(time.Hour, now), token: oldToken},
		{name: "wrong secret", verifier: fixedVerifier(0, now), token: foreignToken},
		{name: "alg none", verifier: fixedVerifier(0, now), token: noneToken},
		{name: "no exp or iat", verifier: fixedVerifier(0, now), token: bareToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)
			assert.Error(t, err)
		})
	}

	_, err = fixedVerifier(0, now).Verify(oldToken)
	assert.NoError(t, err, "no max age means only exp applies")
}

func TestSession_Required(t *testing.T) {
	v := NewSessionVerifier(testSecret, time.Hour)
	token, err := v.Sign("user-42", time.Hour)
	require.NoError(t, err)

	var seen string
	handler := Session(v, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantSub    string
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
			wantSub:    "user-42",
		},
		{
			name:       "lowercase bearer",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) },
			wantStatus: http.StatusOK,
			wantSub:    "user-42",
		},
		{
			name:       "cookie",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) },
			wantStatus: http.StatusOK,
			wantSub:    "user-42",
		},
		{
			name:       "missing",
			setup:      func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/video/abc", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantSub, seen)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestSession_Optional(t *testing.T) {
	v := NewSessionVerifier(testSecret, time.Hour)
	token, err := v.Sign("user-7", time.Hour)
	require.NoError(t, err)

	handler := Session(v, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := SubjectFromContext(r.Context())
		if ok {
			_, _ = w.Write([]byte(sub))
		}
	}))

	anon := httptest.NewRequest(http.MethodGet, "/videos", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, anon)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	bad := httptest.NewRequest(http.MethodGet, "/videos", nil)
	bad.Header.Set("Authorization", "Bearer junk")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, bad)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	authed := httptest.NewRequest(http.MethodGet, "/videos", nil)
	authed.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, authed)
	assert.Equal(t, "user-7", w.Body.String())
}

func TestSession_NilVerifier(t *testing.T) {
	handler := Session(nil, true)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
