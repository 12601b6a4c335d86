// Package middleware provides HTTP middleware for session verification.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const subjectKey ContextKey = "sessionSubject"

// SessionCookie is read when no Authorization header is sent.
const SessionCookie = "mathmotion_session"

// Claims are the session token claims. Subject identifies the caller.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenVerifier checks a raw session token.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// SessionVerifier verifies HS256 session tokens signed with a shared secret.
type SessionVerifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionVerifier returns a verifier. A positive maxAge also rejects tokens issued longer ago than maxAge.
func NewSessionVerifier(secret string, maxAge time.Duration) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Sign issues a token for subject valid for ttl.
func (v *SessionVerifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks signature, expiry and age.
func (v *SessionVerifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	if claims.ExpiresAt == nil && claims.IssuedAt == nil {
		return nil, fmt.Errorf("token has neither exp nor iat")
	}
	if v.maxAge > 0 && claims.IssuedAt != nil && v.now().Sub(claims.IssuedAt.Time) > v.maxAge {
		return nil, fmt.Errorf("token older than %s", v.maxAge)
	}
	return claims, nil
}

// Session verifies the caller's session token and stores its subject in the request context.
// When required is false, requests without a usable token pass through anonymously.
func Session(verifier TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyRequest(verifier, r)
			if err != nil {
				if required {
					unauthorized(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyRequest(verifier TokenVerifier, r *http.Request) (*Claims, error) {
	if verifier == nil {
		return nil, fmt.Errorf("no verifier configured")
	}
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(token)
}

// extractToken reads a Bearer token, falling back to the session cookie.
func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", fmt.Errorf("malformed authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", fmt.Errorf("no session token")
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
}

// SubjectFromContext returns the verified session subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}
