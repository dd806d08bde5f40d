package idlink

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
)

type principalIDKey string

const principalIDContextKey principalIDKey = "principalId"

// PrincipalResolver answers "who is calling" for the facade. It checks the
// session first, then falls back to a bearer token. Applications with their
// own session plumbing can replace VerifyToken or bypass this entirely and
// feed principal IDs straight into the protocols.
type PrincipalResolver struct {
	// Session, if set, is consulted first using SessionKey
	Session    *scs.SessionManager
	SessionKey string

	// Header and cookie names carrying a bearer token
	AuthTokenHeaderName string
	AuthTokenCookieName string

	// JWTSecretKey verifies bearer tokens when VerifyToken is not replaced
	JWTSecretKey string

	// VerifyToken turns a token string into a principal ID
	VerifyToken func(tokenString string) (principalID string, err error)
}

// EnsureDefaults fills zero-valued configuration
func (m *PrincipalResolver) EnsureDefaults() *PrincipalResolver {
	if m.SessionKey == "" {
		m.SessionKey = "principalId"
	}
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.AuthTokenCookieName == "" {
		m.AuthTokenCookieName = "AuthToken"
	}
	if m.VerifyToken == nil {
		m.VerifyToken = m.verifyJWT
	}
	return m
}

// PrincipalID returns the calling principal's ID, or "" if unauthenticated
func (m *PrincipalResolver) PrincipalID(r *http.Request) string {
	if v := r.Context().Value(principalIDContextKey); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}

	m.EnsureDefaults()

	if m.Session != nil {
		if id := m.Session.GetString(r.Context(), m.SessionKey); id != "" {
			return id
		}
	}

	tokens := r.Header.Values(m.AuthTokenHeaderName)
	for _, cookie := range r.Cookies() {
		if cookie.Name == m.AuthTokenCookieName && len(cookie.Value) > 0 {
			tokens = append(tokens, cookie.Value)
		}
	}

	for _, token := range tokens {
		token = stripBearerPrefix(token)
		id, err := m.VerifyToken(token)
		if err == nil && id != "" {
			return id
		} else if err != nil {
			slog.Warn("Error verifying token", "error", err)
		}
	}
	return ""
}

// WithPrincipal loads the principal ID (if any) into the request context for
// downstream handlers. It performs no redirects and no rejections.
func (m *PrincipalResolver) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.PrincipalID(r)
		ctx := context.WithValue(r.Context(), principalIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePrincipal rejects unauthenticated requests with a 401
func (m *PrincipalResolver) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.PrincipalID(r)
		if id == "" {
			http.Error(w, `{"status": "error", "reason": "unauthorized"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), principalIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *PrincipalResolver) verifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(m.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}

func stripBearerPrefix(token string) string {
	const prefix = "Bearer "
	if len(token) > len(prefix) && token[:len(prefix)] == prefix {
		return token[len(prefix):]
	}
	return token
}
