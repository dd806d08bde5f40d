package idlink_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	il "github.com/panyam/idlink"
)

const testJWTSecret = "test-secret"

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestPrincipalResolver_BearerHeader(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u1"))

	if id := resolver.PrincipalID(req); id != "u1" {
		t.Errorf("expected principal u1, got %q", id)
	}
}

func TestPrincipalResolver_AuthCookie(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "AuthToken", Value: signedToken(t, "u2")})

	if id := resolver.PrincipalID(req); id != "u2" {
		t.Errorf("expected principal u2, got %q", id)
	}
}

func TestPrincipalResolver_NoCredentials(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := resolver.PrincipalID(req); id != "" {
		t.Errorf("expected empty principal, got %q", id)
	}
}

func TestPrincipalResolver_BadSignature(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: "a-different-secret"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u1"))

	if id := resolver.PrincipalID(req); id != "" {
		t.Errorf("expected empty principal for bad signature, got %q", id)
	}
}

func TestPrincipalResolver_MissingSubject(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"aud": "something"})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	if id := resolver.PrincipalID(req); id != "" {
		t.Errorf("expected empty principal without sub claim, got %q", id)
	}
}

func TestRequirePrincipal(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	handlerCalled := false
	handler := resolver.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if id := resolver.PrincipalID(r); id != "u1" {
			t.Errorf("expected principal u1 in context, got %q", id)
		}
	}))

	// Unauthenticated: rejected before the handler runs
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if handlerCalled {
		t.Error("handler should not run unauthenticated")
	}

	// Authenticated: principal flows through the context
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u1"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !handlerCalled {
		t.Error("handler should have run")
	}
}

func TestWithPrincipal_PassesThroughUnauthenticated(t *testing.T) {
	resolver := &il.PrincipalResolver{JWTSecretKey: testJWTSecret}

	handlerCalled := false
	handler := resolver.WithPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if id := resolver.PrincipalID(r); id != "" {
			t.Errorf("expected empty principal, got %q", id)
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !handlerCalled {
		t.Error("WithPrincipal should never reject")
	}
}
