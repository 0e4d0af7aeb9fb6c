package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))

	sessionID, token, err := manager.NewSession()
	if err != nil {
		t.Fatal(err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionID != sessionID {
		t.Errorf("session = %q, want %q", claims.SessionID, sessionID)
	}
	if claims.Issuer != "pitwall" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestJWTExpiry(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.Expiry = -time.Minute
	manager := NewJWTManager(cfg)

	_, token, err := manager.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}

	// An expired token can still be refreshed.
	refreshed, err := manager.RefreshToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager(DefaultJWTConfig("test-secret")).ValidateToken(refreshed); err != nil {
		t.Errorf("refreshed token invalid: %v", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("secret-a"))
	_, token, err := manager.NewSession()
	if err != nil {
		t.Fatal(err)
	}

	other := NewJWTManager(DefaultJWTConfig("secret-b"))
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRequireAPIKey(t *testing.T) {
	handler := RequireAPIKey("admin-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"valid key", "admin-key", http.StatusNoContent},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAPIKeyUnconfigured(t *testing.T) {
	handler := RequireAPIKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without configured key")
	}))
	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestSessionMiddleware(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))
	sessionID, token, err := manager.NewSession()
	if err != nil {
		t.Fatal(err)
	}

	var got string
	handler := SessionMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != sessionID {
		t.Errorf("session = %q, want %q", got, sessionID)
	}

	// Anonymous requests pass through without a session.
	got = "sentinel"
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ask", nil))
	if got != "" {
		t.Errorf("anonymous session = %q, want empty", got)
	}

	// Garbage tokens are rejected.
	req = httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
