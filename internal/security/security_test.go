package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateSessionID(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()

	if a == b {
		t.Error("GenerateSessionID() returned the same id twice")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("GenerateSessionID() = %q is not a UUID: %v", a, err)
	}
}

func TestFormTokensRoundTrip(t *testing.T) {
	tokens, err := NewFormTokens("test-secret")
	if err != nil {
		t.Fatalf("NewFormTokens() error = %v", err)
	}

	token, err := tokens.Issue("session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	sid, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if sid != "session-1" {
		t.Errorf("Verify() = %q, want session-1", sid)
	}
}

func TestFormTokensRejects(t *testing.T) {
	tokens, _ := NewFormTokens("test-secret")
	other, _ := NewFormTokens("other-secret")
	foreign, _ := other.Issue("session-1")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}

	if _, err := tokens.Issue(""); err == nil {
		t.Error("Issue(\"\") should fail")
	}
}

func TestFormTokensExpire(t *testing.T) {
	tokens, _ := NewFormTokens("test-secret")
	issued := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Issue("session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(DefaultTokenTTL + time.Minute) }
	if _, err := tokens.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestFormTokensRandomSecret(t *testing.T) {
	a, err := NewFormTokens("")
	if err != nil {
		t.Fatalf("NewFormTokens() error = %v", err)
	}
	b, _ := NewFormTokens("")

	token, _ := a.Issue("session-1")
	if _, err := b.Verify(token); err == nil {
		t.Error("tokens from a different process secret should not verify")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("another client has its own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("bucket should refill after the window")
	}

	now = now.Add(3 * time.Minute)
	rl.sweep()
	if len(rl.visitors) != 0 {
		t.Errorf("sweep left %d visitors", len(rl.visitors))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/replay", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [204 429]", codes)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:5000", want: "192.0.2.1"},
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remote: "10.0.0.1:1", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.8"}, remote: "10.0.0.1:1", want: "203.0.113.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
