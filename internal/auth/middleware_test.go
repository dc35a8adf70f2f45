package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	token, userID string
}

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if token != s.token {
		return "", errors.New("rejected")
	}
	return s.userID, nil
}

// echoUser writes the user id found in the context.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	w.Write([]byte(id))
})

func requestWithToken(target, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return r
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(stubVerifier{"good", "u1"})(echoUser)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "good", http.StatusOK, "u1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"rejected", "bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithToken("/api/me", tt.token))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
				t.Error("401 response is not JSON")
			}
		})
	}
}

func TestRequirePage_RedirectsWithFrom(t *testing.T) {
	h := RequirePage(stubVerifier{"good", "u1"})(echoUser)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken("/dashboard?tab=all", ""))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got, want := rec.Header().Get("Location"), "/login?from=%2Fdashboard%3Ftab%3Dall"; got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken("/dashboard", "good"))
	if rec.Code != http.StatusOK || rec.Body.String() != "u1" {
		t.Errorf("authenticated page = %d %q", rec.Code, rec.Body.String())
	}
}

func TestOptionalAuth_NeverBlocks(t *testing.T) {
	h := OptionalAuth(stubVerifier{"good", "u1"})(echoUser)

	for token, want := range map[string]string{"": "", "bad": "", "good": "u1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestWithToken("/", token))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Errorf("token %q: %d %q, want 200 %q", token, rec.Code, rec.Body.String(), want)
		}
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := map[string]string{
		"/dashboard":          "/dashboard",
		"/briefings/abc?x=1":  "/briefings/abc?x=1",
		"":                    "/fallback",
		"https://evil.test/":  "/fallback",
		"//evil.test":         "/fallback",
		"/\\evil.test":        "/fallback",
		"dashboard":           "/fallback",
	}
	for in, want := range tests {
		if got := SafeReturnPath(in, "/fallback"); got != want {
			t.Errorf("SafeReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoginRedirect(t *testing.T) {
	if got := LoginRedirect("/"); got != LoginPath {
		t.Errorf("LoginRedirect(/) = %q", got)
	}
	if got := LoginRedirect("/dashboard"); got != "/login?from=%2Fdashboard" {
		t.Errorf("LoginRedirect(/dashboard) = %q", got)
	}
}
