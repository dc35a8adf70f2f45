package auth

import (
	"context"
	"net/http"
	"net/url"
)

// CookieName is the cookie that carries the session token.
const CookieName = "token"

// LoginPath is where page guards send anonymous visitors.
const LoginPath = "/login"

// Verifier turns a session token into a user id. TokenService alone checks
// the signature and expiry; the auth service also checks that the user still
// has a session record, which a logout clears. A newer login overwrites the
// record but leaves earlier tokens valid, so several devices stay signed in.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Verify makes a bare TokenService usable as a Verifier.
func (s *TokenService) Verify(_ context.Context, token string) (string, error) {
	return s.Validate(token)
}

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the value.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth guards JSON API routes. A missing or rejected token ends the
// request with 401 and the standard error body.
func RequireAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, v)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequirePage guards HTML routes. Anonymous visitors are redirected to the
// login page with the requested path in "from", so they land back on it
// after signing in.
func RequirePage(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, v)
			if err != nil {
				http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present, but
// never blocks the request. The landing and login pages use it to redirect
// visitors who are already signed in.
func OptionalAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, v); err == nil && userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirect builds the login URL that returns to from afterwards.
func LoginRedirect(from string) string {
	if from == "" || from == "/" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SafeReturnPath accepts only same-site absolute paths, so a crafted "from"
// cannot send the user to another host after login.
func SafeReturnPath(from, fallback string) string {
	if len(from) < 1 || from[0] != '/' || (len(from) > 1 && (from[1] == '/' || from[1] == '\\')) {
		return fallback
	}
	return from
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetSessionCookie stores token in the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractUserID reads the session cookie and verifies it.
func extractUserID(r *http.Request, v Verifier) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous request
		return "", err
	}
	return v.Verify(r.Context(), cookie.Value)
}
