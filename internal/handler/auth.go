package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/service"
	"github.com/sakif/briefme/internal/store"
)

// AuthHandler manages signup, login and logout, for both the HTML forms and
// the JSON API.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginPage / HandleSignupPage → render the forms
//   - HandleLoginForm / HandleSignupForm → start a session, set the cookie, redirect
//   - HandleAPILogin / HandleAPISignup   → same, answering with JSON
//   - HandleLogout / HandleAPILogout     → clear the session and the cookie
//   - HandleMe                           → the signed-in user's account
//
// DEPENDENCY CHAIN:
//   - svc    *service.AuthService → all auth rules
//   - pages  *Pages               → HTML rendering
type AuthHandler struct {
	svc    *service.AuthService
	pages  *Pages
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks the session cookie
// Secure; set it when the public origin is https.
func NewAuthHandler(svc *service.AuthService, pages *Pages, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, pages: pages, secure: secure, logger: logger}
}

// AuthResponse is the JSON answer to a successful login or signup.
type AuthResponse struct {
	User   *model.User  `json:"user"`
	Notice store.Notice `json:"notice"`
}

type credentialsPage struct {
	Name   string
	Email  string
	From   string
	Errors map[string]string
}

// HandleLanding sends visitors to the dashboard or the login page.
//
// HTTP: GET /
func (h *AuthHandler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// HandleLoginPage renders the login form. A visitor who is already signed
// in goes straight to where they were heading.
//
// HTTP: GET /login?from=/dashboard
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.credentialsPage(w, r, "login", "Log in")
}

// HandleSignupPage renders the signup form.
//
// HTTP: GET /signup
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.credentialsPage(w, r, "signup", "Sign up")
}

func (h *AuthHandler) credentialsPage(w http.ResponseWriter, r *http.Request, name, title string) {
	from := auth.SafeReturnPath(r.URL.Query().Get("from"), "")
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, auth.SafeReturnPath(from, "/dashboard"), http.StatusSeeOther)
		return
	}
	h.pages.Render(w, http.StatusOK, name, PageData{
		Title:  title,
		Notice: TakeFlash(w, r),
		Data:   credentialsPage{From: from},
	})
}

// HandleLoginForm handles the posted login form.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := service.Credentials{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}
	res, err := h.svc.Login(r.Context(), in)
	h.finishForm(w, r, "login", "Log in", in, res, err)
}

// HandleSignupForm handles the posted signup form.
//
// HTTP: POST /signup
func (h *AuthHandler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := service.Credentials{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	res, err := h.svc.Signup(r.Context(), in)
	h.finishForm(w, r, "signup", "Sign up", in, res, err)
}

// finishForm sets the cookie and redirects on success, or re-renders the
// form with its errors. The password is never echoed back.
func (h *AuthHandler) finishForm(w http.ResponseWriter, r *http.Request, page, title string, in service.Credentials, res *service.AuthResult, err error) {
	from := auth.SafeReturnPath(r.PostForm.Get("from"), "")
	if err == nil {
		h.setCookie(w, res.Token)
		SetFlash(w, res.Notice)
		http.Redirect(w, r, auth.SafeReturnPath(from, "/dashboard"), http.StatusSeeOther)
		return
	}

	status, _ := statusOf(err)
	data := credentialsPage{Name: in.Name, Email: in.Email, From: from}
	notice := &store.Notice{Kind: store.NoticeError}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		data.Errors = appErr.Fields
		notice.Message = appErr.Message
	} else {
		h.logger.Error(page+" failed", slog.String("error", err.Error()))
		notice.Message = "Something went wrong, please try again"
	}

	h.pages.Render(w, status, page, PageData{Title: title, Notice: notice, Data: data})
}

// HandleLogout ends the session and returns to the login page.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	notice, err := h.logout(r)
	if err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
	}
	auth.ClearSessionCookie(w)
	SetFlash(w, notice)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// HandleAPISignup creates an account and starts a session.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"name": "Ada", "email": "ada@example.com", "password": "secret1"}
func (h *AuthHandler) HandleAPISignup(w http.ResponseWriter, r *http.Request) {
	var in service.Credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Signup(r.Context(), in)
	h.finishAPI(w, http.StatusCreated, res, err)
}

// HandleAPILogin starts a session.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "ada@example.com", "password": "secret1"}
func (h *AuthHandler) HandleAPILogin(w http.ResponseWriter, r *http.Request) {
	var in service.Credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.Name = ""
	res, err := h.svc.Login(r.Context(), in)
	h.finishAPI(w, http.StatusOK, res, err)
}

func (h *AuthHandler) finishAPI(w http.ResponseWriter, status int, res *service.AuthResult, err error) {
	if err != nil {
		if !errors.As(err, new(*apperror.AppError)) {
			h.logger.Error("authentication failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}
	h.setCookie(w, res.Token)
	writeJSON(w, status, AuthResponse{User: res.User, Notice: res.Notice})
}

// HandleAPILogout ends the session. It succeeds even without a valid
// cookie, so a client can always get back to a clean state.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleAPILogout(w http.ResponseWriter, r *http.Request) {
	notice, err := h.logout(r)
	auth.ClearSessionCookie(w)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]store.Notice{"notice": notice})
}

// HandleMe returns the signed-in user's account.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// logout clears the session of whoever the cookie names, if anyone.
func (h *AuthHandler) logout(r *http.Request) (store.Notice, error) {
	loggedOut := store.Notice{Kind: store.NoticeSuccess, Message: service.MsgLoggedOut}
	c, err := r.Cookie(auth.CookieName)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return loggedOut, nil
	}
	userID, err := h.svc.Verify(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return loggedOut, nil
		}
		return store.Notice{}, err
	}
	return h.svc.Logout(r.Context(), userID)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string) {
	auth.SetSessionCookie(w, token, int(h.svc.TokenTTL().Seconds()), h.secure)
}
