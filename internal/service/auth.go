// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)         ↘ SessionRepository (DB)
//
// AUTHENTICATION IS MOCKED:
// There is no password store. Signup and login accept any password of at
// least six characters, and the email alone identifies the account. What is
// real is the session: a login writes a session record and a signed token,
// and logout clears the record so the token stops working everywhere.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/repository"
	"github.com/sakif/briefme/internal/store"
)

// MinPasswordLength is the shortest password signup and login accept.
const MinPasswordLength = 6

// Auth messages shown to the user.
const (
	MsgLoggedIn         = "Logged in successfully!"
	MsgSignedUp         = "Account created successfully!"
	MsgLoggedOut        = "Logged out successfully"
	MsgInvalidPassword  = "Invalid password"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgNameRequired     = "Name is required"
	MsgPasswordRequired = "Password is required"
	MsgCheckForm        = "please check the form"
)

// Auth attempt kinds reported to metrics.
const (
	kindSignup = "signup"
	kindLogin  = "login"
)

// Credentials is what the login and signup forms post. Name is only read
// by signup.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository    → read/write user records
//   - sessions  repository.SessionRepository → the current session per user
//   - tokens    *auth.TokenService           → generate/validate JWTs
//   - metrics   Metrics                      → signup/login counters
//   - logger    *slog.Logger                 → structured logging
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *auth.TokenService
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// AuthService is the Verifier behind the route guards.
var _ auth.Verifier = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
// m may be nil.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	m Metrics,
	logger *slog.Logger,
) *AuthService {
	if m == nil {
		m = noMetrics{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AuthResult is returned by authentication operations.
// It bundles the user record, the issued JWT and the notice to show, so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User   *model.User
	Token  string
	Notice store.Notice
}

// Signup creates the account (or reuses the one with the same email) and
// starts a session. Every invalid input is reported at once, keyed by field.
func (s *AuthService) Signup(ctx context.Context, in Credentials) (*AuthResult, error) {
	errs := form.Errors{}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = MsgNameRequired
	}
	if !form.IsValidEmail(in.Email) {
		errs["email"] = form.MsgInvalidEmail
	}
	if len(in.Password) < MinPasswordLength {
		errs["password"] = MsgPasswordTooShort
	}
	if len(errs) > 0 {
		s.metrics.AuthAttempt(kindSignup, false)
		return nil, apperror.InvalidFields(MsgCheckForm, errs)
	}

	res, err := s.startSession(ctx, strings.TrimSpace(in.Name), in.Email, MsgSignedUp)
	s.metrics.AuthAttempt(kindSignup, err == nil)
	return res, err
}

// Login starts a session for the email. Any password of six or more
// characters is accepted; a shorter one is rejected as invalid.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*AuthResult, error) {
	errs := form.Errors{}
	if !form.IsValidEmail(in.Email) {
		errs["email"] = form.MsgInvalidEmail
	}
	if in.Password == "" {
		errs["password"] = MsgPasswordRequired
	}
	if len(errs) > 0 {
		s.metrics.AuthAttempt(kindLogin, false)
		return nil, apperror.InvalidFields(MsgCheckForm, errs)
	}
	if len(in.Password) < MinPasswordLength {
		s.metrics.AuthAttempt(kindLogin, false)
		return nil, apperror.Unauthorized(MsgInvalidPassword)
	}

	res, err := s.startSession(ctx, "", in.Email, MsgLoggedIn)
	s.metrics.AuthAttempt(kindLogin, err == nil)
	return res, err
}

// startSession upserts the user, overwrites their session record and
// issues a token. An empty name keeps the stored one; a new account with no
// name gets the local part of its email.
func (s *AuthService) startSession(ctx context.Context, name, email, msg string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user := &model.User{Email: email, Name: name}
	if err := s.users.UpsertByEmail(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", email, err)
	}
	if user.Name == "" {
		user.Name, _, _ = strings.Cut(email, "@")
	}

	if err := s.sessions.SaveSession(ctx, user.ID, s.now()); err != nil {
		return nil, fmt.Errorf("service/auth: saving session for %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("session started", slog.String("userID", user.ID))

	return &AuthResult{
		User:   user,
		Token:  token,
		Notice: store.Notice{Kind: store.NoticeSuccess, Message: msg},
	}, nil
}

// Logout clears the user's session record. Tokens issued before stop
// verifying even though they have not expired.
func (s *AuthService) Logout(ctx context.Context, userID string) (store.Notice, error) {
	if userID == "" {
		return store.Notice{}, store.ErrNoOwner
	}
	if err := s.sessions.ClearSession(ctx, userID); err != nil {
		return store.Notice{}, fmt.Errorf("service/auth: clearing session for %s: %w", userID, err)
	}
	s.logger.Info("session ended", slog.String("userID", userID))
	return store.Notice{Kind: store.NoticeSuccess, Message: MsgLoggedOut}, nil
}

// Verify checks the token's signature and expiry, then that its user still
// has a session record. Storage failures are returned as they are; every
// other rejection is ErrUnauthorized.
func (s *AuthService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", apperror.Unauthorized("invalid session token")
	}
	if _, err := s.sessions.LoadSession(ctx, claims.UserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("session has ended")
		}
		return "", fmt.Errorf("service/auth: loading session for %s: %w", claims.UserID, err)
	}
	return claims.UserID, nil
}

// Me returns the signed-in user's account.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, store.ErrNoOwner
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	if user.Name == "" {
		user.Name, _, _ = strings.Cut(user.Email, "@")
	}
	return user, nil
}

// TokenTTL is how long issued tokens, and so the session cookie, last.
func (s *AuthService) TokenTTL() time.Duration { return s.tokens.TTL() }
