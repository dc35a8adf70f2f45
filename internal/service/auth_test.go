package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/repository/memory"
	"github.com/sakif/briefme/internal/store"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// countingMetrics records what the services report.
type countingMetrics struct {
	changed   map[string]int
	submitted int
	rejected  int
	failures  int
	attempts  map[string]int // "kind/ok" or "kind/fail"
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{changed: map[string]int{}, attempts: map[string]int{}}
}

func (m *countingMetrics) BriefingChanged(op string) { m.changed[op]++ }
func (m *countingMetrics) ResponseSubmitted()        { m.submitted++ }
func (m *countingMetrics) SubmissionRejected()       { m.rejected++ }
func (m *countingMetrics) PersistenceFailed()        { m.failures++ }
func (m *countingMetrics) AuthAttempt(kind string, ok bool) {
	if ok {
		m.attempts[kind+"/ok"]++
	} else {
		m.attempts[kind+"/fail"]++
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthService(t *testing.T) (*AuthService, *memory.Storage, *countingMetrics) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars", time.Hour)
	require.NoError(t, err)
	storage := memory.New()
	m := newCountingMetrics()
	return NewAuthService(storage, storage, tokens, m, testLogger()), storage, m
}

// =========================================================================
// SIGNUP
// =========================================================================

func TestSignup_CreatesAccountAndSession(t *testing.T) {
	svc, storage, m := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, Credentials{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.Name)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, store.Notice{Kind: store.NoticeSuccess, Message: MsgSignedUp}, res.Notice)
	assert.Equal(t, 1, m.attempts["signup/ok"])

	_, err = storage.LoadSession(ctx, res.User.ID)
	assert.NoError(t, err, "signup should start a session")
}

func TestSignup_ReportsEveryInvalidField(t *testing.T) {
	svc, _, m := newTestAuthService(t)

	_, err := svc.Signup(context.Background(), Credentials{Email: "nope", Password: "123"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]string{
		"name":     MsgNameRequired,
		"email":    "Invalid email",
		"password": MsgPasswordTooShort,
	}, appErr.Fields)
	assert.Equal(t, 1, m.attempts["signup/fail"])
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin_ReusesAccountForSameEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, Credentials{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	login, err := svc.Login(ctx, Credentials{Email: "ADA@example.com", Password: "anything-goes"})
	require.NoError(t, err)

	assert.Equal(t, signup.User.ID, login.User.ID, "same email must map to the same owner")
	assert.Equal(t, "Ada", login.User.Name, "login keeps the signup name")
	assert.Equal(t, MsgLoggedIn, login.Notice.Message)
}

func TestLogin_NewEmailGetsLocalPartAsName(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	res, err := svc.Login(context.Background(), Credentials{Email: "grace@navy.mil", Password: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "grace", res.User.Name)
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		in      Credentials
		wantErr error
	}{
		{"bad email", Credentials{Email: "grace", Password: "123456"}, apperror.ErrValidation},
		{"no password", Credentials{Email: "grace@navy.mil"}, apperror.ErrValidation},
		{"short password", Credentials{Email: "grace@navy.mil", Password: "12345"}, apperror.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, m := newTestAuthService(t)
			_, err := svc.Login(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, m.attempts["login/fail"])
		})
	}
}

func TestLogin_ShortPasswordMessage(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Login(context.Background(), Credentials{Email: "a@b.co", Password: "abc"})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, MsgInvalidPassword, appErr.Message)
}

// =========================================================================
// VERIFY / LOGOUT / ME
// =========================================================================

func TestVerify_FollowsSessionRecord(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, Credentials{Email: "a@b.co", Password: "123456"})
	require.NoError(t, err)

	userID, err := svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	notice, err := svc.Logout(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, MsgLoggedOut, notice.Message)

	_, err = svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "token must stop working after logout")
}

func TestVerify_SecondLoginKeepsFirstTokenValid(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, Credentials{Email: "a@b.co", Password: "123456"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, Credentials{Email: "a@b.co", Password: "654321"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, first.Token)
	assert.NoError(t, err)
}

func TestVerify_GarbageToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Verify(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, Credentials{Email: "grace@navy.mil", Password: "123456"})
	require.NoError(t, err)

	user, err := svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace@navy.mil", user.Email)
	assert.Equal(t, "grace", user.Name)

	_, err = svc.Me(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Me(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
