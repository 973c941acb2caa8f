package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := db.NewRepository(db.NewMemoryStore())
	return NewService(repo, NewJWTManager("test-secret", time.Hour, 24*time.Hour), ServiceOptions{
		BcryptCost:    bcrypt.MinCost,
		LoginAttempts: 3,
		LoginWindow:   time.Hour,
	})
}

func authCode(t *testing.T, err error) string {
	t.Helper()
	var ae *apperr.AuthError
	require.True(t, errors.As(err, &ae), "expected AuthError, got %v", err)
	return ae.Code
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.Register(ctx, " Ana@Plant.com ", "Segura123")
	require.NoError(t, err)
	assert.Equal(t, "ana@plant.com", first.User.Email)
	assert.Equal(t, "ana", first.User.DisplayName)
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.NotEmpty(t, first.Token)
	assert.NotEmpty(t, first.RefreshToken)

	second, err := svc.Register(ctx, "joao@plant.com", "Segura123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnician, second.User.Role)

	sess, err := svc.Login(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)
	require.NotNil(t, sess.User.LastLogin)

	user, err := svc.CurrentSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, user.ID)
	assert.NotNil(t, user.LastLogin)
}

func TestRegisterErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Register(ctx, "not-an-email", "Segura123")
	assert.Equal(t, apperr.CodeInvalidEmail, authCode(t, err))

	_, err = svc.Register(ctx, "ana@plant.com", "fraca")
	assert.Equal(t, apperr.CodeWeakPassword, authCode(t, err))

	_, err = svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ANA@plant.com", "Segura123")
	assert.Equal(t, apperr.CodeEmailInUse, authCode(t, err))
}

func TestLoginErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Login(ctx, "ghost@plant.com", "Segura123")
	assert.Equal(t, apperr.CodeUserNotFound, authCode(t, err))

	_, err = svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@plant.com", "Errada123")
	assert.Equal(t, apperr.CodeWrongPassword, authCode(t, err))
	assert.Equal(t, "Senha incorreta.", apperr.AuthMessage(authCode(t, err)))
}

func TestLoginThrottled(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, "ana@plant.com", "Errada123")
		assert.Equal(t, apperr.CodeWrongPassword, authCode(t, err))
	}
	_, err = svc.Login(ctx, "ana@plant.com", "Segura123")
	assert.Equal(t, apperr.CodeTooManyRequests, authCode(t, err))

	// Other accounts are unaffected.
	_, err = svc.Login(ctx, "joao@plant.com", "Segura123")
	assert.Equal(t, apperr.CodeUserNotFound, authCode(t, err))
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sess, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))

	_, err = svc.CurrentSession(ctx, sess.Token)
	assert.Equal(t, apperr.CodeInvalidSession, authCode(t, err))

	err = svc.Logout(ctx, sess.Token)
	assert.Equal(t, apperr.CodeInvalidSession, authCode(t, err))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sess, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, sess.Token)
	assert.Equal(t, apperr.CodeInvalidSession, authCode(t, err), "access token is not a refresh token")

	_, err = svc.CurrentSession(ctx, sess.RefreshToken)
	assert.Equal(t, apperr.CodeInvalidSession, authCode(t, err), "refresh token is not an access token")

	refreshed, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	user, err := svc.CurrentSession(ctx, refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)
}

func TestOnSessionChange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var events []string
	unsubscribe := svc.OnSessionChange(func(ev SessionEvent) {
		events = append(events, ev.Kind+":"+ev.User.Email)
	})

	sess, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, sess.Token))

	unsubscribe()
	_, err = svc.Login(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)

	assert.Equal(t, []string{"signed_in:ana@plant.com", "signed_out:ana@plant.com"}, events)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sess, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)
	id := sess.User.ID

	err = svc.Reauthenticate(ctx, id, "Errada123")
	assert.Equal(t, apperr.CodeWrongPassword, authCode(t, err))
	require.NoError(t, svc.Reauthenticate(ctx, id, "Segura123"))

	err = svc.ChangePassword(ctx, id, "curta")
	assert.Equal(t, apperr.CodeWeakPassword, authCode(t, err))

	require.NoError(t, svc.ChangePassword(ctx, id, "NovaSenha9"))

	_, err = svc.Login(ctx, "ana@plant.com", "Segura123")
	assert.Equal(t, apperr.CodeWrongPassword, authCode(t, err))
	_, err = svc.Login(ctx, "ana@plant.com", "NovaSenha9")
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "missing", "NovaSenha9")
	assert.Equal(t, apperr.CodeUserNotFound, authCode(t, err))
}

func TestConcurrentFirstRegistrationsYieldOneAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const n = 8
	roles := make([]models.UserRole, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := svc.Register(ctx, fmt.Sprintf("user%d@plant.com", i), "Segura123")
			if assert.NoError(t, err) {
				roles[i] = sess.User.Role
			}
		}(i)
	}
	wg.Wait()

	admins := 0
	for _, role := range roles {
		if role == models.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)

	users, err := svc.repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, n)
}

// passwordWriteFailer refuses password writes while fail is set.
type passwordWriteFailer struct {
	db.Store
	fail atomic.Bool
}

func (s *passwordWriteFailer) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if collection == models.CollectionPasswords && s.fail.Load() {
		return errors.New("write refused")
	}
	return s.Store.Set(ctx, collection, id, fields)
}

func TestRegisterRemovesUserWhenPasswordWriteFails(t *testing.T) {
	ctx := context.Background()
	store := &passwordWriteFailer{Store: db.NewMemoryStore()}
	repo := db.NewRepository(store)
	svc := NewService(repo, NewJWTManager("test-secret", time.Hour, 24*time.Hour), ServiceOptions{BcryptCost: bcrypt.MinCost})

	store.fail.Store(true)
	_, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.Error(t, err)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	_, err = repo.GetUserByEmail(ctx, "ana@plant.com")
	assert.ErrorIs(t, err, db.ErrNotFound)

	store.fail.Store(false)
	sess, err := svc.Register(ctx, "ana@plant.com", "Segura123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.User.Role, "failed attempt must not keep the admin claim")

	_, err = svc.Login(ctx, "ana@plant.com", "Segura123")
	assert.NoError(t, err)
}
