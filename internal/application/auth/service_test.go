package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appUser "github.com/barter-hub/barter-hub/internal/application/user"
	domainUser "github.com/barter-hub/barter-hub/internal/domain/user"
	"github.com/barter-hub/barter-hub/internal/infrastructure/memory"
)

const password = "Sw4p-Meet-Greet!"

func setup(t *testing.T, ttl time.Duration) (*Service, *appUser.Service) {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	sessions := memory.NewSessionRepository(store)
	return NewService(users, sessions, ttl, zerolog.Nop()), appUser.NewService(users, zerolog.Nop())
}

func TestService_LoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	svc, users := setup(t, time.Hour)
	u, err := users.Register(ctx, appUser.RegisterInput{Username: "Olivia", Password: password})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "olivia", "wrong", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", password, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "  OLIVIA ", password, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, res.Token, res.Session.TokenHash)

	got, sess, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, res.Session.SessionID, sess.SessionID)

	_, _, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, _, err = svc.Authenticate(ctx, "forged")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	svc, users := setup(t, -time.Minute)
	_, err := users.Register(ctx, appUser.RegisterInput{Username: "ryan", Password: password})
	require.NoError(t, err)

	res, err := svc.Login(ctx, "ryan", password, nil, nil)
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Login(ctx, "ryan", password, nil, nil)
	require.NoError(t, err)
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_DisabledUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := memory.NewUserRepository(store)
	svc := NewService(repo, memory.NewSessionRepository(store), time.Hour, zerolog.Nop())
	u, err := appUser.NewService(repo, zerolog.Nop()).Register(ctx, appUser.RegisterInput{Username: "lena", Password: password})
	require.NoError(t, err)

	u.Status = domainUser.StatusDisabled
	require.NoError(t, repo.Update(ctx, u))
	_, err = svc.Login(ctx, "lena", password, nil, nil)
	assert.ErrorIs(t, err, ErrUserDisabled)
}
