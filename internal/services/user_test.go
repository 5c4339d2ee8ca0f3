package services

import (
	"context"
	"testing"

	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/store"
	"github.com/resumehub/apiserver/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, *testutil.UserRepo) {
	t.Helper()
	repo := testutil.NewUserRepo()
	return NewUserService(repo, auth.NewPasswordHasher(bcrypt.MinCost)), repo
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestUserService_Register(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice@Example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.Positive(t, user.ID)

	_, err = svc.Register(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 1, repo.Count())
}

func TestUserService_RegisterRejectsEmptyPassword(t *testing.T) {
	svc, repo := newUserService(t)

	_, err := svc.Register(context.Background(), "a@x.io", "")
	assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	assert.Zero(t, repo.Count())
}

func TestUserService_Authenticate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.io", "pw1")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "A@X.io ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "a@x.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@x.io", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Lookup(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.io", "pw1")
	require.NoError(t, err)

	byEmail, err := svc.GetByEmail(ctx, "A@x.io")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, byEmail.ID)

	byID, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", byID.Email)

	_, err = svc.GetByID(ctx, registered.ID+1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
