package usersrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRepo(t *testing.T, opts ...usersrepo.Option) *usersrepo.Repository {
	t.Helper()
	repo, err := usersrepo.NewRepository(logger.NewDiscard(), memstore.New(usersrepo.Schema), events.Discard{}, opts...)
	require.NoError(t, err)
	return repo
}

func createUser(t *testing.T, repo *usersrepo.Repository, email string) usersrepo.User {
	t.Helper()
	u, err := repo.Create(context.Background(), usersrepo.CreateUser{
		Name:     "John Doe",
		Email:    email,
		Password: "123456",
	})
	require.NoError(t, err)
	return u
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	u := createUser(t, repo, "john@gmail.com")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, usersrepo.RoleUser, u.Role)
	assert.NotEqual(t, "123456", u.PasswordHash)
	assert.True(t, authn.ComparePassword(u.PasswordHash, "123456"))
	assert.False(t, u.CreatedAt.IsZero())

	_, err := repo.Create(ctx, usersrepo.CreateUser{Name: "Dup", Email: "john@gmail.com", Password: "123456"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	_, err = repo.Create(ctx, usersrepo.CreateUser{Email: "bad", Password: "1"})
	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, []string{"name", "email", "password"}, fields.Fields())
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	created := createUser(t, repo, "mary@gmail.com")

	got, err := repo.Authenticate(ctx, "mary@gmail.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.Authenticate(ctx, "mary@gmail.com", "wrong")
	assert.ErrorIs(t, err, repositories.ErrUnauthenticated)
	assert.EqualError(t, err, "Invalid credentials")

	_, err = repo.Authenticate(ctx, "nobody@gmail.com", "123456")
	assert.ErrorIs(t, err, repositories.ErrUnauthenticated)
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "kevin@gmail.com")

	_, err := repo.UpdatePassword(ctx, u.ID, "nope", "abcdef")
	assert.ErrorIs(t, err, repositories.ErrUnauthenticated)
	assert.EqualError(t, err, "Incorrect password")

	_, err = repo.UpdatePassword(ctx, u.ID, "123456", "abcdef")
	require.NoError(t, err)
	_, err = repo.Authenticate(ctx, "kevin@gmail.com", "abcdef")
	assert.NoError(t, err)
}

func TestResetPasswordFlow(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo := newRepo(t, usersrepo.WithClock(c.Now))
	u := createUser(t, repo, "sara@gmail.com")

	token, err := repo.SetResetToken(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, token, 40)

	stored, err := repo.QueryByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, token, stored.ResetPasswordToken)
	require.NotNil(t, stored.ResetPasswordExpire)
	assert.True(t, c.now.Add(usersrepo.ResetTokenTTL).Equal(*stored.ResetPasswordExpire))

	_, err = repo.ResetPassword(ctx, "not-the-token", "abcdef")
	assert.EqualError(t, err, "Invalid token")

	got, err := repo.ResetPassword(ctx, token, "abcdef")
	require.NoError(t, err)
	assert.Empty(t, got.ResetPasswordToken)
	assert.Nil(t, got.ResetPasswordExpire)

	_, err = repo.ResetPassword(ctx, token, "ghijkl")
	assert.ErrorIs(t, err, repositories.ErrValidation)
}

func TestResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo := newRepo(t, usersrepo.WithClock(c.Now))
	u := createUser(t, repo, "late@gmail.com")

	token, err := repo.SetResetToken(ctx, u.ID)
	require.NoError(t, err)

	c.now = c.now.Add(11 * time.Minute)
	_, err = repo.ResetPassword(ctx, token, "abcdef")
	assert.EqualError(t, err, "Invalid token")
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "old@gmail.com")

	name, email := "New Name", "new@gmail.com"
	got, err := repo.Update(ctx, u.ID, usersrepo.UpdateUser{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "new@gmail.com", got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)

	bad := "root"
	_, err = repo.Update(ctx, u.ID, usersrepo.UpdateUser{Role: &bad})
	assert.True(t, validation.IsFieldErrors(err))

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.QueryByID(ctx, u.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), repositories.ErrNotFound)
}
