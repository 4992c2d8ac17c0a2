package service

import (
	"context"
	"testing"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/pkg/serverutils"
	"ecospectre-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T, reachable bool) (*fakeFactory, IAuthService) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	factory := newFakeFactory(reachable)
	svc := NewAuthService(factory, nil, serverutils.SignToken, logger.NewNopLogger())
	svc.(*authService).hashCost = bcrypt.MinCost
	return factory, svc
}

func TestRegisterIssuesTokenForNewUser(t *testing.T) {
	ctx := context.Background()
	factory, svc := newAuthFixture(t, true)

	res, err := svc.Register(ctx, &dto.RegisterRequest{Email: "  Ada@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.True(t, res.User.Settings.Notifications)
	assert.Equal(t, "system", res.User.Settings.Theme)
	assert.Equal(t, 3, res.User.Settings.DailyGoal)

	claims, err := serverutils.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.Id, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	count, err := factory.users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, _ := factory.users.FindOne(ctx)
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t, true)

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "a"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Email: "ADA@example.com", Password: "b"})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.EqualError(t, err, "User already exists")
}

func TestRegisterAndLoginRequireCredentials(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t, true)

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "ada@example.com"})
	assert.EqualError(t, err, "Email and password are required")

	_, err = svc.Login(ctx, &dto.LoginRequest{Password: "x"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthFixture(t, true)

	registered, err := svc.Register(ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, &dto.LoginRequest{Email: "Ada@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.Id, res.User.Id)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.EqualError(t, err, "Invalid credentials")

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthNeedsDurableStore(t *testing.T) {
	_, svc := newAuthFixture(t, false)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, unitofwork.ErrDurableUnavailable)
}

func TestUserServiceSettingsMerge(t *testing.T) {
	ctx := context.Background()
	factory, auth := newAuthFixture(t, true)
	users := NewUserService(factory, nil, logger.NewNopLogger())

	registered, err := auth.Register(ctx, &dto.RegisterRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	id := uuid.MustParse(registered.User.Id)

	theme := "dark"
	updated, err := users.UpdateSettings(ctx, id, &dto.UpdateSettingsRequest{Settings: &dto.UserSettingsRequest{Theme: &theme}})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Settings.Theme)
	assert.True(t, updated.Settings.Notifications)
	assert.Equal(t, 3, updated.Settings.DailyGoal)

	profile, err := users.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dark", profile.Settings.Theme)

	require.NoError(t, users.DeleteAccount(ctx, id))
	_, err = users.GetProfile(ctx, id)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
