package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user, err := env.svc.CreateUser(ctx, NewUser{Email: " Officer@Bank.test ", Name: "Officer", Role: models.RoleOfficer, Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "officer@bank.test", user.Email)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err = env.svc.CreateUser(ctx, NewUser{Email: "officer@bank.test", Role: models.RoleOfficer, Password: "correct-horse"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	token, loggedIn, err := env.svc.Login(ctx, "officer@bank.test", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, loggedIn.LastLogin)

	claims, err := env.svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "officer@bank.test", claims.Subject)
	assert.Equal(t, models.RoleOfficer, claims.Role)
	assert.Equal(t, env.svc.now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.CreateUser(ctx, NewUser{Email: "u@bank.test", Role: models.RoleUnderwriter, Password: "password1"})
	require.NoError(t, err)

	_, _, err = env.svc.Login(ctx, "u@bank.test", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = env.svc.Login(ctx, "ghost@bank.test", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.CreateUser(context.Background(), NewUser{Email: "nope", Role: "intern", Password: "short"})
	var verr *eligibility.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestParseToken_Rejects(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.ParseToken("not-a-token")
	assert.Error(t, err)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x@bank.test", ExpiresAt: jwt.NewNumericDate(env.svc.now().Add(time.Hour))},
	})
	forged, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = env.svc.ParseToken(forged)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x@bank.test", ExpiresAt: jwt.NewNumericDate(env.svc.now().Add(-time.Minute))},
	})
	stale, err := expired.SignedString([]byte(env.cfg.JWTSecret))
	require.NoError(t, err)
	_, err = env.svc.ParseToken(stale)
	assert.Error(t, err)

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x@bank.test", ExpiresAt: jwt.NewNumericDate(env.svc.now().Add(time.Hour))},
	})
	roleless, err := noRole.SignedString([]byte(env.cfg.JWTSecret))
	require.NoError(t, err)
	_, err = env.svc.ParseToken(roleless)
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.NoError(t, env.svc.Authorize(&Claims{Role: models.RoleAdmin}, models.RoleAdmin))
	assert.ErrorIs(t, env.svc.Authorize(&Claims{Role: models.RoleOfficer}, models.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, env.svc.Authorize(nil, models.RoleAdmin), ErrForbidden)
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.svc.EnsureAdmin(ctx, "admin@bank.test", "bootstrap-pass"))
	require.NoError(t, env.svc.EnsureAdmin(ctx, "admin@bank.test", "ignored-now"))
	require.NoError(t, env.svc.EnsureAdmin(ctx, "", ""))

	user, err := env.store.FindUserByEmail(ctx, "admin@bank.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, _, err = env.svc.Login(ctx, "admin@bank.test", "bootstrap-pass")
	assert.NoError(t, err)
}
