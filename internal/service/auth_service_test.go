package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

const testSecret = "test-secret"

func setupAuthService(t *testing.T) (*gorm.DB, AuthService) {
	t.Helper()

	db := newTestDB(t, "auth")
	svc := NewAuthService(repository.NewUserRepository(db), newTestValidator(), AuthConfig{
		Secret:     testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop())
	svc.(*authService).now = func() time.Time { return time.Now().UTC() }

	return db, svc
}

func TestAuthRegisterAndLogin(t *testing.T) {
	db, svc := setupAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{Username: " alice ", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "alice", registered.User.Username)
	require.Equal(t, models.UserRoleUser, registered.User.Role)
	require.NotEmpty(t, registered.Token)

	var stored models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&stored).Error)
	require.NotEqual(t, "secret1", stored.PasswordHash)

	loggedIn, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, loggedIn.User.IsOnline)
	require.NotNil(t, loggedIn.User.LastActivityAt)

	token, err := jwt.Parse(loggedIn.Token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, models.UserRoleUser, claims["role"])
	require.NotEmpty(t, claims["sub"])
}

func TestAuthRejectsDuplicateUsername(t *testing.T) {
	_, svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, dto.RegisterRequest{Username: "alice", Password: "another"})
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.ErrorIs(t, err, ErrConflict)
}

func TestAuthWrongPassword(t *testing.T) {
	_, svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "nobody", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthSuspendedUserCannotLogin(t *testing.T) {
	db, svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "alice").Update("status", models.UserStatusSuspended).Error)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "secret1"})
	require.ErrorIs(t, err, ErrAccountSuspended)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthEnsureAdminIsIdempotent(t *testing.T) {
	db, svc := setupAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.UserRoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	require.Equal(t, "root", admins[0].Username)
}
