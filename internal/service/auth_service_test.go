package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

const testSecret = "test-secret"

func setupAuthService(t *testing.T) AuthService {
	t.Helper()

	dsn := fmt.Sprintf("file:auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewAuthService(repository.NewUserRepository(db), validate, testSecret, time.Hour, zerolog.Nop())
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	service := setupAuthService(t)

	registered, err := service.Register(context.Background(), dto.RegisterRequest{
		Name:     "Ada",
		Email:    "Ada@Example.COM",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)
	require.Equal(t, models.RoleStudent, registered.User.Role)
	// Emails normalise to lowercase on write.
	require.Equal(t, "ada@example.com", registered.User.Email)

	token, err := jwt.Parse(registered.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, models.RoleStudent, claims["role"])

	logged, err := service.Login(context.Background(), dto.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, logged.User.ID)

	me, err := service.Me(context.Background(), registered.User.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", me.Name)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	service := setupAuthService(t)

	_, err := service.Register(context.Background(), dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), dto.RegisterRequest{Name: "Eve", Email: "ADA@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	service := setupAuthService(t)

	_, err := service.Register(context.Background(), dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), dto.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceRegisterValidatesPasswordLength(t *testing.T) {
	service := setupAuthService(t)

	_, err := service.Register(context.Background(), dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "short"})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}
