package handler_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
)

func TestAuthRoutesRegisterLoginMe(t *testing.T) {
	ta := setupTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(
		`{"name":"Ada","email":"ada@example.com","password":"hunter22"}`,
	))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var registerResp struct {
		Success bool             `json:"success"`
		Data    dto.AuthResponse `json:"data"`
	}
	decodeResponse(t, resp, &registerResp)
	require.True(t, registerResp.Success)
	require.NotEmpty(t, registerResp.Data.Token)
	require.Equal(t, models.RoleStudent, registerResp.Data.User.Role)

	req = httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(
		`{"email":"ada@example.com","password":"hunter22"}`,
	))
	req.Header.Set("Content-Type", "application/json")
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var loginResp struct {
		Data dto.AuthResponse `json:"data"`
	}
	decodeResponse(t, resp, &loginResp)

	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Data.Token)
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var meResp struct {
		Data dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &meResp)
	require.Equal(t, "ada@example.com", meResp.Data.Email)
}

func TestAuthRoutesRejectBadCredentials(t *testing.T) {
	ta := setupTestApp(t)
	ta.createUser(t, "Ada", "ada@example.com", models.RoleStudent)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(
		`{"email":"ada@example.com","password":"wrong"}`,
	))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = ta.app.Test(httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRoutesValidatePayload(t *testing.T) {
	ta := setupTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(
		`{"name":"A","email":"not-an-email","password":"x"}`,
	))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
