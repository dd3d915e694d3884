package handler_test

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
)

func TestUserRoutesSelfOrAdminAccess(t *testing.T) {
	ta := setupTestApp(t)
	ada := ta.createUser(t, "Ada", "ada@example.com", models.RoleStudent)
	eve := ta.createUser(t, "Eve", "eve@example.com", models.RoleStudent)
	admin := ta.createUser(t, "Root", "root@example.com", models.RoleAdmin)

	// Students read their own profile but nobody else's.
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/v1/users/%d", ada.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, ada))
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/v1/users/%d", ada.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, eve))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/v1/users/%d", ada.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Listing is admin only.
	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, ada))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserRoutesRoleChangeGating(t *testing.T) {
	ta := setupTestApp(t)
	ada := ta.createUser(t, "Ada", "ada@example.com", models.RoleStudent)
	admin := ta.createUser(t, "Root", "root@example.com", models.RoleAdmin)

	body := `{"role":"admin"}`
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/v1/users/%d", ada.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, ada))
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("PUT", fmt.Sprintf("/api/v1/users/%d", ada.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updateResp struct {
		Data dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &updateResp)
	require.Equal(t, models.RoleAdmin, updateResp.Data.Role)
}

func TestUserRoutesDeleteGuards(t *testing.T) {
	ta := setupTestApp(t)
	ada := ta.createUser(t, "Ada", "ada@example.com", models.RoleStudent)
	admin := ta.createUser(t, "Root", "root@example.com", models.RoleAdmin)

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", admin.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", admin.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, ada))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/users/%d", ada.ID), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserRoutesProgressFlow(t *testing.T) {
	ta := setupTestApp(t)
	ada := ta.createUser(t, "Ada", "ada@example.com", models.RoleStudent)
	course := ta.createCourse(t, "Intro to Go", 2)
	token := signToken(t, ada)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/courses/%d/enroll", course.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var loaded models.Course
	require.NoError(t, ta.db.First(&loaded, course.ID).Error)

	progressPath := fmt.Sprintf("/api/v1/users/%d/progress/%d", ada.ID, course.ID)
	body := fmt.Sprintf(`{"lesson_id":%q,"completed":true}`, loaded.Lessons[0].ID)
	req = httptest.NewRequest("PUT", progressPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updateResp struct {
		Data dto.ProgressUpdateResult `json:"data"`
	}
	decodeResponse(t, resp, &updateResp)
	require.False(t, updateResp.Data.IsCompleted)
	require.Len(t, updateResp.Data.Progress.CompletedLessons, 1)

	// POST is accepted as an alias for PUT on the progress route.
	body = fmt.Sprintf(`{"lesson_id":%q,"completed":true}`, loaded.Lessons[1].ID)
	req = httptest.NewRequest("POST", progressPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	decodeResponse(t, resp, &updateResp)
	require.True(t, updateResp.Data.IsCompleted)

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/v1/users/%d/progress", ada.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summaryResp struct {
		Data dto.ProgressSummaryResponse `json:"data"`
	}
	decodeResponse(t, resp, &summaryResp)
	require.Equal(t, 1, summaryResp.Data.TotalEnrolled)
	require.Equal(t, 1, summaryResp.Data.TotalCompleted)
	require.Equal(t, 100, summaryResp.Data.OverallProgress)

	// Nobody can write another student's progress.
	eve := ta.createUser(t, "Eve", "eve@example.com", models.RoleStudent)
	req = httptest.NewRequest("PUT", progressPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, eve))
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
