package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

func setupUserService(t *testing.T) (*gorm.DB, UserService) {
	t.Helper()

	dsn := fmt.Sprintf("file:user_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.CourseProgress{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	return db, NewUserService(repository.NewUserRepository(db), validate, zerolog.Nop())
}

func seedUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestUserServiceGet(t *testing.T) {
	db, service := setupUserService(t)
	user := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)

	found, err := service.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", found.Name)
	require.NotNil(t, found.EnrolledCourses)

	_, err = service.Get(context.Background(), 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	db, service := setupUserService(t)
	user := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)

	name := "Ada Lovelace"
	avatar := "https://cdn.example.com/ada.png"
	updated, err := service.Update(context.Background(), user.ID, models.RoleStudent, dto.UserUpdateRequest{
		Name:   &name,
		Avatar: &avatar,
	})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", updated.Name)
	require.Equal(t, avatar, updated.Avatar)
}

func TestUserServiceUpdateRoleRequiresAdmin(t *testing.T) {
	db, service := setupUserService(t)
	user := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)

	role := models.RoleAdmin
	_, err := service.Update(context.Background(), user.ID, models.RoleStudent, dto.UserUpdateRequest{Role: &role})
	require.ErrorIs(t, err, ErrRoleChangeForbidden)

	updated, err := service.Update(context.Background(), user.ID, models.RoleAdmin, dto.UserUpdateRequest{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, updated.Role)
}

func TestUserServiceUpdateEmailCollision(t *testing.T) {
	db, service := setupUserService(t)
	user := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)
	seedUser(t, db, "Eve", "eve@example.com", models.RoleStudent)

	email := "EVE@example.com"
	_, err := service.Update(context.Background(), user.ID, models.RoleStudent, dto.UserUpdateRequest{Email: &email})
	require.ErrorIs(t, err, ErrEmailTaken)

	// Re-submitting your own address is a no-op, not a conflict.
	own := "ada@example.com"
	updated, err := service.Update(context.Background(), user.ID, models.RoleStudent, dto.UserUpdateRequest{Email: &own})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", updated.Email)
}

func TestUserServiceDelete(t *testing.T) {
	db, service := setupUserService(t)
	admin := seedUser(t, db, "Root", "root@example.com", models.RoleAdmin)
	user := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)

	require.ErrorIs(t, service.Delete(context.Background(), admin.ID, admin.ID), ErrSelfDelete)
	require.ErrorIs(t, service.Delete(context.Background(), 9999, admin.ID), ErrUserNotFound)

	course := models.Course{
		Title: "Intro", Description: "a course about things", Emoji: "📚",
		Category: "programming", Difficulty: "beginner", Duration: 1, Instructor: "Grace",
	}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Exec("INSERT INTO course_enrollments (course_id, user_id) VALUES (?, ?)", course.ID, user.ID).Error)
	progress := models.CourseProgress{UserID: user.ID, CourseID: course.ID}
	require.NoError(t, db.Create(&progress).Error)

	require.NoError(t, service.Delete(context.Background(), user.ID, admin.ID))

	_, err := service.Get(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, db.Table("course_enrollments").Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.CourseProgress{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUserServiceListFiltersByRole(t *testing.T) {
	db, service := setupUserService(t)
	seedUser(t, db, "Root", "root@example.com", models.RoleAdmin)
	seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)
	seedUser(t, db, "Eve", "eve@example.com", models.RoleStudent)

	result, err := service.List(context.Background(), dto.UserListRequest{Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.EqualValues(t, 2, result.Pagination.TotalItems)

	result, err = service.List(context.Background(), dto.UserListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.EqualValues(t, 3, result.Pagination.TotalItems)
	require.Equal(t, 2, result.Pagination.TotalPages)
}
