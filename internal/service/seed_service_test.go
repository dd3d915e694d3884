package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

func setupSeedService(t *testing.T, enabled bool, token string) (*gorm.DB, SeedService) {
	t.Helper()

	dsn := fmt.Sprintf("file:seed_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}))

	service := NewSeedService(
		repository.NewCourseRepository(db),
		repository.NewUserRepository(db),
		enabled, token, zerolog.Nop(),
	)
	return db, service
}

func seedCourseItems() []models.Course {
	return []models.Course{{
		Title:       "Intro to Go",
		Description: "a course about things",
		Emoji:       "📚",
		Category:    "programming",
		Difficulty:  "beginner",
		Duration:    4,
		Instructor:  "Grace",
	}}
}

func TestSeedServiceGates(t *testing.T) {
	_, disabled := setupSeedService(t, false, "sesame")
	_, err := disabled.SeedCourses(context.Background(), "sesame", seedCourseItems())
	require.ErrorIs(t, err, ErrSeedDisabled)

	_, service := setupSeedService(t, true, "sesame")
	_, err = service.SeedCourses(context.Background(), "wrong", seedCourseItems())
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	// A blank configured token never authorises anything.
	_, blank := setupSeedService(t, true, "")
	_, err = blank.SeedCourses(context.Background(), "", seedCourseItems())
	require.ErrorIs(t, err, ErrSeedUnauthorized)
}

func TestSeedServiceCoursesUpsertBySlug(t *testing.T) {
	db, service := setupSeedService(t, true, "sesame")

	affected, err := service.SeedCourses(context.Background(), "sesame", seedCourseItems())
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	// Re-seeding the same slug updates in place instead of duplicating.
	items := seedCourseItems()
	items[0].Description = "a refreshed description"
	affected, err = service.SeedCourses(context.Background(), "sesame", items)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	var count int64
	require.NoError(t, db.Model(&models.Course{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var course models.Course
	require.NoError(t, db.Where("slug = ?", "intro-to-go").First(&course).Error)
	require.Equal(t, "a refreshed description", course.Description)
}

func TestSeedServiceAdmin(t *testing.T) {
	db, service := setupSeedService(t, true, "sesame")

	admin, err := service.SeedAdmin(context.Background(), "sesame", "Root", "root@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.NotEmpty(t, admin.PasswordHash)

	// Seeding an existing account promotes it rather than duplicating.
	existing := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&existing).Error)

	promoted, err := service.SeedAdmin(context.Background(), "sesame", "Ada", "ada@example.com", "ignored")
	require.NoError(t, err)
	require.Equal(t, existing.ID, promoted.ID)
	require.Equal(t, models.RoleAdmin, promoted.Role)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}
