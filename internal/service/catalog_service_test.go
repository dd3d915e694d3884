package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

func setupCatalogService(t *testing.T, withCache bool) (*gorm.DB, CatalogService) {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}))

	var redisClient *redis.Client
	if withCache {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	service := NewCatalogService(repository.NewCourseRepository(db), validate, redisClient, time.Minute, zerolog.Nop())

	return db, service
}

func validCreateRequest(title string) dto.CourseCreateRequest {
	return dto.CourseCreateRequest{
		Title:       title,
		Description: "Learn something genuinely useful",
		Emoji:       "🤖",
		Category:    "programming",
		Difficulty:  "beginner",
		Duration:    6,
		Instructor:  "Grace",
		Tags:        []string{"GO", "go", "basics"},
		Lessons: []dto.LessonPayload{
			{Title: "Hello", Content: "<p>Welcome</p><script>alert(1)</script>"},
			{Title: "Types", Content: "Static typing", Order: 5},
		},
	}
}

func TestCatalogServiceCreateDerivesSlugAndLessonIDs(t *testing.T) {
	_, service := setupCatalogService(t, false)

	course, err := service.Create(context.Background(), validCreateRequest("Intro to A.I!!"))
	require.NoError(t, err)
	require.Equal(t, "intro-to-a-i", course.Slug)
	require.Len(t, course.Lessons, 2)
	require.NotEmpty(t, course.Lessons[0].ID)
	require.NotEmpty(t, course.Lessons[1].ID)
	require.NotEqual(t, course.Lessons[0].ID, course.Lessons[1].ID)
	// Order defaults to position when not supplied.
	require.Equal(t, 1, course.Lessons[0].Order)
	require.Equal(t, 5, course.Lessons[1].Order)
	// Script tags never survive sanitization.
	require.NotContains(t, course.Lessons[0].Content, "<script>")
	// Duplicate tags collapse.
	require.Equal(t, []string{"go", "basics"}, course.Tags)
}

func TestCatalogServiceCreateRejectsDuplicateSlug(t *testing.T) {
	_, service := setupCatalogService(t, false)

	_, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	_, err = service.Create(context.Background(), validCreateRequest("Intro   to...Go"))
	require.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestCatalogServiceCreateValidatesCategory(t *testing.T) {
	_, service := setupCatalogService(t, false)

	req := validCreateRequest("Cooking 101")
	req.Category = "cooking"
	_, err := service.Create(context.Background(), req)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestCatalogServiceListCachesAnonymousPages(t *testing.T) {
	_, service := setupCatalogService(t, true)

	_, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	result, err := service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	require.Len(t, result.Items, 1)
	require.Nil(t, result.Items[0].IsEnrolled)

	cached, err := service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
}

func TestCatalogServiceWritesInvalidateAnonymousCache(t *testing.T) {
	_, service := setupCatalogService(t, true)

	created, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	// Prime the anonymous cache.
	result, err := service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	cached, err := service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)

	// A soft-delete must not leave the course visible on cached pages.
	require.NoError(t, service.SoftDelete(context.Background(), created.ID))

	result, err = service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	require.Empty(t, result.Items)

	// Updates bump the cache version too.
	_, err = service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	second, err := service.Create(context.Background(), validCreateRequest("Advanced Go"))
	require.NoError(t, err)
	newTitle := "Advanced Go Patterns"
	_, err = service.Update(context.Background(), second.ID, dto.CourseUpdateRequest{Title: &newTitle})
	require.NoError(t, err)

	result, err = service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	require.Len(t, result.Items, 1)
	require.Equal(t, "Advanced Go Patterns", result.Items[0].Title)
}

func TestCatalogServiceListFlagsEnrollmentForCallers(t *testing.T) {
	db, service := setupCatalogService(t, true)

	created, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO course_enrollments (course_id, user_id) VALUES (?, ?)",
		created.ID, user.ID,
	).Error)

	result, err := service.List(context.Background(), dto.CourseListRequest{}, user.ID)
	require.NoError(t, err)
	require.False(t, result.CacheHit)
	require.NotNil(t, result.Items[0].IsEnrolled)
	require.True(t, *result.Items[0].IsEnrolled)
	require.Equal(t, 1, result.Items[0].EnrolledCount)
}

func TestCatalogServiceSoftDeleteHidesCourse(t *testing.T) {
	_, service := setupCatalogService(t, false)

	created, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	require.NoError(t, service.SoftDelete(context.Background(), created.ID))
	// Soft-deleting an already hidden course is a no-op, not an error.
	require.NoError(t, service.SoftDelete(context.Background(), created.ID))

	_, err = service.GetByID(context.Background(), created.ID, 0, false)
	require.ErrorIs(t, err, ErrCourseNotFound)

	// Admin reads still resolve the hidden row.
	course, err := service.GetByID(context.Background(), created.ID, 0, true)
	require.NoError(t, err)
	require.False(t, course.IsActive)

	result, err := service.List(context.Background(), dto.CourseListRequest{}, 0)
	require.NoError(t, err)
	require.Empty(t, result.Items)
}

func TestCatalogServiceGetBySlug(t *testing.T) {
	_, service := setupCatalogService(t, false)

	created, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	course, err := service.GetBySlug(context.Background(), "Intro-To-Go", 0)
	require.NoError(t, err)
	require.Equal(t, created.ID, course.ID)

	_, err = service.GetBySlug(context.Background(), "missing", 0)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCatalogServiceUpdateSlugCollision(t *testing.T) {
	_, service := setupCatalogService(t, false)

	first, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)
	second, err := service.Create(context.Background(), validCreateRequest("Advanced Go"))
	require.NoError(t, err)

	slug := first.Slug
	_, err = service.Update(context.Background(), second.ID, dto.CourseUpdateRequest{Slug: &slug})
	require.ErrorIs(t, err, ErrDuplicateSlug)

	newTitle := "Advanced Go Patterns"
	updated, err := service.Update(context.Background(), second.ID, dto.CourseUpdateRequest{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, "Advanced Go Patterns", updated.Title)
	// The slug stays stable across title edits.
	require.Equal(t, second.Slug, updated.Slug)
}

func TestCatalogServiceListFilters(t *testing.T) {
	_, service := setupCatalogService(t, false)

	_, err := service.Create(context.Background(), validCreateRequest("Intro to Go"))
	require.NoError(t, err)

	req := validCreateRequest("Robot Arms")
	req.Category = "robotics"
	req.Difficulty = "advanced"
	_, err = service.Create(context.Background(), req)
	require.NoError(t, err)

	result, err := service.List(context.Background(), dto.CourseListRequest{Category: "robotics"}, 0)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "robot-arms", result.Items[0].Slug)

	result, err = service.List(context.Background(), dto.CourseListRequest{Search: "intro"}, 0)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "intro-to-go", result.Items[0].Slug)

	result, err = service.List(context.Background(), dto.CourseListRequest{Difficulty: "intermediate"}, 0)
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.EqualValues(t, 0, result.Pagination.TotalItems)
}
