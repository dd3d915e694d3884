package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/config"
	"github.com/gifttech/academy-api/internal/handler"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
	"github.com/gifttech/academy-api/internal/router"
	"github.com/gifttech/academy-api/internal/service"
)

const testSecret = "handler-test-secret"

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

func setupTestApp(t *testing.T) testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.CourseProgress{}, &models.ActivityLog{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	catalogService := service.NewCatalogService(courseRepo, validate, nil, time.Minute, logger)
	enrollmentService := service.NewEnrollmentService(
		courseRepo, userRepo, enrollmentRepo, progressRepo,
		activityService, validate, nil, time.Minute, logger,
	)
	userService := service.NewUserService(userRepo, validate, logger)
	authService := service.NewAuthService(userRepo, validate, testSecret, time.Hour, logger)

	app := fiber.New()
	cfg := config.Config{AppName: "Test", JWTSecret: testSecret, LoginRateLimit: 100, LoginRateWindow: time.Minute}
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger),
		CourseHandler:   handler.NewCourseHandler(catalogService, enrollmentService, logger),
		UserHandler:     handler.NewUserHandler(userService, enrollmentService, logger),
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
	})

	return testApp{app: app, db: db}
}

func (ta testApp) createUser(t *testing.T, name, email, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(t, ta.db.Create(&user).Error)
	return user
}

func (ta testApp) createCourse(t *testing.T, title string, lessonCount int) models.Course {
	t.Helper()
	lessons := make([]models.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessons = append(lessons, models.Lesson{Title: fmt.Sprintf("Lesson %d", i+1), Content: "body", Order: i + 1})
	}
	course := models.Course{
		Title: title, Description: "a course about things", Emoji: "📚",
		Category: "programming", Difficulty: "beginner", Duration: 4, Instructor: "Grace",
		Lessons: lessons,
	}
	require.NoError(t, ta.db.Create(&course).Error)
	return course
}

func signToken(t *testing.T, user models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
