package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService orchestrates content seeding operations.
type SeedService interface {
	SeedCourses(ctx context.Context, token string, items []models.Course) (int64, error)
	SeedAdmin(ctx context.Context, token, name, email, password string) (models.User, error)
}

type seedService struct {
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	enabled    bool
	token      string
	logger     zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(courseRepo repository.CourseRepository, userRepo repository.UserRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		courseRepo: courseRepo,
		userRepo:   userRepo,
		enabled:    enabled,
		token:      token,
		logger:     logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedCourses(ctx context.Context, token string, items []models.Course) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	for i := range items {
		if items[i].Slug == "" {
			items[i].Slug = models.Slugify(items[i].Title)
		}
	}

	affected, err := s.courseRepo.UpsertBySlug(ctx, items)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("affected", affected).Msg("courses seeded")
	return affected, nil
}

func (s *seedService) SeedAdmin(ctx context.Context, token, name, email, password string) (models.User, error) {
	if !s.enabled {
		return models.User{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return models.User{}, ErrSeedUnauthorized
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			existing.Role = models.RoleAdmin
			if err := s.userRepo.Update(ctx, &existing); err != nil {
				return models.User{}, err
			}
		}
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	admin := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, &admin); err != nil {
		return models.User{}, err
	}

	s.logger.Info().Str("email", admin.Email).Msg("admin seeded")
	return admin, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return constantTimeEqual(expected, strings.TrimSpace(token))
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	mismatch := byte(0)
	for i := 0; i < len(a); i++ {
		mismatch |= a[i] ^ b[i]
	}
	return mismatch == 0
}
