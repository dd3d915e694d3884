package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/observability"
	"github.com/gifttech/academy-api/internal/repository"
)

// catalogVersionKey names the redis counter bumped on every catalog write so
// that cached anonymous pages from before the write stop matching.
const catalogVersionKey = "catalog:ver"

var (
	// ErrCourseNotFound indicates the requested course does not exist or is inactive.
	ErrCourseNotFound = errors.New("course not found")
	// ErrDuplicateSlug indicates a course with the same slug already exists.
	ErrDuplicateSlug = errors.New("a course with this title already exists")
)

// CatalogService exposes course catalog use cases.
type CatalogService interface {
	List(ctx context.Context, req dto.CourseListRequest, callerID uint) (dto.CourseListResult, error)
	GetByID(ctx context.Context, id uint, callerID uint, includeInactive bool) (dto.CourseResponse, error)
	GetBySlug(ctx context.Context, slug string, callerID uint) (dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	SoftDelete(ctx context.Context, id uint) error
}

type catalogService struct {
	repo      repository.CourseRepository
	validator *validator.Validate
	cache     *redis.Client
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo repository.CourseRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CatalogService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &catalogService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) List(ctx context.Context, req dto.CourseListRequest, callerID uint) (dto.CourseListResult, error) {
	filter := repository.CourseFilter{
		Category:   strings.ToLower(strings.TrimSpace(req.Category)),
		Difficulty: strings.ToLower(strings.TrimSpace(req.Difficulty)),
		Search:     strings.TrimSpace(req.Search),
		Sort:       strings.TrimSpace(req.Sort),
		Page:       normalizePage(req.Page),
		PageSize:   clampPageSize(req.PageSize),
	}

	// Anonymous pages are cacheable; authenticated responses carry the
	// derived enrollment flag and go straight to the store.
	if callerID == 0 {
		if cached, ok := s.fetchCache(ctx, filter); ok {
			cached.CacheHit = true
			observability.CatalogRequests().WithLabelValues("hit").Inc()
			return cached, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		observability.CatalogRequests().WithLabelValues("error").Inc()
		return dto.CourseListResult{}, err
	}

	items := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, s.toResponse(course, callerID))
	}

	result := dto.CourseListResult{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, filter.PageSize),
		},
	}

	if callerID == 0 {
		s.writeCache(ctx, filter, result)
	}
	observability.CatalogRequests().WithLabelValues("miss").Inc()

	return result, nil
}

func (s *catalogService) GetByID(ctx context.Context, id uint, callerID uint, includeInactive bool) (dto.CourseResponse, error) {
	course, err := s.repo.GetByID(ctx, id, includeInactive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return s.toResponse(course, callerID), nil
}

func (s *catalogService) GetBySlug(ctx context.Context, slug string, callerID uint) (dto.CourseResponse, error) {
	course, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return s.toResponse(course, callerID), nil
}

func (s *catalogService) Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	slug := strings.ToLower(strings.TrimSpace(payload.Slug))
	if slug == "" {
		slug = models.Slugify(payload.Title)
	}

	exists, err := s.repo.SlugExists(ctx, slug, 0)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	if exists {
		return dto.CourseResponse{}, ErrDuplicateSlug
	}

	course := models.Course{
		Slug:        slug,
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		Emoji:       strings.TrimSpace(payload.Emoji),
		Category:    payload.Category,
		Difficulty:  payload.Difficulty,
		Duration:    payload.Duration,
		Instructor:  strings.TrimSpace(payload.Instructor),
		Thumbnail:   payload.Thumbnail,
		Tags:        sanitizeTags(payload.Tags),
		Lessons:     lessonsFromPayload(payload.Lessons),
		IsActive:    true,
	}

	if err := s.repo.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	if len(payload.Prerequisites) > 0 {
		if err := s.repo.ReplacePrerequisites(ctx, course.ID, payload.Prerequisites); err != nil {
			return dto.CourseResponse{}, err
		}
	}

	s.invalidateCatalog(ctx)
	s.logger.Info().Uint("course_id", course.ID).Str("slug", course.Slug).Msg("course created")

	return s.GetByID(ctx, course.ID, 0, true)
}

func (s *catalogService) Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if payload.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*payload.Slug))
		if slug != course.Slug {
			exists, err := s.repo.SlugExists(ctx, slug, course.ID)
			if err != nil {
				return dto.CourseResponse{}, err
			}
			if exists {
				return dto.CourseResponse{}, ErrDuplicateSlug
			}
			course.Slug = slug
		}
	}

	if payload.Title != nil {
		course.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		course.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Emoji != nil {
		course.Emoji = strings.TrimSpace(*payload.Emoji)
	}
	if payload.Category != nil {
		course.Category = *payload.Category
	}
	if payload.Difficulty != nil {
		course.Difficulty = *payload.Difficulty
	}
	if payload.Duration != nil {
		course.Duration = *payload.Duration
	}
	if payload.Instructor != nil {
		course.Instructor = strings.TrimSpace(*payload.Instructor)
	}
	if payload.Thumbnail != nil {
		course.Thumbnail = *payload.Thumbnail
	}
	if payload.Tags != nil {
		course.Tags = sanitizeTags(*payload.Tags)
	}
	if payload.Lessons != nil {
		course.Lessons = lessonsFromPayload(*payload.Lessons)
	}

	if err := s.repo.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.Prerequisites != nil {
		if err := s.repo.ReplacePrerequisites(ctx, course.ID, *payload.Prerequisites); err != nil {
			return dto.CourseResponse{}, err
		}
	}

	s.invalidateCatalog(ctx)
	s.logger.Info().Uint("course_id", course.ID).Msg("course updated")

	return s.GetByID(ctx, course.ID, 0, true)
}

func (s *catalogService) SoftDelete(ctx context.Context, id uint) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info().Uint("course_id", id).Msg("course soft-deleted")
	return nil
}

func (s *catalogService) toResponse(course models.Course, callerID uint) dto.CourseResponse {
	response := dto.NewCourseResponse(course)

	if callerID != 0 {
		enrolled := false
		for _, student := range course.EnrolledStudents {
			if student.ID == callerID {
				enrolled = true
				break
			}
		}
		response.IsEnrolled = &enrolled
	}

	return response
}

func (s *catalogService) fetchCache(ctx context.Context, filter repository.CourseFilter) (dto.CourseListResult, bool) {
	if s.cache == nil {
		return dto.CourseListResult{}, false
	}
	payload, err := s.cache.Get(ctx, s.cacheKey(ctx, filter)).Result()
	if err != nil {
		return dto.CourseListResult{}, false
	}

	var result dto.CourseListResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode catalog cache")
		return dto.CourseListResult{}, false
	}
	return result, true
}

func (s *catalogService) writeCache(ctx context.Context, filter repository.CourseFilter, result dto.CourseListResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode catalog cache")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(ctx, filter), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store catalog cache")
	}
}

func (s *catalogService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, catalogVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

func (s *catalogService) cacheKey(ctx context.Context, filter repository.CourseFilter) string {
	version := "0"
	if v, err := s.cache.Get(ctx, catalogVersionKey).Result(); err == nil {
		version = v
	}
	return strings.Join([]string{
		"catalog",
		version,
		filter.Category,
		filter.Difficulty,
		filter.Search,
		filter.Sort,
		strconv.Itoa(filter.Page),
		strconv.Itoa(filter.PageSize),
	}, ":")
}

func lessonsFromPayload(payloads []dto.LessonPayload) []models.Lesson {
	lessons := make([]models.Lesson, 0, len(payloads))
	for i, payload := range payloads {
		order := payload.Order
		if order <= 0 {
			order = i + 1
		}

		lesson := models.Lesson{
			Title:    strings.TrimSpace(payload.Title),
			Content:  payload.Content,
			Order:    order,
			VideoURL: payload.VideoURL,
		}

		for _, resource := range payload.Resources {
			lesson.Resources = append(lesson.Resources, models.Resource{
				Title: resource.Title,
				URL:   resource.URL,
				Type:  resource.Type,
			})
		}

		if payload.Quiz != nil {
			quiz := models.Quiz{PassingScore: payload.Quiz.PassingScore}
			for _, question := range payload.Quiz.Questions {
				quiz.Questions = append(quiz.Questions, models.QuizQuestion{
					Question:      question.Question,
					Options:       question.Options,
					CorrectAnswer: question.CorrectAnswer,
					Explanation:   question.Explanation,
				})
			}
			lesson.Quiz = &quiz
		}

		lessons = append(lessons, lesson)
	}
	return lessons
}
