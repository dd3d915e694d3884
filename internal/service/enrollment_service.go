package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/observability"
	"github.com/gifttech/academy-api/internal/repository"
)

var (
	// ErrAlreadyEnrolled indicates the user already holds the membership.
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	// ErrNotEnrolled indicates the user does not hold the membership.
	ErrNotEnrolled = errors.New("not enrolled in this course")
	// ErrPrerequisitesNotMet indicates one or more prerequisite courses are incomplete.
	ErrPrerequisitesNotMet = errors.New("prerequisites not met for this course")
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// EnrollmentService owns the membership relation between users and courses
// and the per-lesson progress that hangs off it.
type EnrollmentService interface {
	Enroll(ctx context.Context, userID, courseID uint) error
	Unenroll(ctx context.Context, userID, courseID uint) error
	RecordProgress(ctx context.Context, userID, courseID uint, payload dto.ProgressUpdateRequest) (dto.ProgressUpdateResult, error)
	ProgressSummary(ctx context.Context, userID uint) (dto.ProgressSummaryResponse, error)
}

type enrollmentService struct {
	courses     repository.CourseRepository
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	progress    repository.ProgressRepository
	activity    ActivityRecorder
	validator   *validator.Validate
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(
	courses repository.CourseRepository,
	users repository.UserRepository,
	enrollments repository.EnrollmentRepository,
	progress repository.ProgressRepository,
	activity ActivityRecorder,
	validate *validator.Validate,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) EnrollmentService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &enrollmentService{
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		progress:    progress,
		activity:    activity,
		validator:   validate,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
		tracer:      otel.Tracer("github.com/gifttech/academy-api/internal/service/enrollment"),
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uint) error {
	ctx, span := s.tracer.Start(ctx, "enrollment.enroll")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("course.id", int64(courseID)),
	)

	course, err := s.courses.GetByID(ctx, courseID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.Enrollments().WithLabelValues("enroll", "not_found").Inc()
			span.SetStatus(codes.Error, "course not found")
			return ErrCourseNotFound
		}
		span.RecordError(err)
		return err
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if enrolled {
		observability.Enrollments().WithLabelValues("enroll", "conflict").Inc()
		span.SetStatus(codes.Error, "already enrolled")
		return ErrAlreadyEnrolled
	}

	// Prerequisite references that no longer resolve still count as unmet:
	// the raw join-table ids are checked against the completed set, so a
	// dangling id can never be satisfied.
	prerequisiteIDs, err := s.courses.PrerequisiteIDs(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(prerequisiteIDs) > 0 {
		completedIDs, err := s.enrollments.CompletedCourseIDs(ctx, userID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		completed := make(map[uint]struct{}, len(completedIDs))
		for _, id := range completedIDs {
			completed[id] = struct{}{}
		}
		for _, prereqID := range prerequisiteIDs {
			if _, ok := completed[prereqID]; !ok {
				observability.Enrollments().WithLabelValues("enroll", "prerequisites").Inc()
				span.SetStatus(codes.Error, "prerequisites not met")
				return ErrPrerequisitesNotMet
			}
		}
	}

	if err := s.enrollments.Enroll(ctx, userID, courseID); err != nil {
		span.RecordError(err)
		return err
	}

	observability.Enrollments().WithLabelValues("enroll", "ok").Inc()
	s.invalidateSummary(ctx, userID)
	s.recordActivity(ctx, userID, models.ActivityCourseEnrolled, course)
	s.logger.Info().Uint("user_id", userID).Uint("course_id", courseID).Msg("user enrolled")

	return nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, userID, courseID uint) error {
	ctx, span := s.tracer.Start(ctx, "enrollment.unenroll")
	defer span.End()

	// Unenroll resolves the course without the active filter so students can
	// leave a course that was soft-deleted after they joined.
	course, err := s.courses.GetByID(ctx, courseID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.Enrollments().WithLabelValues("unenroll", "not_found").Inc()
			return ErrCourseNotFound
		}
		span.RecordError(err)
		return err
	}

	if err := s.enrollments.Unenroll(ctx, userID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.Enrollments().WithLabelValues("unenroll", "conflict").Inc()
			return ErrNotEnrolled
		}
		span.RecordError(err)
		return err
	}

	observability.Enrollments().WithLabelValues("unenroll", "ok").Inc()
	s.invalidateSummary(ctx, userID)
	s.recordActivity(ctx, userID, models.ActivityCourseUnenrolled, course)
	s.logger.Info().Uint("user_id", userID).Uint("course_id", courseID).Msg("user unenrolled")

	return nil
}

func (s *enrollmentService) RecordProgress(ctx context.Context, userID, courseID uint, payload dto.ProgressUpdateRequest) (dto.ProgressUpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "enrollment.record_progress")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.ProgressLatency().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgressUpdateResult{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressUpdateResult{}, ErrCourseNotFound
		}
		span.RecordError(err)
		return dto.ProgressUpdateResult{}, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressUpdateResult{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.ProgressUpdateResult{}, err
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		return dto.ProgressUpdateResult{}, err
	}
	if !enrolled {
		return dto.ProgressUpdateResult{}, ErrNotEnrolled
	}

	progress, err := s.progress.GetOrCreate(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		return dto.ProgressUpdateResult{}, err
	}

	if payload.LessonID != "" {
		if payload.Completed {
			progress.MarkLesson(payload.LessonID)
		} else {
			progress.UnmarkLesson(payload.LessonID)
		}
	}

	// Completion is recomputed on every call, so un-marking a lesson on an
	// otherwise-complete course demotes it again.
	isCompleted := len(course.Lessons) > 0 && len(progress.CompletedLessons) == len(course.Lessons)

	if err := s.progress.SaveWithCompletion(ctx, &progress, isCompleted); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "progress write failed")
		return dto.ProgressUpdateResult{}, err
	}

	observability.ProgressUpdates().Inc()
	s.invalidateSummary(ctx, userID)
	if isCompleted {
		s.recordActivity(ctx, userID, models.ActivityCourseCompleted, course)
	}

	span.SetAttributes(attribute.Bool("progress.completed", isCompleted))

	return dto.ProgressUpdateResult{
		Progress:    dto.NewProgressRecordResponse(progress),
		IsCompleted: isCompleted,
	}, nil
}

func (s *enrollmentService) ProgressSummary(ctx context.Context, userID uint) (dto.ProgressSummaryResponse, error) {
	if cached, ok := s.fetchSummaryCache(ctx, userID); ok {
		cached.CacheHit = true
		return cached, nil
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressSummaryResponse{}, ErrUserNotFound
		}
		return dto.ProgressSummaryResponse{}, err
	}

	enrolledCourses, err := s.enrollments.EnrolledCourses(ctx, userID)
	if err != nil {
		return dto.ProgressSummaryResponse{}, err
	}

	completedIDs, err := s.enrollments.CompletedCourseIDs(ctx, userID)
	if err != nil {
		return dto.ProgressSummaryResponse{}, err
	}

	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return dto.ProgressSummaryResponse{}, err
	}

	recordsByCourse := make(map[uint]models.CourseProgress, len(records))
	for _, record := range records {
		recordsByCourse[record.CourseID] = record
	}

	summary := dto.ProgressSummaryResponse{
		TotalEnrolled:    len(enrolledCourses),
		TotalCompleted:   len(completedIDs),
		CourseProgress:   make([]dto.CourseProgressResponse, 0, len(enrolledCourses)),
		DetailedProgress: make([]dto.ProgressRecordResponse, 0, len(records)),
	}

	for _, record := range records {
		summary.DetailedProgress = append(summary.DetailedProgress, dto.NewProgressRecordResponse(record))
	}

	if len(enrolledCourses) > 0 {
		var totalProgress float64
		for _, course := range enrolledCourses {
			completedLessons := 0
			if record, ok := recordsByCourse[course.ID]; ok {
				completedLessons = len(record.CompletedLessons)
			}

			totalLessons := len(course.Lessons)
			var completion float64
			if totalLessons > 0 {
				completion = float64(completedLessons) / float64(totalLessons) * 100
			}

			summary.CourseProgress = append(summary.CourseProgress, dto.CourseProgressResponse{
				CourseID:             course.ID,
				CourseTitle:          course.Title,
				CourseSlug:           course.Slug,
				CompletedLessons:     completedLessons,
				TotalLessons:         totalLessons,
				CompletionPercentage: roundPercent(completion),
			})

			totalProgress += completion
		}

		// The overall figure averages the unrounded per-course percentages,
		// then rounds once.
		summary.OverallProgress = roundPercent(totalProgress / float64(len(enrolledCourses)))
	}

	s.writeSummaryCache(ctx, userID, summary)

	return summary, nil
}

func (s *enrollmentService) recordActivity(ctx context.Context, userID uint, action string, course models.Course) {
	if s.activity == nil {
		return
	}

	courseID := course.ID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    userID,
		ActorRole:  models.RoleStudent,
		Action:     action,
		EntityType: "course",
		EntityID:   &courseID,
		Metadata:   map[string]interface{}{"slug": course.Slug, "title": course.Title},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *enrollmentService) summaryCacheKey(userID uint) string {
	return fmt.Sprintf("progress:v1:%d", userID)
}

func (s *enrollmentService) fetchSummaryCache(ctx context.Context, userID uint) (dto.ProgressSummaryResponse, bool) {
	if s.cache == nil {
		return dto.ProgressSummaryResponse{}, false
	}
	payload, err := s.cache.Get(ctx, s.summaryCacheKey(userID)).Result()
	if err != nil {
		return dto.ProgressSummaryResponse{}, false
	}

	var summary dto.ProgressSummaryResponse
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode progress cache")
		return dto.ProgressSummaryResponse{}, false
	}
	return summary, true
}

func (s *enrollmentService) writeSummaryCache(ctx context.Context, userID uint, summary dto.ProgressSummaryResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode progress cache")
		return
	}
	if err := s.cache.Set(ctx, s.summaryCacheKey(userID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store progress cache")
	}
}

func (s *enrollmentService) invalidateSummary(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.summaryCacheKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate progress cache")
	}
}
