package dto

import (
	"time"

	"github.com/gifttech/academy-api/internal/models"
)

// ProgressUpdateRequest toggles lesson completion. With LessonID empty the
// call only recomputes course completion.
type ProgressUpdateRequest struct {
	LessonID  string `json:"lesson_id" validate:"omitempty,max=64"`
	Completed bool   `json:"completed"`
}

// ProgressRecordResponse serialises a raw per-course progress record.
type ProgressRecordResponse struct {
	CourseID         uint               `json:"course_id"`
	CompletedLessons []string           `json:"completed_lessons"`
	QuizScores       []models.QuizScore `json:"quiz_scores"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ProgressUpdateResult is returned after a progress mutation.
type ProgressUpdateResult struct {
	Progress    ProgressRecordResponse `json:"progress"`
	IsCompleted bool                   `json:"is_completed"`
}

// CourseProgressResponse is one line of the per-course breakdown.
type CourseProgressResponse struct {
	CourseID             uint   `json:"course_id"`
	CourseTitle          string `json:"course_title"`
	CourseSlug           string `json:"course_slug"`
	CompletedLessons     int    `json:"completed_lessons"`
	TotalLessons         int    `json:"total_lessons"`
	CompletionPercentage int    `json:"completion_percentage"`
}

// ProgressSummaryResponse aggregates a user's progress across all enrolled
// courses.
type ProgressSummaryResponse struct {
	TotalEnrolled    int                      `json:"total_enrolled"`
	TotalCompleted   int                      `json:"total_completed"`
	OverallProgress  int                      `json:"overall_progress"`
	CourseProgress   []CourseProgressResponse `json:"course_progress"`
	DetailedProgress []ProgressRecordResponse `json:"detailed_progress"`
	CacheHit         bool                     `json:"cache_hit,omitempty"`
}

// NewProgressRecordResponse maps a progress model to its response form.
func NewProgressRecordResponse(progress models.CourseProgress) ProgressRecordResponse {
	return ProgressRecordResponse{
		CourseID:         progress.CourseID,
		CompletedLessons: append([]string(nil), progress.CompletedLessons...),
		QuizScores:       append([]models.QuizScore(nil), progress.QuizScores...),
		UpdatedAt:        progress.UpdatedAt,
	}
}
