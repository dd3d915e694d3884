package dto

import (
	"time"

	"github.com/gifttech/academy-api/internal/models"
)

// CourseListRequest captures catalog query params.
type CourseListRequest struct {
	Category   string
	Difficulty string
	Search     string
	Sort       string
	Page       int
	PageSize   int
}

// CourseSummary is the compact form used when a course is referenced from
// another entity (prerequisites, user enrollment lists).
type CourseSummary struct {
	ID         uint   `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Emoji      string `json:"emoji,omitempty"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// StudentSummary is the compact form of an enrolled student.
type StudentSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// LessonResponse serialises a lesson within a course payload.
type LessonResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Order     int               `json:"order"`
	VideoURL  string            `json:"video_url,omitempty"`
	Resources []models.Resource `json:"resources,omitempty"`
	Quiz      *models.Quiz      `json:"quiz,omitempty"`
}

// CourseResponse is the full course payload returned by the catalog. The
// IsEnrolled flag is derived on the read path for authenticated callers and
// is never persisted.
type CourseResponse struct {
	ID               uint             `json:"id"`
	Slug             string           `json:"slug"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Emoji            string           `json:"emoji"`
	Category         string           `json:"category"`
	Difficulty       string           `json:"difficulty"`
	Duration         int              `json:"duration"`
	Instructor       string           `json:"instructor"`
	Thumbnail        string           `json:"thumbnail,omitempty"`
	Tags             []string         `json:"tags"`
	Lessons          []LessonResponse `json:"lessons"`
	LessonCount      int              `json:"lesson_count"`
	Prerequisites    []CourseSummary  `json:"prerequisites"`
	EnrolledStudents []StudentSummary `json:"enrolled_students"`
	EnrolledCount    int              `json:"enrolled_count"`
	IsEnrolled       *bool            `json:"is_enrolled,omitempty"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// CourseListResult wraps a paginated catalog page.
type CourseListResult struct {
	Items      []CourseResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
	CacheHit   bool             `json:"cache_hit,omitempty"`
}

// ResourcePayload carries lesson resource input.
type ResourcePayload struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
	Type  string `json:"type" validate:"required,oneof=document video link code"`
}

// QuizQuestionPayload carries quiz question input.
type QuizQuestionPayload struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer int      `json:"correct_answer" validate:"min=0"`
	Explanation   string   `json:"explanation"`
}

// QuizPayload carries quiz input for a lesson.
type QuizPayload struct {
	Questions    []QuizQuestionPayload `json:"questions" validate:"dive"`
	PassingScore int                   `json:"passing_score" validate:"omitempty,min=1,max=100"`
}

// LessonPayload carries lesson input for course create/update.
type LessonPayload struct {
	Title     string            `json:"title" validate:"required"`
	Content   string            `json:"content" validate:"required"`
	Order     int               `json:"order" validate:"min=0"`
	VideoURL  string            `json:"video_url" validate:"omitempty,url"`
	Resources []ResourcePayload `json:"resources" validate:"dive"`
	Quiz      *QuizPayload      `json:"quiz"`
}

// CourseCreateRequest is the admin payload for creating a course.
type CourseCreateRequest struct {
	Title         string          `json:"title" validate:"required,max=100"`
	Description   string          `json:"description" validate:"required,min=10,max=500"`
	Emoji         string          `json:"emoji" validate:"required,max=10"`
	Category      string          `json:"category" validate:"required,oneof=programming web-development game-development robotics ai animation design"`
	Difficulty    string          `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Duration      int             `json:"duration" validate:"required,min=1"`
	Instructor    string          `json:"instructor" validate:"required"`
	Slug          string          `json:"slug" validate:"omitempty,max=160"`
	Thumbnail     string          `json:"thumbnail" validate:"omitempty,url"`
	Tags          []string        `json:"tags"`
	Lessons       []LessonPayload `json:"lessons" validate:"dive"`
	Prerequisites []uint          `json:"prerequisites"`
}

// CourseUpdateRequest is the admin payload for partial course updates.
type CourseUpdateRequest struct {
	Title         *string          `json:"title" validate:"omitempty,max=100"`
	Description   *string          `json:"description" validate:"omitempty,min=10,max=500"`
	Emoji         *string          `json:"emoji" validate:"omitempty,max=10"`
	Category      *string          `json:"category" validate:"omitempty,oneof=programming web-development game-development robotics ai animation design"`
	Difficulty    *string          `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration      *int             `json:"duration" validate:"omitempty,min=1"`
	Instructor    *string          `json:"instructor" validate:"omitempty"`
	Slug          *string          `json:"slug" validate:"omitempty,max=160"`
	Thumbnail     *string          `json:"thumbnail" validate:"omitempty,url"`
	Tags          *[]string        `json:"tags"`
	Lessons       *[]LessonPayload `json:"lessons" validate:"omitempty,dive"`
	Prerequisites *[]uint          `json:"prerequisites"`
}

// NewCourseSummary builds the compact course reference.
func NewCourseSummary(course models.Course) CourseSummary {
	return CourseSummary{
		ID:         course.ID,
		Slug:       course.Slug,
		Title:      course.Title,
		Emoji:      course.Emoji,
		Category:   course.Category,
		Difficulty: course.Difficulty,
	}
}

// NewCourseResponse maps a course model to its response form. The enrolled
// flag is attached separately by the catalog service when a caller identity
// is known.
func NewCourseResponse(course models.Course) CourseResponse {
	lessons := make([]LessonResponse, 0, len(course.Lessons))
	for _, lesson := range course.Lessons {
		lessons = append(lessons, LessonResponse{
			ID:        lesson.ID,
			Title:     lesson.Title,
			Content:   lesson.Content,
			Order:     lesson.Order,
			VideoURL:  lesson.VideoURL,
			Resources: lesson.Resources,
			Quiz:      lesson.Quiz,
		})
	}

	prerequisites := make([]CourseSummary, 0, len(course.Prerequisites))
	for _, prereq := range course.Prerequisites {
		prerequisites = append(prerequisites, NewCourseSummary(prereq))
	}

	students := make([]StudentSummary, 0, len(course.EnrolledStudents))
	for _, student := range course.EnrolledStudents {
		students = append(students, StudentSummary{ID: student.ID, Name: student.Name})
	}

	return CourseResponse{
		ID:               course.ID,
		Slug:             course.Slug,
		Title:            course.Title,
		Description:      course.Description,
		Emoji:            course.Emoji,
		Category:         course.Category,
		Difficulty:       course.Difficulty,
		Duration:         course.Duration,
		Instructor:       course.Instructor,
		Thumbnail:        course.Thumbnail,
		Tags:             append([]string(nil), course.Tags...),
		Lessons:          lessons,
		LessonCount:      len(lessons),
		Prerequisites:    prerequisites,
		EnrolledStudents: students,
		EnrolledCount:    len(students),
		IsActive:         course.IsActive,
		CreatedAt:        course.CreatedAt,
		UpdatedAt:        course.UpdatedAt,
	}
}
