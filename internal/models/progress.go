package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizScore records a quiz attempt against a lesson.
type QuizScore struct {
	LessonID string    `json:"lesson_id"`
	Score    int       `json:"score"`
	Passed   bool      `json:"passed"`
	TakenAt  time.Time `json:"taken_at"`
}

// CourseProgress tracks which lessons a user has completed in a course.
// At most one row exists per (user, course) pair; the completed-lesson set is
// stored as a JSON collection owned by the row.
type CourseProgress struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	UserID              uint           `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"user_id"`
	CourseID            uint           `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"course_id"`
	CompletedLessonsRaw datatypes.JSON `gorm:"column:completed_lessons;type:json" json:"-"`
	QuizScoresRaw       datatypes.JSON `gorm:"column:quiz_scores;type:json" json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`

	CompletedLessons []string    `gorm:"-" json:"completed_lessons"`
	QuizScores       []QuizScore `gorm:"-" json:"quiz_scores"`
}

// BeforeSave serialises the completed-lesson set and quiz scores.
func (p *CourseProgress) BeforeSave(tx *gorm.DB) error {
	if p.CompletedLessons == nil {
		p.CompletedLessons = []string{}
	}
	if p.QuizScores == nil {
		p.QuizScores = []QuizScore{}
	}

	lessons, err := json.Marshal(p.CompletedLessons)
	if err != nil {
		return err
	}
	p.CompletedLessonsRaw = datatypes.JSON(lessons)

	scores, err := json.Marshal(p.QuizScores)
	if err != nil {
		return err
	}
	p.QuizScoresRaw = datatypes.JSON(scores)

	return nil
}

// AfterFind hydrates the in-memory collections after loading from DB.
func (p *CourseProgress) AfterFind(tx *gorm.DB) error {
	p.CompletedLessons = decodeLessonIDs(p.CompletedLessonsRaw)
	p.QuizScores = decodeQuizScores(p.QuizScoresRaw)
	return nil
}

// HasLesson reports whether the lesson is in the completed set.
func (p *CourseProgress) HasLesson(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// MarkLesson adds the lesson to the completed set. Repeat calls are no-ops so
// no duplicate credit accumulates.
func (p *CourseProgress) MarkLesson(lessonID string) {
	if lessonID == "" || p.HasLesson(lessonID) {
		return
	}
	p.CompletedLessons = append(p.CompletedLessons, lessonID)
}

// UnmarkLesson removes the lesson from the completed set if present.
func (p *CourseProgress) UnmarkLesson(lessonID string) {
	if lessonID == "" {
		return
	}
	kept := p.CompletedLessons[:0]
	for _, id := range p.CompletedLessons {
		if id != lessonID {
			kept = append(kept, id)
		}
	}
	p.CompletedLessons = kept
}

func decodeLessonIDs(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}
	}
	return ids
}

func decodeQuizScores(raw datatypes.JSON) []QuizScore {
	if len(raw) == 0 {
		return []QuizScore{}
	}
	var scores []QuizScore
	if err := json.Unmarshal(raw, &scores); err != nil {
		return []QuizScore{}
	}
	return scores
}
