package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course categories and difficulty levels accepted by the catalog.
var (
	CourseCategories   = []string{"programming", "web-development", "game-development", "robotics", "ai", "animation", "design"}
	CourseDifficulties = []string{"beginner", "intermediate", "advanced"}
)

// DefaultPassingScore is applied to lesson quizzes that do not specify one.
const DefaultPassingScore = 70

var lessonContentPolicy = bluemonday.UGCPolicy()

// Resource links supplementary material to a lesson.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// QuizQuestion is a single multiple-choice question with the index of the correct option.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Quiz groups the questions attached to a lesson.
type Quiz struct {
	Questions    []QuizQuestion `json:"questions"`
	PassingScore int            `json:"passing_score"`
}

// Lesson is a unit of content owned by a course. Lessons live inside the
// course row as an ordered JSON collection and are never referenced on their
// own; progress tracking keys off the generated lesson ID.
type Lesson struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Order     int        `json:"order"`
	VideoURL  string     `json:"video_url,omitempty"`
	Resources []Resource `json:"resources,omitempty"`
	Quiz      *Quiz      `json:"quiz,omitempty"`
}

// Course is a catalog entry describing a learning unit with ordered lessons.
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Slug        string         `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Title       string         `gorm:"size:100;not null" json:"title"`
	Description string         `gorm:"size:500;not null" json:"description"`
	Emoji       string         `gorm:"size:10;not null" json:"emoji"`
	Category    string         `gorm:"size:32;not null;index:idx_courses_category_difficulty" json:"category"`
	Difficulty  string         `gorm:"size:16;not null;index:idx_courses_category_difficulty" json:"difficulty"`
	Duration    int            `gorm:"not null" json:"duration"`
	Instructor  string         `gorm:"size:128;not null" json:"instructor"`
	Thumbnail   string         `gorm:"size:512" json:"thumbnail"`
	TagsRaw     string         `gorm:"column:tags;type:text" json:"-"`
	LessonsRaw  datatypes.JSON `gorm:"column:lessons;type:json" json:"-"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`

	Prerequisites    []Course `gorm:"many2many:course_prerequisites;joinForeignKey:CourseID;joinReferences:PrerequisiteID" json:"-"`
	EnrolledStudents []User   `gorm:"many2many:course_enrollments" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tags    []string `gorm:"-" json:"tags"`
	Lessons []Lesson `gorm:"-" json:"lessons"`
}

// BeforeSave derives the slug when absent, normalises tags and serialises the
// lesson collection. Lessons without an identifier are assigned one here so
// progress records always have a stable key to point at.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(c.Slug) == "" {
		c.Slug = Slugify(c.Title)
	}
	c.TagsRaw = encodeTags(c.Tags)

	for i := range c.Lessons {
		if strings.TrimSpace(c.Lessons[i].ID) == "" {
			c.Lessons[i].ID = uuid.NewString()
		}
		c.Lessons[i].Content = lessonContentPolicy.Sanitize(c.Lessons[i].Content)
		if c.Lessons[i].Quiz != nil && c.Lessons[i].Quiz.PassingScore <= 0 {
			c.Lessons[i].Quiz.PassingScore = DefaultPassingScore
		}
	}

	raw, err := json.Marshal(c.Lessons)
	if err != nil {
		return err
	}
	c.LessonsRaw = datatypes.JSON(raw)

	return nil
}

// AfterFind hydrates the tag list and lesson collection after loading from DB.
func (c *Course) AfterFind(tx *gorm.DB) error {
	c.Tags = decodeTags(c.TagsRaw)
	c.Lessons = decodeLessons(c.LessonsRaw)
	return nil
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a lowercase URL-safe slug from a course title. Runs of
// non-alphanumeric characters collapse into a single hyphen and leading or
// trailing hyphens are trimmed.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func decodeLessons(raw datatypes.JSON) []Lesson {
	if len(raw) == 0 {
		return []Lesson{}
	}
	var lessons []Lesson
	if err := json.Unmarshal(raw, &lessons); err != nil {
		return []Lesson{}
	}
	return lessons
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(strings.ToLower(tag))
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeTags(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tags = append(tags, trimmed)
	}
	return tags
}
