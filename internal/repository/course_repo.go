package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
)

// CourseFilter describes catalog query filters. Category, difficulty and
// search combine as an AND filter; only active courses are returned unless
// IncludeInactive is set.
type CourseFilter struct {
	Category        string
	Difficulty      string
	Search          string
	Sort            string
	Page            int
	PageSize        int
	IncludeInactive bool
}

// CourseRepository defines persistence operations for the course catalog.
type CourseRepository interface {
	List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	GetByID(ctx context.Context, id uint, includeInactive bool) (models.Course, error)
	GetBySlug(ctx context.Context, slug string) (models.Course, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SoftDelete(ctx context.Context, id uint) error
	PrerequisiteIDs(ctx context.Context, courseID uint) ([]uint, error)
	ReplacePrerequisites(ctx context.Context, courseID uint, prerequisiteIDs []uint) error
	UpsertBySlug(ctx context.Context, courses []models.Course) (int64, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := normalizeCourseSort(filter.Sort)
	if order != "" {
		query = query.Order(order)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Preload("EnrolledStudents").Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint, includeInactive bool) (models.Course, error) {
	query := r.db.WithContext(ctx).
		Preload("Prerequisites").
		Preload("EnrolledStudents")

	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var course models.Course
	if err := query.First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetBySlug(ctx context.Context, slug string) (models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Prerequisites").
		Preload("EnrolledStudents").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&course).Error
	if err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{}).Where("slug = ?", slug)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Omit("Prerequisites", "EnrolledStudents").Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Omit("Prerequisites", "EnrolledStudents").Save(course).Error
}

func (r *courseRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PrerequisiteIDs reads the raw prerequisite references from the join table.
// Dangling references survive here on purpose: the enrollment service treats
// any id the user has not completed as an unmet prerequisite.
func (r *courseRepository) PrerequisiteIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("course_prerequisites").
		Where("course_id = ?", courseID).
		Pluck("prerequisite_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *courseRepository) ReplacePrerequisites(ctx context.Context, courseID uint, prerequisiteIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM course_prerequisites WHERE course_id = ?", courseID).Error; err != nil {
			return err
		}
		for _, prereqID := range prerequisiteIDs {
			if prereqID == courseID {
				continue
			}
			err := tx.Exec(
				"INSERT INTO course_prerequisites (course_id, prerequisite_id) VALUES (?, ?)",
				courseID, prereqID,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *courseRepository) UpsertBySlug(ctx context.Context, courses []models.Course) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range courses {
			var existing models.Course
			err := tx.Where("slug = ?", courses[i].Slug).First(&existing).Error
			switch {
			case err == nil:
				courses[i].ID = existing.ID
				courses[i].CreatedAt = existing.CreatedAt
				if err := tx.Omit("Prerequisites", "EnrolledStudents").Save(&courses[i]).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Omit("Prerequisites", "EnrolledStudents").Create(&courses[i]).Error; err != nil {
					return err
				}
			default:
				return err
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

func normalizeCourseSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "", "newest", "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	case "oldest", "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	case "duration", "duration:asc", "duration.asc":
		return "duration ASC"
	case "-duration", "duration:desc", "duration.desc":
		return "duration DESC"
	default:
		return "created_at DESC"
	}
}
