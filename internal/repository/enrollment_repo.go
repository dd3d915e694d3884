package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
)

// EnrollmentRepository manages the membership relation between users and
// courses. The relation is a single join row, so both "sides" the document
// model kept in sync by hand are updated atomically here.
type EnrollmentRepository interface {
	IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error)
	Enroll(ctx context.Context, userID, courseID uint) error
	Unenroll(ctx context.Context, userID, courseID uint) error
	EnrolledCourses(ctx context.Context, userID uint) ([]models.Course, error)
	CompletedCourseIDs(ctx context.Context, userID uint) ([]uint, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("course_enrollments").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *enrollmentRepository) Enroll(ctx context.Context, userID, courseID uint) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO course_enrollments (course_id, user_id) VALUES (?, ?)",
		courseID, userID,
	).Error
}

func (r *enrollmentRepository) Unenroll(ctx context.Context, userID, courseID uint) error {
	result := r.db.WithContext(ctx).Exec(
		"DELETE FROM course_enrollments WHERE course_id = ? AND user_id = ?",
		courseID, userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *enrollmentRepository) EnrolledCourses(ctx context.Context, userID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Joins("JOIN course_enrollments ce ON ce.course_id = courses.id").
		Where("ce.user_id = ?", userID).
		Order("courses.created_at ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *enrollmentRepository) CompletedCourseIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("user_completed_courses").
		Where("user_id = ?", userID).
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
