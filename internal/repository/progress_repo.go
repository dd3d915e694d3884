package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
)

// ProgressRepository persists per-course progress records.
type ProgressRepository interface {
	Get(ctx context.Context, userID, courseID uint) (models.CourseProgress, error)
	GetOrCreate(ctx context.Context, userID, courseID uint) (models.CourseProgress, error)
	ListByUser(ctx context.Context, userID uint) ([]models.CourseProgress, error)
	// SaveWithCompletion writes the progress record and synchronises the
	// user's completed-courses membership in a single transaction, so the
	// derived set can never drift from the recomputed completion state.
	SaveWithCompletion(ctx context.Context, progress *models.CourseProgress, completed bool) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID, courseID uint) (models.CourseProgress, error) {
	var progress models.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return models.CourseProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) GetOrCreate(ctx context.Context, userID, courseID uint) (models.CourseProgress, error) {
	progress, err := r.Get(ctx, userID, courseID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CourseProgress{}, err
	}

	progress = models.CourseProgress{
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: []string{},
		QuizScores:       []models.QuizScore{},
	}
	if err := r.db.WithContext(ctx).Create(&progress).Error; err != nil {
		return models.CourseProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uint) ([]models.CourseProgress, error) {
	var records []models.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *progressRepository) SaveWithCompletion(ctx context.Context, progress *models.CourseProgress, completed bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(progress).Error; err != nil {
			return err
		}

		if completed {
			var count int64
			err := tx.Table("user_completed_courses").
				Where("user_id = ? AND course_id = ?", progress.UserID, progress.CourseID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count == 0 {
				return tx.Exec(
					"INSERT INTO user_completed_courses (user_id, course_id) VALUES (?, ?)",
					progress.UserID, progress.CourseID,
				).Error
			}
			return nil
		}

		return tx.Exec(
			"DELETE FROM user_completed_courses WHERE user_id = ? AND course_id = ?",
			progress.UserID, progress.CourseID,
		).Error
	})
}
