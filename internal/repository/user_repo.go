package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
)

// UserFilter describes pagination and filtering for user listings.
type UserFilter struct {
	Role     string
	Sort     string
	Page     int
	PageSize int
}

// UserRepository provides access to account records.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := normalizeUserSort(filter.Sort)
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

	var users []models.User
	if err := query.Preload("EnrolledCourses").Preload("CompletedCourses").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("EnrolledCourses").
		Preload("CompletedCourses").
		First(&user, id).Error
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Omit("EnrolledCourses", "CompletedCourses", "Progress").Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Omit("EnrolledCourses", "CompletedCourses", "Progress").Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// Membership rows and progress records go with the account.
		if err := tx.Exec("DELETE FROM course_enrollments WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_completed_courses WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&models.CourseProgress{}).Error
	})
}

func normalizeUserSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "", "newest", "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	case "oldest", "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "name", "name:asc", "name.asc":
		return "name ASC"
	case "-name", "name:desc", "name.desc":
		return "name DESC"
	default:
		return "created_at DESC"
	}
}
