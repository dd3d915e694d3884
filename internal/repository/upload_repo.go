package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/models"
)

// UploadRepository stores metadata for uploaded media.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	FindByChecksum(ctx context.Context, checksum string) (models.UploadRecord, bool, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs an upload repository.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) FindByChecksum(ctx context.Context, checksum string) (models.UploadRecord, bool, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).Where("checksum = ?", checksum).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UploadRecord{}, false, nil
		}
		return models.UploadRecord{}, false, err
	}

	return record, true, nil
}
