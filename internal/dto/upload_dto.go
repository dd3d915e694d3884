package dto

import (
	"time"

	"github.com/gifttech/academy-api/internal/models"
)

// UploadResponse serialises a stored upload.
type UploadResponse struct {
	ID          uint      `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUploadResponse maps an upload record to its response form.
func NewUploadResponse(record models.UploadRecord) UploadResponse {
	return UploadResponse{
		ID:          record.ID,
		FileName:    record.FileName,
		ContentType: record.ContentType,
		SizeBytes:   record.SizeBytes,
		Checksum:    record.Checksum,
		URL:         record.URL,
		CreatedAt:   record.CreatedAt,
	}
}
