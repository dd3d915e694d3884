package models

import "time"

// UploadRecord stores metadata about uploaded media (course thumbnails,
// user avatars).
type UploadRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	ContentType string    `gorm:"size:128;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	Checksum    string    `gorm:"size:128;index" json:"checksum"`
	URL         string    `gorm:"size:512;not null" json:"url"`
	UploaderID  *uint     `gorm:"index" json:"uploader_id"`
	CreatedAt   time.Time `json:"created_at"`
}
