package models

import "time"

// Roles recognised by the access control layer.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents a registered account, student or administrator.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:16;not null;default:student" json:"role"`
	Avatar       string `gorm:"size:512" json:"avatar"`

	EnrolledCourses  []Course         `gorm:"many2many:course_enrollments" json:"-"`
	CompletedCourses []Course         `gorm:"many2many:user_completed_courses" json:"-"`
	Progress         []CourseProgress `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
