package dto

import (
	"time"

	"github.com/gifttech/academy-api/internal/models"
)

// UserResponse serialises an account. The password credential is never
// included.
type UserResponse struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Role             string          `json:"role"`
	Avatar           string          `json:"avatar,omitempty"`
	EnrolledCourses  []CourseSummary `json:"enrolled_courses"`
	CompletedCourses []CourseSummary `json:"completed_courses"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UserListRequest captures admin user-list query params.
type UserListRequest struct {
	Role     string
	Sort     string
	Page     int
	PageSize int
}

// UserListResult wraps a paginated user page.
type UserListResult struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// UserUpdateRequest is the payload for profile updates. Role changes are
// honoured for admin callers only.
type UserUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Role   *string `json:"role" validate:"omitempty,oneof=student admin"`
	Avatar *string `json:"avatar"`
}

// NewUserResponse maps a user model to its response form.
func NewUserResponse(user models.User) UserResponse {
	enrolled := make([]CourseSummary, 0, len(user.EnrolledCourses))
	for _, course := range user.EnrolledCourses {
		enrolled = append(enrolled, NewCourseSummary(course))
	}

	completed := make([]CourseSummary, 0, len(user.CompletedCourses))
	for _, course := range user.CompletedCourses {
		completed = append(completed, NewCourseSummary(course))
	}

	return UserResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		Avatar:           user.Avatar,
		EnrolledCourses:  enrolled,
		CompletedCourses: completed,
		CreatedAt:        user.CreatedAt,
	}
}
