package dto

import (
	"time"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// UserListRequest filters the admin user list.
type UserListRequest struct {
	Search   string
	Role     string `validate:"omitempty,oneof=user admin"`
	Status   string `validate:"omitempty,oneof=active inactive suspended"`
	Page     int
	PageSize int
}

// UserUpdateRequest patches a user from the admin panel.
type UserUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// UserResponse serializes a user without credentials.
type UserResponse struct {
	ID             uint       `json:"id"`
	Username       string     `json:"username"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	IsOnline       bool       `json:"is_online"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewUserResponse converts a user, computing presence relative to now.
func NewUserResponse(user models.User, now time.Time) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Role:           user.Role,
		Status:         user.Status,
		IsOnline:       user.IsOnline(now),
		LastActivityAt: user.LastActivityAt,
		CreatedAt:      user.CreatedAt,
	}
}

// UserListResponse wraps a page of users.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// UserActivityResponse summarises what a user has done.
type UserActivityResponse struct {
	User           UserResponse            `json:"user"`
	Attempts       []AttemptResponse       `json:"attempts"`
	Assignments    []AssignmentResponse    `json:"assignments"`
	AccessRequests []AccessRequestResponse `json:"access_requests"`
}
