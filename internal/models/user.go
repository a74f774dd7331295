package models

import "time"

// User roles.
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// User statuses.
const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// OnlineWindow is how recent the last activity must be for a user to count as online.
const OnlineWindow = 5 * time.Minute

// User is an account that can take quizzes and, with the admin role, manage them.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash   string     `gorm:"size:255;not null" json:"-"`
	Role           string     `gorm:"size:16;not null;index" json:"role"`
	Status         string     `gorm:"size:16;not null;index" json:"status"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsSuspended reports whether the account is blocked from signing in.
func (u User) IsSuspended() bool {
	return u.Status == UserStatusSuspended
}

// IsOnline returns true when the user was active within OnlineWindow of reference.
func (u User) IsOnline(reference time.Time) bool {
	if u.LastActivityAt == nil {
		return false
	}
	return reference.Sub(*u.LastActivityAt) <= OnlineWindow
}
