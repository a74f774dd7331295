package models

import "time"

// Notification types.
const (
	NotificationAccessApproved = "access_request.approved"
	NotificationAccessRejected = "access_request.rejected"
)

// Notification is a message addressed to one user. ReadAt is set once and never cleared.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_notification_user_read,priority:1" json:"user_id"`
	Type      string     `gorm:"size:64;not null" json:"type"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Read      bool       `gorm:"not null;default:false;index:idx_notification_user_read,priority:2" json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
