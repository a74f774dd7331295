package models

import "time"

// Access request statuses. Pending is the only non-terminal status.
const (
	AccessRequestPending  = "pending"
	AccessRequestApproved = "approved"
	AccessRequestRejected = "rejected"
)

// AccessRequest is a user's petition for access to a private quiz.
// The partial unique index keeps at most one pending request per (user, quiz).
type AccessRequest struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index;index:idx_access_requests_pending,unique,where:status = 'pending'" json:"user_id"`
	QuizID          uint       `gorm:"not null;index;index:idx_access_requests_pending,unique,where:status = 'pending'" json:"quiz_id"`
	Message         string     `gorm:"type:text" json:"message"`
	Status          string     `gorm:"size:16;not null;index" json:"status"`
	RequestedAt     time.Time  `gorm:"not null" json:"requested_at"`
	ReviewedBy      *uint      `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ResponseMessage string     `gorm:"type:text" json:"response_message"`
}

// IsPending reports whether the request still awaits a decision.
func (r AccessRequest) IsPending() bool {
	return r.Status == AccessRequestPending
}

// IsApproved reports whether the request was approved.
func (r AccessRequest) IsApproved() bool {
	return r.Status == AccessRequestApproved
}

// IsResolutionStatus reports whether status is a valid decision for a pending request.
func IsResolutionStatus(status string) bool {
	return status == AccessRequestApproved || status == AccessRequestRejected
}
