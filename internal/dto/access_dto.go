package dto

import (
	"time"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// Access status values shown to users for a quiz.
const (
	AccessStatusPublic           = "public"
	AccessStatusGranted          = "granted"
	AccessStatusAssignedNoAccess = "assigned_no_access"
	AccessStatusRequestPending   = "request_pending"
	AccessStatusRequestRejected  = "request_rejected"
	AccessStatusNotAssigned      = "not_assigned"
)

// SetAssignmentRequest upserts one assignment. Omitted flags default to assigned without access.
type SetAssignmentRequest struct {
	UserID     uint  `json:"user_id" validate:"required"`
	QuizID     uint  `json:"quiz_id" validate:"required"`
	IsAssigned *bool `json:"is_assigned"`
	HasAccess  *bool `json:"has_access"`
}

// Flags resolves the requested flag pair, applying defaults.
func (r SetAssignmentRequest) Flags() (isAssigned, hasAccess bool) {
	isAssigned = true
	if r.IsAssigned != nil {
		isAssigned = *r.IsAssigned
	}
	if r.HasAccess != nil {
		hasAccess = *r.HasAccess
	}
	return isAssigned, hasAccess
}

// BulkAssignmentItem is one entry of a bulk assignment update.
type BulkAssignmentItem struct {
	QuizID     uint `json:"quiz_id" validate:"required"`
	IsAssigned bool `json:"is_assigned"`
	HasAccess  bool `json:"has_access"`
}

// BulkAssignmentRequest replaces several assignments of one user atomically.
type BulkAssignmentRequest struct {
	UserID      uint                 `json:"user_id" validate:"required"`
	Assignments []BulkAssignmentItem `json:"assignments" validate:"required,min=1,max=500,dive"`
}

// AssignmentResponse serializes an assignment row.
type AssignmentResponse struct {
	UserID     uint      `json:"user_id"`
	QuizID     uint      `json:"quiz_id"`
	Username   string    `json:"username,omitempty"`
	QuizTitle  string    `json:"quiz_title,omitempty"`
	IsAssigned bool      `json:"is_assigned"`
	HasAccess  bool      `json:"has_access"`
	State      string    `json:"state"`
	AssignedBy uint      `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts an assignment view into its DTO.
func NewAssignmentResponse(view models.AssignmentView) AssignmentResponse {
	return AssignmentResponse{
		UserID:     view.UserID,
		QuizID:     view.QuizID,
		Username:   view.Username,
		QuizTitle:  view.QuizTitle,
		IsAssigned: view.IsAssigned,
		HasAccess:  view.HasAccess,
		State:      string(view.State()),
		AssignedBy: view.AssignedBy,
		AssignedAt: view.AssignedAt,
		UpdatedAt:  view.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment views into DTOs.
func NewAssignmentResponseSlice(views []models.AssignmentView) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(views))
	for _, view := range views {
		out = append(out, NewAssignmentResponse(view))
	}
	return out
}

// AccessRequestCreateRequest is submitted by a user asking for access to a private quiz.
type AccessRequestCreateRequest struct {
	QuizID  uint   `json:"quiz_id" validate:"required"`
	Message string `json:"message" validate:"max=1000"`
}

// ResolveAccessRequestRequest approves or rejects a pending request.
type ResolveAccessRequestRequest struct {
	Status          string `json:"status" validate:"required,oneof=approved rejected"`
	ResponseMessage string `json:"response_message" validate:"max=1000"`
}

// AccessRequestListRequest filters the admin access request list.
type AccessRequestListRequest struct {
	Status string `validate:"omitempty,oneof=pending approved rejected"`
	UserID uint
	QuizID uint
}

// AccessRequestResponse serializes an access request.
type AccessRequestResponse struct {
	ID              uint       `json:"id"`
	UserID          uint       `json:"user_id"`
	QuizID          uint       `json:"quiz_id"`
	Username        string     `json:"requester_username,omitempty"`
	QuizTitle       string     `json:"quiz_title,omitempty"`
	Message         string     `json:"message"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	ReviewedBy      *uint      `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ResponseMessage string     `json:"response_message"`
}

// NewAccessRequestResponse converts an access request view into its DTO.
func NewAccessRequestResponse(view models.AccessRequestView) AccessRequestResponse {
	return AccessRequestResponse{
		ID:              view.ID,
		UserID:          view.UserID,
		QuizID:          view.QuizID,
		Username:        view.Username,
		QuizTitle:       view.QuizTitle,
		Message:         view.Message,
		Status:          view.Status,
		RequestedAt:     view.RequestedAt,
		ReviewedBy:      view.ReviewedBy,
		ReviewedAt:      view.ReviewedAt,
		ResponseMessage: view.ResponseMessage,
	}
}

// NewAccessRequestResponseSlice converts access request views into DTOs.
func NewAccessRequestResponseSlice(views []models.AccessRequestView) []AccessRequestResponse {
	out := make([]AccessRequestResponse, 0, len(views))
	for _, view := range views {
		out = append(out, NewAccessRequestResponse(view))
	}
	return out
}

// QuizAccessResponse describes a quiz together with the caller's access to it.
type QuizAccessResponse struct {
	QuizID          uint   `json:"quiz_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	IsPublic        bool   `json:"is_public"`
	TimeLimit       int    `json:"time_limit"`
	IsAssigned      bool   `json:"is_assigned"`
	HasAccess       bool   `json:"has_access"`
	State           string `json:"assignment_state"`
	AccessStatus    string `json:"access_status"`
	CanStart        bool   `json:"can_start"`
	LatestRequestID *uint  `json:"latest_request_id,omitempty"`
	RequestStatus   string `json:"request_status,omitempty"`
}
