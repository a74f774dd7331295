package models

import (
	"errors"
	"time"
)

// ErrInvalidAssignmentFlags is returned when access is requested for an unassigned quiz.
var ErrInvalidAssignmentFlags = errors.New("has_access requires is_assigned")

// AssignmentState is the administrative state of a (user, quiz) pair.
type AssignmentState string

// The three assignment states. Access without assignment is not representable.
const (
	AssignmentUnassigned         AssignmentState = "unassigned"
	AssignmentAssignedNoAccess   AssignmentState = "assigned_no_access"
	AssignmentAssignedWithAccess AssignmentState = "assigned_with_access"
)

// AssignmentStateFromFlags maps the stored flag pair onto a state.
func AssignmentStateFromFlags(isAssigned, hasAccess bool) (AssignmentState, error) {
	switch {
	case isAssigned && hasAccess:
		return AssignmentAssignedWithAccess, nil
	case isAssigned:
		return AssignmentAssignedNoAccess, nil
	case hasAccess:
		return "", ErrInvalidAssignmentFlags
	default:
		return AssignmentUnassigned, nil
	}
}

// Valid reports whether s is one of the three known states.
func (s AssignmentState) Valid() bool {
	switch s {
	case AssignmentUnassigned, AssignmentAssignedNoAccess, AssignmentAssignedWithAccess:
		return true
	default:
		return false
	}
}

// Flags returns the is_assigned and has_access columns for the state.
func (s AssignmentState) Flags() (isAssigned, hasAccess bool) {
	switch s {
	case AssignmentAssignedWithAccess:
		return true, true
	case AssignmentAssignedNoAccess:
		return true, false
	default:
		return false, false
	}
}

// GrantsAccess reports whether the state alone lets the user start the quiz.
func (s AssignmentState) GrantsAccess() bool {
	return s == AssignmentAssignedWithAccess
}

// QuizAssignment links a user to a quiz. Rows are upserted and never deleted on unassignment.
type QuizAssignment struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	QuizID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"quiz_id"`
	IsAssigned bool      `gorm:"not null" json:"is_assigned"`
	HasAccess  bool      `gorm:"not null" json:"has_access"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewQuizAssignment builds an assignment row whose flags come from state.
func NewQuizAssignment(userID, quizID uint, state AssignmentState, assignedBy uint, at time.Time) QuizAssignment {
	isAssigned, hasAccess := state.Flags()
	return QuizAssignment{
		UserID:     userID,
		QuizID:     quizID,
		IsAssigned: isAssigned,
		HasAccess:  hasAccess,
		AssignedBy: assignedBy,
		AssignedAt: at,
	}
}

// State returns the assignment state. Rows carrying access without assignment read as unassigned.
func (a QuizAssignment) State() AssignmentState {
	state, err := AssignmentStateFromFlags(a.IsAssigned, a.HasAccess)
	if err != nil {
		return AssignmentUnassigned
	}
	return state
}
