package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Question types.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeShortAnswer    = "short_answer"
)

// Quiz is an owned set of questions. Private quizzes are gated by assignments and access requests.
type Quiz struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	IsPublic    bool       `gorm:"not null" json:"is_public"`
	TimeLimit   int        `gorm:"not null" json:"time_limit"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions,omitempty"`
}

// OwnedBy reports whether userID created the quiz.
func (q Quiz) OwnedBy(userID uint) bool {
	return userID != 0 && q.CreatedBy == userID
}

// Deadline returns the time an attempt started at startedAt expires, or false when the quiz is untimed.
func (q Quiz) Deadline(startedAt time.Time) (time.Time, bool) {
	if q.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(q.TimeLimit) * time.Minute), true
}

// Question belongs to a quiz.
type Question struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	QuizID        uint                        `gorm:"not null;index" json:"quiz_id"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Type          string                      `gorm:"size:32;not null" json:"type"`
	Options       datatypes.JSONSlice[string] `gorm:"type:json" json:"options"`
	CorrectAnswer string                      `gorm:"type:text;not null" json:"correct_answer"`
	Position      int                         `gorm:"not null" json:"position"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// IsCorrect compares an answer with the stored one, ignoring case and surrounding whitespace.
func (q Question) IsCorrect(answer string) bool {
	expected := strings.TrimSpace(q.CorrectAnswer)
	if expected == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), expected)
}
