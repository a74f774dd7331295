package models

import (
	"math"
	"time"
)

// QuizAttempt is one run of a user through a quiz.
type QuizAttempt struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	QuizID         uint         `gorm:"not null;index" json:"quiz_id"`
	Score          int          `gorm:"not null" json:"score"`
	TotalQuestions int          `gorm:"not null" json:"total_questions"`
	StartedAt      time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt    *time.Time   `gorm:"index" json:"completed_at"`
	Answers        []UserAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

// IsCompleted reports whether the attempt has been scored.
func (a QuizAttempt) IsCompleted() bool {
	return a.CompletedAt != nil
}

// Percentage returns the score as a percentage rounded to one decimal place.
func (a QuizAttempt) Percentage() float64 {
	return ScorePercentage(a.Score, a.TotalQuestions)
}

// ScorePercentage returns score/total as a percentage rounded to one decimal place.
func ScorePercentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*1000) / 10
}

// UserAnswer is the latest answer given to a question within an attempt.
type UserAnswer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AttemptID  uint      `gorm:"not null;uniqueIndex:idx_user_answers_attempt_question" json:"attempt_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_user_answers_attempt_question" json:"question_id"`
	Answer     string    `gorm:"type:text" json:"answer"`
	IsCorrect  bool      `gorm:"not null" json:"is_correct"`
	AnsweredAt time.Time `gorm:"not null" json:"answered_at"`
}
