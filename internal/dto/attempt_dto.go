package dto

import (
	"time"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// AttemptStartRequest starts an attempt on a quiz.
type AttemptStartRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

// AnswerRequest records an answer within an attempt.
type AnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"max=2000"`
}

// AnswerResponse reports the stored answer.
type AnswerResponse struct {
	AttemptID  uint      `json:"attempt_id"`
	QuestionID uint      `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// NewAnswerResponse converts a stored answer.
func NewAnswerResponse(answer models.UserAnswer) AnswerResponse {
	return AnswerResponse{
		AttemptID:  answer.AttemptID,
		QuestionID: answer.QuestionID,
		Answer:     answer.Answer,
		IsCorrect:  answer.IsCorrect,
		AnsweredAt: answer.AnsweredAt,
	}
}

// AttemptResponse serializes an attempt.
type AttemptResponse struct {
	ID             uint       `json:"id"`
	UserID         uint       `json:"user_id"`
	QuizID         uint       `json:"quiz_id"`
	QuizTitle      string     `json:"quiz_title,omitempty"`
	Username       string     `json:"username,omitempty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	Percentage     float64    `json:"percentage"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// NewAttemptResponse converts an attempt view.
func NewAttemptResponse(view models.AttemptView) AttemptResponse {
	return AttemptResponse{
		ID:             view.ID,
		UserID:         view.UserID,
		QuizID:         view.QuizID,
		QuizTitle:      view.QuizTitle,
		Username:       view.Username,
		Score:          view.Score,
		TotalQuestions: view.TotalQuestions,
		Percentage:     view.Percentage(),
		StartedAt:      view.StartedAt,
		CompletedAt:    view.CompletedAt,
	}
}

// NewAttemptResponseSlice converts attempt views.
func NewAttemptResponseSlice(views []models.AttemptView) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(views))
	for _, view := range views {
		out = append(out, NewAttemptResponse(view))
	}
	return out
}

// AttemptResultResponse is returned when an attempt is completed.
type AttemptResultResponse struct {
	AttemptResponse
	Passed  bool             `json:"passed"`
	Answers []AnswerResponse `json:"answers"`
}
