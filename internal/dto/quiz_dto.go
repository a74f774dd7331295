package dto

import (
	"time"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// QuestionRequest creates a question.
type QuestionRequest struct {
	Text          string   `json:"text" validate:"required,min=1,max=2000"`
	Type          string   `json:"type" validate:"omitempty,oneof=multiple_choice true_false short_answer"`
	Options       []string `json:"options" validate:"omitempty,max=20,dive,max=500"`
	CorrectAnswer string   `json:"correct_answer" validate:"required,max=500"`
	Position      *int     `json:"position" validate:"omitempty,min=0"`
}

// QuestionUpdateRequest patches a question.
type QuestionUpdateRequest struct {
	Text          *string  `json:"text" validate:"omitempty,min=1,max=2000"`
	Type          *string  `json:"type" validate:"omitempty,oneof=multiple_choice true_false short_answer"`
	Options       []string `json:"options" validate:"omitempty,max=20,dive,max=500"`
	CorrectAnswer *string  `json:"correct_answer" validate:"omitempty,min=1,max=500"`
	Position      *int     `json:"position" validate:"omitempty,min=0"`
}

// QuizCreateRequest creates a quiz with optional questions.
type QuizCreateRequest struct {
	Title       string            `json:"title" validate:"required,min=1,max=255"`
	Description string            `json:"description" validate:"max=5000"`
	IsPublic    bool              `json:"is_public"`
	TimeLimit   int               `json:"time_limit" validate:"min=0,max=1440"`
	Questions   []QuestionRequest `json:"questions" validate:"omitempty,max=200,dive"`
}

// QuizUpdateRequest patches quiz fields.
type QuizUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsPublic    *bool   `json:"is_public"`
	TimeLimit   *int    `json:"time_limit" validate:"omitempty,min=0,max=1440"`
}

// QuizListRequest filters the quiz list.
type QuizListRequest struct {
	Search   string
	Mine     bool
	IsPublic *bool
	Page     int
	PageSize int
}

// QuestionResponse serializes a question. CorrectAnswer is omitted for users who cannot edit the quiz.
type QuestionResponse struct {
	ID            uint     `json:"id"`
	QuizID        uint     `json:"quiz_id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Position      int      `json:"position"`
}

// NewQuestionResponse converts a question. The correct answer is included only when reveal is set.
func NewQuestionResponse(question models.Question, reveal bool) QuestionResponse {
	options := []string(question.Options)
	if options == nil {
		options = []string{}
	}
	response := QuestionResponse{
		ID:       question.ID,
		QuizID:   question.QuizID,
		Text:     question.Text,
		Type:     question.Type,
		Options:  options,
		Position: question.Position,
	}
	if reveal {
		response.CorrectAnswer = question.CorrectAnswer
	}
	return response
}

// NewQuestionResponseSlice converts questions.
func NewQuestionResponseSlice(questions []models.Question, reveal bool) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		out = append(out, NewQuestionResponse(question, reveal))
	}
	return out
}

// QuizResponse serializes a quiz.
type QuizResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	CreatedBy     uint               `json:"created_by"`
	IsPublic      bool               `json:"is_public"`
	TimeLimit     int                `json:"time_limit"`
	QuestionCount int                `json:"question_count"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
}

// NewQuizResponse converts a quiz. Preloaded questions are included when reveal is set.
func NewQuizResponse(quiz models.Quiz, reveal bool) QuizResponse {
	response := QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		CreatedBy:     quiz.CreatedBy,
		IsPublic:      quiz.IsPublic,
		TimeLimit:     quiz.TimeLimit,
		QuestionCount: len(quiz.Questions),
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
	if reveal && len(quiz.Questions) > 0 {
		response.Questions = NewQuestionResponseSlice(quiz.Questions, true)
	}
	return response
}

// QuizListResponse wraps a page of quizzes.
type QuizListResponse struct {
	Items      []QuizResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}
