package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/observability"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

// DefaultPassingPercentage is used when no passing threshold is configured.
const DefaultPassingPercentage = 60.0

// AttemptService runs quiz attempts and scores them.
type AttemptService interface {
	Start(ctx context.Context, userID uint, payload dto.AttemptStartRequest) (dto.AttemptResponse, error)
	Answer(ctx context.Context, attemptID, userID uint, payload dto.AnswerRequest) (dto.AnswerResponse, error)
	Complete(ctx context.Context, attemptID, userID uint) (dto.AttemptResultResponse, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]dto.AttemptResponse, error)
}

type attemptService struct {
	attempts  repository.AttemptRepository
	quizzes   repository.QuizRepository
	access    AccessChecker
	validator *validator.Validate
	stats     StatsInvalidator
	passing   float64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAttemptService constructs the attempt service. A non-positive passing percentage falls back to DefaultPassingPercentage.
func NewAttemptService(attempts repository.AttemptRepository, quizzes repository.QuizRepository, access AccessChecker, validate *validator.Validate, stats StatsInvalidator, passing float64, logger zerolog.Logger) AttemptService {
	if passing <= 0 {
		passing = DefaultPassingPercentage
	}
	return &attemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		access:    access,
		validator: validate,
		stats:     stats,
		passing:   passing,
		logger:    logger.With().Str("component", "attempt_service").Logger(),
		tracer:    observability.Tracer("service/attempt"),
		now:       time.Now,
	}
}

func (s *attemptService) Start(ctx context.Context, userID uint, payload dto.AttemptStartRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, err
	}

	quiz, err := s.quizzes.GetWithQuestions(ctx, payload.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrQuizNotFound
		}
		return dto.AttemptResponse{}, storageError(err)
	}

	allowed, err := s.access.CanStart(ctx, userID, quiz.ID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	if !allowed {
		observability.AccessEvents().WithLabelValues("attempt_denied").Inc()
		return dto.AttemptResponse{}, ErrQuizAccessDenied
	}

	attempt := models.QuizAttempt{
		UserID:         userID,
		QuizID:         quiz.ID,
		TotalQuestions: len(quiz.Questions),
		StartedAt:      s.now(),
	}
	if err := s.attempts.Create(ctx, &attempt); err != nil {
		return dto.AttemptResponse{}, storageError(err)
	}
	s.invalidateStats(ctx)

	s.logger.Info().Uint("attempt_id", attempt.ID).Uint("user_id", userID).Uint("quiz_id", quiz.ID).Msg("attempt started")

	response := dto.NewAttemptResponse(models.AttemptView{QuizAttempt: attempt, QuizTitle: quiz.Title})
	if deadline, ok := quiz.Deadline(attempt.StartedAt); ok {
		response.ExpiresAt = &deadline
	}
	return response, nil
}

func (s *attemptService) Answer(ctx context.Context, attemptID, userID uint, payload dto.AnswerRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if attempt.IsCompleted() {
		return dto.AnswerResponse{}, ErrAttemptCompleted
	}

	quiz, err := s.quizzes.GetByID(ctx, attempt.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrQuizNotFound
		}
		return dto.AnswerResponse{}, storageError(err)
	}
	now := s.now()
	if deadline, ok := quiz.Deadline(attempt.StartedAt); ok && now.After(deadline) {
		return dto.AnswerResponse{}, ErrAttemptExpired
	}

	question, err := s.quizzes.GetQuestion(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrQuestionNotFound
		}
		return dto.AnswerResponse{}, storageError(err)
	}
	if question.QuizID != attempt.QuizID {
		return dto.AnswerResponse{}, ErrQuestionNotFound
	}

	answer := models.UserAnswer{
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		Answer:     payload.Answer,
		IsCorrect:  question.IsCorrect(payload.Answer),
		AnsweredAt: now,
	}
	if err := s.attempts.SaveAnswer(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, storageError(err)
	}

	return dto.NewAnswerResponse(answer), nil
}

// Complete scores every stored answer against the current answer keys and closes the attempt.
func (s *attemptService) Complete(ctx context.Context, attemptID, userID uint) (dto.AttemptResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attempt.complete", trace.WithAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
	))
	defer span.End()

	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return dto.AttemptResultResponse{}, err
	}
	if attempt.IsCompleted() {
		return dto.AttemptResultResponse{}, ErrAttemptCompleted
	}

	questions, err := s.quizzes.ListQuestions(ctx, attempt.QuizID)
	if err != nil {
		return dto.AttemptResultResponse{}, storageError(err)
	}
	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	score := 0
	answers := make([]dto.AnswerResponse, 0, len(attempt.Answers))
	for _, answer := range attempt.Answers {
		question, ok := byID[answer.QuestionID]
		if !ok {
			continue
		}
		answer.IsCorrect = question.IsCorrect(answer.Answer)
		if answer.IsCorrect {
			score++
		}
		answers = append(answers, dto.NewAnswerResponse(answer))
	}

	completed, err := s.attempts.Complete(ctx, attempt.ID, score, len(questions), s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptAlreadyCompleted):
			return dto.AttemptResultResponse{}, ErrAttemptCompleted
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.AttemptResultResponse{}, ErrAttemptNotFound
		default:
			span.RecordError(err)
			return dto.AttemptResultResponse{}, storageError(err)
		}
	}
	s.invalidateStats(ctx)

	result := dto.AttemptResultResponse{
		AttemptResponse: dto.NewAttemptResponse(models.AttemptView{QuizAttempt: completed}),
		Answers:         answers,
	}
	result.Passed = result.Percentage >= s.passing
	span.SetAttributes(
		attribute.Int("attempt.score", completed.Score),
		attribute.Bool("attempt.passed", result.Passed),
	)

	s.logger.Info().
		Uint("attempt_id", completed.ID).
		Int("score", completed.Score).
		Int("total", completed.TotalQuestions).
		Bool("passed", result.Passed).
		Msg("attempt completed")

	return result, nil
}

func (s *attemptService) ListForUser(ctx context.Context, userID uint, limit int) ([]dto.AttemptResponse, error) {
	views, err := s.attempts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.NewAttemptResponseSlice(views), nil
}

func (s *attemptService) ownedAttempt(ctx context.Context, attemptID, userID uint) (models.QuizAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QuizAttempt{}, ErrAttemptNotFound
		}
		return models.QuizAttempt{}, storageError(err)
	}
	if attempt.UserID != userID {
		return models.QuizAttempt{}, ErrNotAttemptOwner
	}
	return attempt, nil
}

func (s *attemptService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}
