package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

// QuizService manages quizzes and their questions.
type QuizService interface {
	Create(ctx context.Context, payload dto.QuizCreateRequest, actor ActivityActor) (dto.QuizResponse, error)
	Get(ctx context.Context, id uint, actor ActivityActor) (dto.QuizResponse, error)
	List(ctx context.Context, req dto.QuizListRequest, actor ActivityActor) (dto.QuizListResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuizUpdateRequest, actor ActivityActor) (dto.QuizResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	Questions(ctx context.Context, quizID uint, actor ActivityActor) ([]dto.QuestionResponse, error)
	AddQuestion(ctx context.Context, quizID uint, payload dto.QuestionRequest, actor ActivityActor) (dto.QuestionResponse, error)
	UpdateQuestion(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, questionID uint, actor ActivityActor) error
}

type quizService struct {
	repo      repository.QuizRepository
	access    AccessChecker
	validator *validator.Validate
	activity  ActivityRecorder
	stats     StatsInvalidator
	logger    zerolog.Logger
}

// NewQuizService constructs the quiz service.
func NewQuizService(repo repository.QuizRepository, access AccessChecker, validate *validator.Validate, activity ActivityRecorder, stats StatsInvalidator, logger zerolog.Logger) QuizService {
	return &quizService{
		repo:      repo,
		access:    access,
		validator: validate,
		activity:  activity,
		stats:     stats,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
	}
}

func (s *quizService) Create(ctx context.Context, payload dto.QuizCreateRequest, actor ActivityActor) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	questions := make([]models.Question, 0, len(payload.Questions))
	for i, item := range payload.Questions {
		question, err := buildQuestion(item, i)
		if err != nil {
			return dto.QuizResponse{}, err
		}
		questions = append(questions, question)
	}

	quiz := models.Quiz{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		CreatedBy:   actor.ID,
		IsPublic:    payload.IsPublic,
		TimeLimit:   payload.TimeLimit,
		Questions:   questions,
	}
	if err := s.repo.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, storageError(err)
	}

	s.record(ctx, actor, "quiz.created", quiz.ID, map[string]interface{}{
		"title":     quiz.Title,
		"is_public": quiz.IsPublic,
		"questions": len(quiz.Questions),
	})
	s.invalidateStats(ctx)

	return dto.NewQuizResponse(quiz, true), nil
}

func (s *quizService) Get(ctx context.Context, id uint, actor ActivityActor) (dto.QuizResponse, error) {
	quiz, err := s.loadQuiz(ctx, id, true)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	return dto.NewQuizResponse(quiz, canManageQuiz(quiz, actor)), nil
}

func (s *quizService) List(ctx context.Context, req dto.QuizListRequest, actor ActivityActor) (dto.QuizListResponse, error) {
	filter := repository.QuizFilter{
		Search:   req.Search,
		IsPublic: req.IsPublic,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Mine {
		filter.CreatedBy = &actor.ID
	}

	quizzes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.QuizListResponse{}, storageError(err)
	}

	items := make([]dto.QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		items = append(items, dto.NewQuizResponse(quiz, false))
	}

	return dto.QuizListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *quizService) Update(ctx context.Context, id uint, payload dto.QuizUpdateRequest, actor ActivityActor) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz, err := s.loadQuiz(ctx, id, false)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	if !canManageQuiz(quiz, actor) {
		return dto.QuizResponse{}, ErrNotQuizOwner
	}

	updates := map[string]interface{}{}
	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		updates["description"] = strings.TrimSpace(*payload.Description)
	}
	if payload.IsPublic != nil {
		updates["is_public"] = *payload.IsPublic
	}
	if payload.TimeLimit != nil {
		updates["time_limit"] = *payload.TimeLimit
	}

	if len(updates) == 0 {
		full, err := s.loadQuiz(ctx, id, true)
		if err != nil {
			return dto.QuizResponse{}, err
		}
		return dto.NewQuizResponse(full, true), nil
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return dto.QuizResponse{}, storageError(err)
	}

	s.record(ctx, actor, "quiz.updated", id, updates)
	s.invalidateStats(ctx)

	return dto.NewQuizResponse(updated, true), nil
}

func (s *quizService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	quiz, err := s.loadQuiz(ctx, id, false)
	if err != nil {
		return err
	}
	if !canManageQuiz(quiz, actor) {
		return ErrNotQuizOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuizNotFound
		}
		return storageError(err)
	}

	s.record(ctx, actor, "quiz.deleted", id, map[string]interface{}{"title": quiz.Title})
	s.invalidateStats(ctx)

	s.logger.Info().Uint("quiz_id", id).Uint("actor_id", actor.ID).Msg("quiz deleted")
	return nil
}

// Questions lists a quiz's questions for anyone who may take or manage it.
// Answer keys are only revealed to managers.
func (s *quizService) Questions(ctx context.Context, quizID uint, actor ActivityActor) ([]dto.QuestionResponse, error) {
	quiz, err := s.loadQuiz(ctx, quizID, true)
	if err != nil {
		return nil, err
	}

	manage := canManageQuiz(quiz, actor)
	if !manage {
		allowed, err := s.access.CanStart(ctx, actor.ID, quiz.ID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrQuizAccessDenied
		}
	}

	return dto.NewQuestionResponseSlice(quiz.Questions, manage), nil
}

func (s *quizService) AddQuestion(ctx context.Context, quizID uint, payload dto.QuestionRequest, actor ActivityActor) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	quiz, err := s.loadQuiz(ctx, quizID, false)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if !canManageQuiz(quiz, actor) {
		return dto.QuestionResponse{}, ErrNotQuizOwner
	}

	count, err := s.repo.CountQuestions(ctx, quizID)
	if err != nil {
		return dto.QuestionResponse{}, storageError(err)
	}

	question, err := buildQuestion(payload, int(count))
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	question.QuizID = quizID

	if err := s.repo.CreateQuestion(ctx, &question); err != nil {
		return dto.QuestionResponse{}, storageError(err)
	}

	s.record(ctx, actor, "question.created", quizID, map[string]interface{}{"question_id": question.ID})
	return dto.NewQuestionResponse(question, true), nil
}

func (s *quizService) UpdateQuestion(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, quiz, err := s.loadQuestion(ctx, questionID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if !canManageQuiz(quiz, actor) {
		return dto.QuestionResponse{}, ErrNotQuizOwner
	}

	merged := dto.QuestionRequest{
		Text:          question.Text,
		Type:          question.Type,
		Options:       []string(question.Options),
		CorrectAnswer: question.CorrectAnswer,
		Position:      &question.Position,
	}
	if payload.Text != nil {
		merged.Text = *payload.Text
	}
	if payload.Type != nil {
		merged.Type = *payload.Type
	}
	if payload.Options != nil {
		merged.Options = payload.Options
	}
	if payload.CorrectAnswer != nil {
		merged.CorrectAnswer = *payload.CorrectAnswer
	}
	if payload.Position != nil {
		merged.Position = payload.Position
	}

	rebuilt, err := buildQuestion(merged, question.Position)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	updated, err := s.repo.UpdateQuestion(ctx, questionID, map[string]interface{}{
		"text":           rebuilt.Text,
		"type":           rebuilt.Type,
		"options":        rebuilt.Options,
		"correct_answer": rebuilt.CorrectAnswer,
		"position":       rebuilt.Position,
	})
	if err != nil {
		return dto.QuestionResponse{}, storageError(err)
	}

	s.record(ctx, actor, "question.updated", quiz.ID, map[string]interface{}{"question_id": questionID})
	return dto.NewQuestionResponse(updated, true), nil
}

func (s *quizService) DeleteQuestion(ctx context.Context, questionID uint, actor ActivityActor) error {
	_, quiz, err := s.loadQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if !canManageQuiz(quiz, actor) {
		return ErrNotQuizOwner
	}

	if err := s.repo.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return storageError(err)
	}

	s.record(ctx, actor, "question.deleted", quiz.ID, map[string]interface{}{"question_id": questionID})
	return nil
}

func (s *quizService) loadQuiz(ctx context.Context, id uint, withQuestions bool) (models.Quiz, error) {
	var (
		quiz models.Quiz
		err  error
	)
	if withQuestions {
		quiz, err = s.repo.GetWithQuestions(ctx, id)
	} else {
		quiz, err = s.repo.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quiz{}, ErrQuizNotFound
		}
		return models.Quiz{}, storageError(err)
	}
	return quiz, nil
}

func (s *quizService) loadQuestion(ctx context.Context, id uint) (models.Question, models.Quiz, error) {
	question, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, models.Quiz{}, ErrQuestionNotFound
		}
		return models.Question{}, models.Quiz{}, storageError(err)
	}

	quiz, err := s.loadQuiz(ctx, question.QuizID, false)
	if err != nil {
		return models.Question{}, models.Quiz{}, err
	}
	return question, quiz, nil
}

func (s *quizService) record(ctx context.Context, actor ActivityActor, action string, quizID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "quiz",
		EntityID:   &quizID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *quizService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func canManageQuiz(quiz models.Quiz, actor ActivityActor) bool {
	return actor.IsAdmin() || quiz.OwnedBy(actor.ID)
}

// buildQuestion normalizes a question payload and checks the answer key against its type.
func buildQuestion(payload dto.QuestionRequest, defaultPosition int) (models.Question, error) {
	options := make([]string, 0, len(payload.Options))
	for _, option := range payload.Options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			options = append(options, trimmed)
		}
	}

	questionType := strings.TrimSpace(payload.Type)
	if questionType == "" {
		questionType = models.QuestionTypeShortAnswer
		if len(options) > 0 {
			questionType = models.QuestionTypeMultipleChoice
		}
	}

	answer := strings.TrimSpace(payload.CorrectAnswer)
	switch questionType {
	case models.QuestionTypeMultipleChoice:
		if len(options) < 2 {
			return models.Question{}, ErrInvalidAnswerKey
		}
		matched := ""
		for _, option := range options {
			if strings.EqualFold(option, answer) {
				matched = option
				break
			}
		}
		if matched == "" {
			return models.Question{}, ErrInvalidAnswerKey
		}
		answer = matched
	case models.QuestionTypeTrueFalse:
		answer = strings.ToLower(answer)
		if answer != "true" && answer != "false" {
			return models.Question{}, ErrInvalidAnswerKey
		}
		options = []string{"true", "false"}
	default:
		options = nil
	}
	if answer == "" {
		return models.Question{}, ErrInvalidAnswerKey
	}

	position := defaultPosition
	if payload.Position != nil {
		position = *payload.Position
	}

	return models.Question{
		Text:          strings.TrimSpace(payload.Text),
		Type:          questionType,
		Options:       datatypes.JSONSlice[string](options),
		CorrectAnswer: answer,
		Position:      position,
	}, nil
}
