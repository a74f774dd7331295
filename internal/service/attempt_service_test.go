package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

type attemptFixture struct {
	db       *gorm.DB
	attempts AttemptService
	concrete *attemptService
	access   AccessService
	admin    models.User
	user     models.User
}

func setupAttemptService(t *testing.T) attemptFixture {
	t.Helper()

	db := newTestDB(t, "attempt")
	quizRepo := repository.NewQuizRepository(db)
	access := NewAccessService(AccessRepositories{
		Users:       repository.NewUserRepository(db),
		Quizzes:     quizRepo,
		Assignments: repository.NewQuizAssignmentRepository(db),
		Requests:    repository.NewAccessRequestRepository(db),
	}, newTestValidator(), nil, nil, nil, zerolog.Nop())

	svc := NewAttemptService(repository.NewAttemptRepository(db), quizRepo, access, newTestValidator(), nil, 0, zerolog.Nop())
	concrete := svc.(*attemptService)
	concrete.now = func() time.Time { return fixedNow }

	return attemptFixture{
		db:       db,
		attempts: svc,
		concrete: concrete,
		access:   access,
		admin:    seedUser(t, db, "admin", models.UserRoleAdmin),
		user:     seedUser(t, db, "alice", models.UserRoleUser),
	}
}

func TestAttemptStartDeniedWithoutAccess(t *testing.T) {
	f := setupAttemptService(t)
	quiz := seedQuiz(t, f.db, "Private", f.admin.ID, false)

	_, err := f.attempts.Start(context.Background(), f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.ErrorIs(t, err, ErrUnauthorized)

	var count int64
	require.NoError(t, f.db.Model(&models.QuizAttempt{}).Count(&count).Error)
	require.Zero(t, count)

	_, err = f.attempts.Start(context.Background(), f.user.ID, dto.AttemptStartRequest{QuizID: 404})
	require.ErrorIs(t, err, ErrQuizNotFound)
}

func TestAttemptScoresCaseInsensitively(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Capitals", f.admin.ID, true)
	q1 := seedQuestion(t, f.db, quiz.ID, "France", "Paris", 0)
	q2 := seedQuestion(t, f.db, quiz.ID, "Germany", "Berlin", 1)
	q3 := seedQuestion(t, f.db, quiz.ID, "Italy", "Rome", 2)
	seedQuestion(t, f.db, quiz.ID, "Spain", "Madrid", 3)
	seedQuestion(t, f.db, quiz.ID, "Norway", "Oslo", 4)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)
	require.Equal(t, 5, started.TotalQuestions)
	require.Nil(t, started.ExpiresAt)

	answer, err := f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q1.ID, Answer: "  paris "})
	require.NoError(t, err)
	require.True(t, answer.IsCorrect)

	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q2.ID, Answer: "Munich"})
	require.NoError(t, err)
	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q2.ID, Answer: "BERLIN"})
	require.NoError(t, err)
	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q3.ID, Answer: "rome"})
	require.NoError(t, err)

	result, err := f.attempts.Complete(ctx, started.ID, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, result.Score)
	require.Equal(t, 5, result.TotalQuestions)
	require.Equal(t, 60.0, result.Percentage)
	require.True(t, result.Passed)
	require.Len(t, result.Answers, 3)
	require.NotNil(t, result.CompletedAt)

	_, err = f.attempts.Complete(ctx, started.ID, f.user.ID)
	require.ErrorIs(t, err, ErrAttemptCompleted)

	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q1.ID, Answer: "Paris"})
	require.ErrorIs(t, err, ErrInvalidState)

	history, err := f.attempts.ListForUser(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Capitals", history[0].QuizTitle)
}

func TestAttemptBelowThresholdFails(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Hard", f.admin.ID, true)
	q1 := seedQuestion(t, f.db, quiz.ID, "One", "1", 0)
	seedQuestion(t, f.db, quiz.ID, "Two", "2", 1)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)
	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q1.ID, Answer: "1"})
	require.NoError(t, err)

	result, err := f.attempts.Complete(ctx, started.ID, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalQuestions)
	require.Equal(t, 50.0, result.Percentage)
	require.False(t, result.Passed)
}

func TestAttemptUnansweredQuestionsCountAgainstScore(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Partial", f.admin.ID, true)
	q1 := seedQuestion(t, f.db, quiz.ID, "One", "1", 0)
	seedQuestion(t, f.db, quiz.ID, "Two", "2", 1)
	seedQuestion(t, f.db, quiz.ID, "Three", "3", 2)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)
	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: q1.ID, Answer: "1"})
	require.NoError(t, err)

	result, err := f.attempts.Complete(ctx, started.ID, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Score)
	require.Equal(t, 3, result.TotalQuestions)
	require.Len(t, result.Answers, 1)
	require.Equal(t, 33.3, result.Percentage)
	require.False(t, result.Passed)
}

func TestAttemptOwnershipAndForeignQuestions(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Mine", f.admin.ID, true)
	other := seedQuiz(t, f.db, "Other", f.admin.ID, true)
	foreign := seedQuestion(t, f.db, other.ID, "Elsewhere", "x", 0)
	intruder := seedUser(t, f.db, "mallory", models.UserRoleUser)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)

	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: foreign.ID, Answer: "x"})
	require.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = f.attempts.Complete(ctx, started.ID, intruder.ID)
	require.ErrorIs(t, err, ErrNotAttemptOwner)

	_, err = f.attempts.Complete(ctx, 9999, f.user.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestAttemptExpiresAfterTimeLimit(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Timed", f.admin.ID, true)
	require.NoError(t, f.db.Model(&quiz).Update("time_limit", 5).Error)
	question := seedQuestion(t, f.db, quiz.ID, "Quick", "yes", 0)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)
	require.NotNil(t, started.ExpiresAt)
	require.Equal(t, fixedNow.Add(5*time.Minute), *started.ExpiresAt)

	f.concrete.now = func() time.Time { return fixedNow.Add(6 * time.Minute) }
	_, err = f.attempts.Answer(ctx, started.ID, f.user.ID, dto.AnswerRequest{QuestionID: question.ID, Answer: "yes"})
	require.ErrorIs(t, err, ErrAttemptExpired)

	result, err := f.attempts.Complete(ctx, started.ID, f.user.ID)
	require.NoError(t, err)
	require.Zero(t, result.Score)
}

func TestAttemptAllowedAfterApproval(t *testing.T) {
	f := setupAttemptService(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f.db, "Private", f.admin.ID, false)

	request, err := f.access.RequestAccess(ctx, f.user.ID, dto.AccessRequestCreateRequest{QuizID: quiz.ID, Message: "please"})
	require.NoError(t, err)
	_, err = f.access.ResolveAccessRequest(ctx, request.ID, dto.ResolveAccessRequestRequest{Status: models.AccessRequestApproved}, ActivityActor{ID: f.admin.ID, Role: models.UserRoleAdmin})
	require.NoError(t, err)

	started, err := f.attempts.Start(ctx, f.user.ID, dto.AttemptStartRequest{QuizID: quiz.ID})
	require.NoError(t, err)
	require.Equal(t, quiz.ID, started.QuizID)
}
