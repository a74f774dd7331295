package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
)

var fixedNow = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type stubPublisher struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
}

func (s *stubPublisher) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, payload)
	return dto.NotificationResponse{ID: uint(len(s.published)), UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

type stubInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (s *stubInvalidator) Invalidate(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	return db
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		PasswordHash: "hash",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedQuiz(t *testing.T, db *gorm.DB, title string, ownerID uint, public bool) models.Quiz {
	t.Helper()

	quiz := models.Quiz{
		Title:     title,
		CreatedBy: ownerID,
		IsPublic:  public,
	}
	require.NoError(t, db.Create(&quiz).Error)
	return quiz
}

func seedQuestion(t *testing.T, db *gorm.DB, quizID uint, text, answer string, position int) models.Question {
	t.Helper()

	question := models.Question{
		QuizID:        quizID,
		Text:          text,
		Type:          models.QuestionTypeShortAnswer,
		CorrectAnswer: answer,
		Position:      position,
	}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func boolPtr(v bool) *bool {
	return &v
}

func ptrUint(v uint) *uint {
	return &v
}
