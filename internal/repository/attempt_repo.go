package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// ErrAttemptAlreadyCompleted is returned when completing an attempt twice.
var ErrAttemptAlreadyCompleted = errors.New("attempt already completed")

// AttemptRepository persists quiz attempts and answers.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uint) (models.QuizAttempt, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.AttemptView, error)
	Recent(ctx context.Context, limit int) ([]models.AttemptView, error)
	SaveAnswer(ctx context.Context, answer *models.UserAnswer) error
	Complete(ctx context.Context, id uint, score, total int, at time.Time) (models.QuizAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository constructs the attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		First(&attempt, id).Error
	if err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.AttemptView, error) {
	query := r.viewQuery(ctx).Where("quiz_attempts.user_id = ?", userID)
	if limit > 0 {
		query = query.Limit(limit)
	}

	views := make([]models.AttemptView, 0)
	err := query.Order("quiz_attempts.started_at DESC").Order("quiz_attempts.id DESC").Scan(&views).Error
	return views, err
}

func (r *attemptRepository) Recent(ctx context.Context, limit int) ([]models.AttemptView, error) {
	if limit <= 0 {
		limit = 5
	}

	views := make([]models.AttemptView, 0)
	err := r.viewQuery(ctx).
		Order("quiz_attempts.started_at DESC").
		Order("quiz_attempts.id DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

// SaveAnswer stores the answer, replacing an earlier answer to the same question.
func (r *attemptRepository) SaveAnswer(ctx context.Context, answer *models.UserAnswer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "is_correct", "answered_at"}),
	}).Create(answer).Error
}

// Complete scores the attempt if it is still open.
func (r *attemptRepository) Complete(ctx context.Context, id uint, score, total int, at time.Time) (models.QuizAttempt, error) {
	result := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"score":           score,
			"total_questions": total,
			"completed_at":    at,
		})
	if result.Error != nil {
		return models.QuizAttempt{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return models.QuizAttempt{}, err
		}
		return models.QuizAttempt{}, ErrAttemptAlreadyCompleted
	}
	return r.GetByID(ctx, id)
}

func (r *attemptRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("quiz_attempts").
		Select("quiz_attempts.*, users.username AS username, quizzes.title AS quiz_title").
		Joins("JOIN users ON users.id = quiz_attempts.user_id").
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id")
}
