package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// QuizAssignmentRepository persists (user, quiz) assignment rows.
type QuizAssignmentRepository interface {
	Get(ctx context.Context, userID, quizID uint) (models.QuizAssignment, error)
	GetView(ctx context.Context, userID, quizID uint) (models.AssignmentView, error)
	ListByUser(ctx context.Context, userID uint) ([]models.AssignmentView, error)
	List(ctx context.Context) ([]models.AssignmentView, error)
	Upsert(ctx context.Context, assignment *models.QuizAssignment) error
	UpsertBatch(ctx context.Context, assignments []models.QuizAssignment) error
}

type quizAssignmentRepository struct {
	db *gorm.DB
}

// NewQuizAssignmentRepository instantiates a GORM-backed repository.
func NewQuizAssignmentRepository(db *gorm.DB) QuizAssignmentRepository {
	return &quizAssignmentRepository{db: db}
}

func (r *quizAssignmentRepository) Get(ctx context.Context, userID, quizID uint) (models.QuizAssignment, error) {
	var assignment models.QuizAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		First(&assignment).Error
	if err != nil {
		return models.QuizAssignment{}, err
	}
	return assignment, nil
}

func (r *quizAssignmentRepository) GetView(ctx context.Context, userID, quizID uint) (models.AssignmentView, error) {
	var views []models.AssignmentView
	err := r.viewQuery(ctx).
		Where("quiz_assignments.user_id = ? AND quiz_assignments.quiz_id = ?", userID, quizID).
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return models.AssignmentView{}, err
	}
	if len(views) == 0 {
		return models.AssignmentView{}, gorm.ErrRecordNotFound
	}
	return views[0], nil
}

func (r *quizAssignmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.AssignmentView, error) {
	views := make([]models.AssignmentView, 0)
	err := r.viewQuery(ctx).
		Where("quiz_assignments.user_id = ?", userID).
		Order("quiz_assignments.quiz_id ASC").
		Scan(&views).Error
	return views, err
}

func (r *quizAssignmentRepository) List(ctx context.Context) ([]models.AssignmentView, error) {
	views := make([]models.AssignmentView, 0)
	err := r.viewQuery(ctx).
		Order("quiz_assignments.assigned_at DESC").
		Order("quiz_assignments.user_id ASC").
		Order("quiz_assignments.quiz_id ASC").
		Scan(&views).Error
	return views, err
}

func (r *quizAssignmentRepository) Upsert(ctx context.Context, assignment *models.QuizAssignment) error {
	return upsertAssignment(r.db.WithContext(ctx), assignment)
}

// UpsertBatch applies every assignment in one transaction. A missing quiz rolls back the whole batch.
func (r *quizAssignmentRepository) UpsertBatch(ctx context.Context, assignments []models.QuizAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range assignments {
			var count int64
			if err := tx.Model(&models.Quiz{}).Where("id = ?", assignments[i].QuizID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("quiz %d: %w", assignments[i].QuizID, gorm.ErrRecordNotFound)
			}
			if err := upsertAssignment(tx, &assignments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *quizAssignmentRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("quiz_assignments").
		Select("quiz_assignments.*, users.username AS username, quizzes.title AS quiz_title").
		Joins("JOIN users ON users.id = quiz_assignments.user_id").
		Joins("JOIN quizzes ON quizzes.id = quiz_assignments.quiz_id")
}

func upsertAssignment(db *gorm.DB, assignment *models.QuizAssignment) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "quiz_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_assigned", "has_access", "assigned_by", "assigned_at", "updated_at"}),
	}).Create(assignment).Error
}
