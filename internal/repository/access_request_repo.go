package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// ErrAccessRequestNotPending is returned when resolving a request that already has a decision.
var ErrAccessRequestNotPending = errors.New("access request is not pending")

// AccessRequestFilter narrows access request listings.
type AccessRequestFilter struct {
	Status string
	UserID *uint
	QuizID *uint
}

// AccessResolution is the decision applied to a pending request.
type AccessResolution struct {
	Status          string
	ReviewedBy      uint
	ReviewedAt      time.Time
	ResponseMessage string
}

// AccessRequestRepository persists access requests.
type AccessRequestRepository interface {
	Create(ctx context.Context, request *models.AccessRequest) error
	GetByID(ctx context.Context, id uint) (models.AccessRequest, error)
	FindPending(ctx context.Context, userID, quizID uint) (models.AccessRequest, error)
	HasApproved(ctx context.Context, userID, quizID uint) (bool, error)
	List(ctx context.Context, filter AccessRequestFilter) ([]models.AccessRequestView, error)
	Resolve(ctx context.Context, id uint, resolution AccessResolution, grant *models.QuizAssignment) (models.AccessRequest, error)
}

type accessRequestRepository struct {
	db *gorm.DB
}

// NewAccessRequestRepository constructs the access request repository.
func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db}
}

func (r *accessRequestRepository) Create(ctx context.Context, request *models.AccessRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (models.AccessRequest, error) {
	var request models.AccessRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.AccessRequest{}, err
	}
	return request, nil
}

func (r *accessRequestRepository) FindPending(ctx context.Context, userID, quizID uint) (models.AccessRequest, error) {
	var request models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, models.AccessRequestPending).
		First(&request).Error
	if err != nil {
		return models.AccessRequest{}, err
	}
	return request, nil
}

func (r *accessRequestRepository) HasApproved(ctx context.Context, userID, quizID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, models.AccessRequestApproved).
		Count(&count).Error
	return count > 0, err
}

func (r *accessRequestRepository) List(ctx context.Context, filter AccessRequestFilter) ([]models.AccessRequestView, error) {
	query := r.db.WithContext(ctx).
		Table("access_requests").
		Select("access_requests.*, users.username AS username, quizzes.title AS quiz_title").
		Joins("JOIN users ON users.id = access_requests.user_id").
		Joins("JOIN quizzes ON quizzes.id = access_requests.quiz_id")

	if filter.Status != "" {
		query = query.Where("access_requests.status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("access_requests.user_id = ?", *filter.UserID)
	}
	if filter.QuizID != nil {
		query = query.Where("access_requests.quiz_id = ?", *filter.QuizID)
	}

	views := make([]models.AccessRequestView, 0)
	err := query.
		Order("access_requests.requested_at DESC").
		Order("access_requests.id DESC").
		Scan(&views).Error
	return views, err
}

// Resolve moves a pending request to its decision. When grant is set the assignment is
// upserted in the same transaction. The status change is conditional on the row still
// being pending, so only one concurrent resolution can succeed.
func (r *accessRequestRepository) Resolve(ctx context.Context, id uint, resolution AccessResolution, grant *models.QuizAssignment) (models.AccessRequest, error) {
	var resolved models.AccessRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ?", id, models.AccessRequestPending).
			Updates(map[string]interface{}{
				"status":           resolution.Status,
				"reviewed_by":      resolution.ReviewedBy,
				"reviewed_at":      resolution.ReviewedAt,
				"response_message": resolution.ResponseMessage,
			})
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			var existing models.AccessRequest
			if err := tx.First(&existing, id).Error; err != nil {
				return err
			}
			return ErrAccessRequestNotPending
		}

		if err := tx.First(&resolved, id).Error; err != nil {
			return err
		}

		if grant != nil {
			grant.UserID = resolved.UserID
			grant.QuizID = resolved.QuizID
			if err := upsertAssignment(tx, grant); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return models.AccessRequest{}, err
	}
	return resolved, nil
}
