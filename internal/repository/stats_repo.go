package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// StatsTotals holds the counters shown on the dashboard.
type StatsTotals struct {
	Quizzes           int64
	Users             int64
	ActiveUsers       int64
	AdminUsers        int64
	SuspendedUsers    int64
	OnlineUsers       int64
	Attempts          int64
	CompletedAttempts int64
	PendingRequests   int64
}

// AttemptScore is the score of one completed attempt.
type AttemptScore struct {
	Score          int
	TotalQuestions int
}

// StatsRepository supplies aggregates for dashboards.
type StatsRepository interface {
	Totals(ctx context.Context, onlineSince time.Time) (StatsTotals, error)
	CompletedScores(ctx context.Context) ([]AttemptScore, error)
	RecentQuizzes(ctx context.Context, limit int) ([]models.Quiz, error)
	AttemptsSince(ctx context.Context, since time.Time) ([]models.QuizAttempt, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository constructs the stats repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Totals(ctx context.Context, onlineSince time.Time) (StatsTotals, error) {
	db := r.db.WithContext(ctx)
	var totals StatsTotals

	counts := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&totals.Quizzes, db.Model(&models.Quiz{})},
		{&totals.Users, db.Model(&models.User{})},
		{&totals.ActiveUsers, db.Model(&models.User{}).Where("status = ?", models.UserStatusActive)},
		{&totals.AdminUsers, db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin)},
		{&totals.SuspendedUsers, db.Model(&models.User{}).Where("status = ?", models.UserStatusSuspended)},
		{&totals.OnlineUsers, db.Model(&models.User{}).Where("last_activity_at >= ?", onlineSince)},
		{&totals.Attempts, db.Model(&models.QuizAttempt{})},
		{&totals.CompletedAttempts, db.Model(&models.QuizAttempt{}).Where("completed_at IS NOT NULL")},
		{&totals.PendingRequests, db.Model(&models.AccessRequest{}).Where("status = ?", models.AccessRequestPending)},
	}

	for _, count := range counts {
		if err := count.query.Count(count.target).Error; err != nil {
			return StatsTotals{}, err
		}
	}

	return totals, nil
}

func (r *statsRepository) CompletedScores(ctx context.Context) ([]AttemptScore, error) {
	scores := make([]AttemptScore, 0)
	err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select("score, total_questions").
		Where("completed_at IS NOT NULL").
		Scan(&scores).Error
	return scores, err
}

func (r *statsRepository) RecentQuizzes(ctx context.Context, limit int) ([]models.Quiz, error) {
	if limit <= 0 {
		limit = 5
	}
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&quizzes).Error
	return quizzes, err
}

func (r *statsRepository) AttemptsSince(ctx context.Context, since time.Time) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("started_at >= ?", since).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, err
}
