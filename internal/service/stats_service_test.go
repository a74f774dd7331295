package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

func seedCompletedAttempt(t *testing.T, db *gorm.DB, userID, quizID uint, score, total int, startedAt time.Time) {
	t.Helper()
	completedAt := startedAt.Add(time.Minute)
	attempt := models.QuizAttempt{
		UserID:         userID,
		QuizID:         quizID,
		Score:          score,
		TotalQuestions: total,
		StartedAt:      startedAt,
		CompletedAt:    &completedAt,
	}
	require.NoError(t, db.Create(&attempt).Error)
}

func TestStatsDashboardAggregates(t *testing.T) {
	db := newTestDB(t, "stats")
	svc := NewStatsService(repository.NewStatsRepository(db), repository.NewAttemptRepository(db), nil, 0, zerolog.Nop())
	svc.(*statsService).now = func() time.Time { return fixedNow }

	admin := seedUser(t, db, "admin", models.UserRoleAdmin)
	user := seedUser(t, db, "alice", models.UserRoleUser)
	quiz := seedQuiz(t, db, "Quiz", admin.ID, true)

	seedCompletedAttempt(t, db, user.ID, quiz.ID, 4, 5, fixedNow.Add(-time.Hour))
	seedCompletedAttempt(t, db, user.ID, quiz.ID, 1, 2, fixedNow.Add(-30*time.Minute))
	require.NoError(t, db.Create(&models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, TotalQuestions: 5, StartedAt: fixedNow}).Error)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.TotalQuizzes)
	require.EqualValues(t, 2, stats.TotalUsers)
	require.EqualValues(t, 3, stats.TotalAttempts)
	require.EqualValues(t, 2, stats.CompletedAttempts)
	require.Equal(t, 66.7, stats.SuccessRate)
	require.Equal(t, 65.0, stats.AverageScore)
	require.Len(t, stats.RecentQuizzes, 1)
	require.Len(t, stats.RecentAttempts, 3)
	require.Equal(t, "alice", stats.RecentAttempts[0].Username)
	require.False(t, stats.CacheHit)
}

func TestStatsCachingAndInvalidation(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	db := newTestDB(t, "stats_cache")
	svc := NewStatsService(repository.NewStatsRepository(db), repository.NewAttemptRepository(db), client, time.Minute, zerolog.Nop())
	admin := seedUser(t, db, "admin", models.UserRoleAdmin)
	seedQuiz(t, db, "First", admin.ID, true)

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.True(t, server.Exists(statsCacheKey))

	seedQuiz(t, db, "Second", admin.ID, true)

	cached, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.EqualValues(t, 1, cached.TotalQuizzes)

	svc.Invalidate(context.Background())
	require.False(t, server.Exists(statsCacheKey))

	fresh, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.EqualValues(t, 2, fresh.TotalQuizzes)
}

func TestAdminMetricsDailyActivity(t *testing.T) {
	db := newTestDB(t, "stats_admin")
	svc := NewStatsService(repository.NewStatsRepository(db), repository.NewAttemptRepository(db), nil, 0, zerolog.Nop())
	svc.(*statsService).now = func() time.Time { return fixedNow }

	admin := seedUser(t, db, "admin", models.UserRoleAdmin)
	user := seedUser(t, db, "alice", models.UserRoleUser)
	require.NoError(t, db.Model(&user).Update("status", models.UserStatusSuspended).Error)
	quiz := seedQuiz(t, db, "Quiz", admin.ID, false)
	require.NoError(t, db.Create(&models.AccessRequest{UserID: user.ID, QuizID: quiz.ID, Status: models.AccessRequestPending, RequestedAt: fixedNow}).Error)

	seedCompletedAttempt(t, db, user.ID, quiz.ID, 1, 1, fixedNow.Add(-time.Hour))
	require.NoError(t, db.Create(&models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, StartedAt: fixedNow.AddDate(0, 0, -2)}).Error)
	seedCompletedAttempt(t, db, user.ID, quiz.ID, 1, 1, fixedNow.AddDate(0, 0, -30))

	metrics, err := svc.AdminMetrics(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, metrics.AdminUsers)
	require.EqualValues(t, 1, metrics.SuspendedUsers)
	require.EqualValues(t, 1, metrics.PendingAccessRequests)
	require.Len(t, metrics.DailyActivity, dailyActivityDays)

	today := metrics.DailyActivity[dailyActivityDays-1]
	require.Equal(t, "2024-03-04", today.Date)
	require.EqualValues(t, 1, today.Attempts)
	require.EqualValues(t, 1, today.Completed)

	twoDaysAgo := metrics.DailyActivity[dailyActivityDays-3]
	require.Equal(t, "2024-03-02", twoDaysAgo.Date)
	require.EqualValues(t, 1, twoDaysAgo.Attempts)
	require.Zero(t, twoDaysAgo.Completed)
}
