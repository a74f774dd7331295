package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/observability"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

const (
	statsCacheKey        = "stats:dashboard"
	adminMetricsCacheKey = "stats:admin"
	recentItemsLimit     = 5
	dailyActivityDays    = 7
)

// StatsService aggregates dashboard figures, caching them in Redis when available.
type StatsService interface {
	StatsInvalidator
	Dashboard(ctx context.Context) (dto.StatsResponse, error)
	AdminMetrics(ctx context.Context) (dto.AdminMetricsResponse, error)
}

type statsService struct {
	repo     repository.StatsRepository
	attempts repository.AttemptRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStatsService constructs the stats service. cache may be nil.
func NewStatsService(repo repository.StatsRepository, attempts repository.AttemptRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	return &statsService{
		repo:     repo,
		attempts: attempts,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
		tracer:   observability.Tracer("service/stats"),
		now:      time.Now,
	}
}

func (s *statsService) Dashboard(ctx context.Context) (dto.StatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stats.dashboard", trace.WithAttributes(attribute.String("stats.cache_key", statsCacheKey)))
	defer span.End()

	var cached dto.StatsResponse
	if s.readCache(ctx, statsCacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("stats.cache_hit", true))
		return cached, nil
	}

	now := s.now()
	totals, err := s.repo.Totals(ctx, now.Add(-models.OnlineWindow))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "totals_failed")
		return dto.StatsResponse{}, storageError(err)
	}

	response, err := s.buildDashboard(ctx, totals, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard_failed")
		return dto.StatsResponse{}, err
	}

	s.writeCache(ctx, statsCacheKey, response)
	return response, nil
}

func (s *statsService) AdminMetrics(ctx context.Context) (dto.AdminMetricsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stats.admin_metrics", trace.WithAttributes(attribute.String("stats.cache_key", adminMetricsCacheKey)))
	defer span.End()

	var cached dto.AdminMetricsResponse
	if s.readCache(ctx, adminMetricsCacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("stats.cache_hit", true))
		return cached, nil
	}

	now := s.now()
	totals, err := s.repo.Totals(ctx, now.Add(-models.OnlineWindow))
	if err != nil {
		span.RecordError(err)
		return dto.AdminMetricsResponse{}, storageError(err)
	}

	dashboard, err := s.buildDashboard(ctx, totals, now)
	if err != nil {
		span.RecordError(err)
		return dto.AdminMetricsResponse{}, err
	}

	since := startOfDay(now).AddDate(0, 0, -(dailyActivityDays - 1))
	attempts, err := s.repo.AttemptsSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		return dto.AdminMetricsResponse{}, storageError(err)
	}

	response := dto.AdminMetricsResponse{
		StatsResponse:         dashboard,
		AdminUsers:            totals.AdminUsers,
		SuspendedUsers:        totals.SuspendedUsers,
		OnlineUsers:           totals.OnlineUsers,
		PendingAccessRequests: totals.PendingRequests,
		DailyActivity:         dailyActivity(attempts, since, dailyActivityDays),
	}

	s.writeCache(ctx, adminMetricsCacheKey, response)
	return response, nil
}

// Invalidate drops cached figures. Errors are logged only.
func (s *statsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey, adminMetricsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
		return
	}
	observability.StatsCache().WithLabelValues("invalidate").Inc()
}

func (s *statsService) buildDashboard(ctx context.Context, totals repository.StatsTotals, now time.Time) (dto.StatsResponse, error) {
	scores, err := s.repo.CompletedScores(ctx)
	if err != nil {
		return dto.StatsResponse{}, storageError(err)
	}
	successRate, averageScore := scoreSummary(scores, totals.Attempts)

	quizzes, err := s.repo.RecentQuizzes(ctx, recentItemsLimit)
	if err != nil {
		return dto.StatsResponse{}, storageError(err)
	}
	recentQuizzes := make([]dto.QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		recentQuizzes = append(recentQuizzes, dto.NewQuizResponse(quiz, false))
	}

	attempts, err := s.attempts.Recent(ctx, recentItemsLimit)
	if err != nil {
		return dto.StatsResponse{}, storageError(err)
	}

	return dto.StatsResponse{
		TotalQuizzes:      totals.Quizzes,
		TotalUsers:        totals.Users,
		ActiveUsers:       totals.ActiveUsers,
		TotalAttempts:     totals.Attempts,
		CompletedAttempts: totals.CompletedAttempts,
		SuccessRate:       successRate,
		AverageScore:      averageScore,
		RecentQuizzes:     recentQuizzes,
		RecentAttempts:    dto.NewAttemptResponseSlice(attempts),
		GeneratedAt:       now,
	}, nil
}

func (s *statsService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read stats cache")
		}
		observability.StatsCache().WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(payload, target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed stats cache entry")
		observability.StatsCache().WithLabelValues("miss").Inc()
		return false
	}

	observability.StatsCache().WithLabelValues("hit").Inc()
	return true
}

func (s *statsService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store stats cache")
	}
}

// scoreSummary returns the share of started attempts that were completed and
// the mean completed percentage, both rounded to one decimal place.
func scoreSummary(scores []repository.AttemptScore, totalAttempts int64) (successRate, averageScore float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, score := range scores {
		sum += models.ScorePercentage(score.Score, score.TotalQuestions)
	}
	averageScore = math.Round(sum/float64(len(scores))*10) / 10

	if totalAttempts > 0 {
		successRate = math.Round(float64(len(scores))/float64(totalAttempts)*1000) / 10
	}
	return successRate, averageScore
}

func dailyActivity(attempts []models.QuizAttempt, since time.Time, days int) []dto.DailyActivity {
	buckets := make([]dto.DailyActivity, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = dto.DailyActivity{Date: date}
		index[date] = i
	}

	for _, attempt := range attempts {
		i, ok := index[attempt.StartedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].Attempts++
		if attempt.IsCompleted() {
			buckets[i].Completed++
		}
	}
	return buckets
}

func startOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
