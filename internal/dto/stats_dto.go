package dto

import "time"

// StatsResponse powers the dashboard.
type StatsResponse struct {
	TotalQuizzes      int64             `json:"total_quizzes"`
	TotalUsers        int64             `json:"total_users"`
	ActiveUsers       int64             `json:"active_users"`
	TotalAttempts     int64             `json:"total_attempts"`
	CompletedAttempts int64             `json:"completed_attempts"`
	SuccessRate       float64           `json:"success_rate"`
	AverageScore      float64           `json:"average_score"`
	RecentQuizzes     []QuizResponse    `json:"recent_quizzes"`
	RecentAttempts    []AttemptResponse `json:"recent_attempts"`
	GeneratedAt       time.Time         `json:"generated_at"`
	CacheHit          bool              `json:"cache_hit"`
}

// DailyActivity counts attempts started on one day.
type DailyActivity struct {
	Date      string `json:"date"`
	Attempts  int64  `json:"attempts"`
	Completed int64  `json:"completed"`
}

// AdminMetricsResponse extends the dashboard stats with admin-only figures.
type AdminMetricsResponse struct {
	StatsResponse
	AdminUsers            int64           `json:"admin_users"`
	SuspendedUsers        int64           `json:"suspended_users"`
	OnlineUsers           int64           `json:"online_users"`
	PendingAccessRequests int64           `json:"pending_access_requests"`
	DailyActivity         []DailyActivity `json:"daily_activity"`
}
