package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/middleware"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, zerolog.Nop())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     "User.Updated",
		EntityType: "user",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"password": "hunter2",
			"field":    "status",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["password"])
	require.Equal(t, "status", entry.Metadata["field"])
	require.Equal(t, uint(1), entry.ActorID)
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "user.updated", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, zerolog.Nop())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "user"})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	db := newTestDB(t, "activity")
	svc := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: 7, ActorRole: "admin", Action: "assignment.updated", EntityType: "quiz_assignment"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, ActivityEntry{ActorID: 8, Action: "access_request.approved", EntityType: "access_request"})
	require.NoError(t, err)

	page, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 2, Action: "assignment.updated"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 3, page.Pagination.TotalItems)

	system, err := svc.List(ctx, dto.ActivityListRequest{ActorID: 8})
	require.NoError(t, err)
	require.Len(t, system.Items, 1)
	require.Equal(t, "system", system.Items[0].ActorRole)
}

func TestActivityServiceStampsCorrelationAndFiltersWindow(t *testing.T) {
	db := newTestDB(t, "activity_window")
	svc := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	ctx := middleware.ContextWithCorrelation(context.Background(), "req-42")

	entityID := uint(11)
	recorded, err := svc.Record(ctx, ActivityEntry{ActorID: 1, ActorRole: "admin", Action: "user.updated", EntityType: "user", EntityID: &entityID})
	require.NoError(t, err)
	require.Equal(t, "req-42", recorded.CorrelationID)

	byCorrelation, err := svc.List(context.Background(), dto.ActivityListRequest{CorrelationID: "req-42", EntityID: entityID})
	require.NoError(t, err)
	require.Len(t, byCorrelation.Items, 1)

	future := time.Now().Add(time.Hour)
	later, err := svc.List(context.Background(), dto.ActivityListRequest{Since: &future})
	require.NoError(t, err)
	require.Empty(t, later.Items)

	past := time.Now().Add(-time.Hour)
	_, err = svc.List(context.Background(), dto.ActivityListRequest{Since: &future, Until: &past})
	require.ErrorIs(t, err, ErrInvalidState)
}
