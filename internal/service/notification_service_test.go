package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

func TestNotificationPublishDeliversToSubscriber(t *testing.T) {
	db := newTestDB(t, "notifications")
	user := seedUser(t, db, "alice", models.UserRoleUser)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, newTestValidator(), zerolog.Nop())

	stream, cancel := svc.Subscribe(user.ID)
	defer cancel()

	published, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  user.ID,
		Type:    models.NotificationAccessApproved,
		Message: "<b>Access granted</b>",
	})
	require.NoError(t, err)
	require.Equal(t, "Access granted", published.Message)

	select {
	case got := <-stream:
		require.Equal(t, published.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}

	list, err := svc.List(context.Background(), user.ID, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.EqualValues(t, 1, list.Unread)

	read, err := svc.MarkRead(context.Background(), published.ID, user.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	unread, err := svc.List(context.Background(), user.ID, dto.NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread.Items)
	require.Zero(t, unread.Unread)
}

func TestNotificationMarkReadOtherUser(t *testing.T) {
	db := newTestDB(t, "notifications_owner")
	alice := seedUser(t, db, "alice", models.UserRoleUser)
	bob := seedUser(t, db, "bob", models.UserRoleUser)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, newTestValidator(), zerolog.Nop())

	published, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{UserID: alice.ID, Type: "generic", Message: "hello"})
	require.NoError(t, err)

	_, err = svc.MarkRead(context.Background(), published.ID, bob.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationMarkAllReadOnlyTouchesOwner(t *testing.T) {
	db := newTestDB(t, "notifications_read_all")
	alice := seedUser(t, db, "alice", models.UserRoleUser)
	bob := seedUser(t, db, "bob", models.UserRoleUser)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, newTestValidator(), zerolog.Nop())
	ctx := context.Background()

	for _, userID := range []uint{alice.ID, alice.ID, bob.ID} {
		_, err := svc.Publish(ctx, dto.NotificationCreateRequest{UserID: userID, Type: "generic", Message: "hello"})
		require.NoError(t, err)
	}

	result, err := svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Updated)

	again, err := svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	require.Zero(t, again.Updated)

	bobs, err := svc.List(ctx, bob.ID, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 1, bobs.Unread)
}

func TestNotificationRejectsEmptyMessageAfterSanitizing(t *testing.T) {
	db := newTestDB(t, "notifications_empty")
	user := seedUser(t, db, "alice", models.UserRoleUser)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, newTestValidator(), zerolog.Nop())

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{UserID: user.ID, Type: "generic", Message: "<script>x</script>"})
	require.Error(t, err)
}

func TestNotificationRelayedAcrossReplicasViaRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t, "notifications_relay")
	user := seedUser(t, db, "alice", models.UserRoleUser)
	repo := repository.NewNotificationRepository(db)

	sender := NewNotificationService(repo, client, "quizmaster", nil, newTestValidator(), zerolog.Nop())
	receiver := NewNotificationService(repo, client, "quizmaster", nil, newTestValidator(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	receiver.Start(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("quizmaster:notifications")["quizmaster:notifications"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	stream, unsubscribe := receiver.Subscribe(user.ID)
	defer unsubscribe()

	published, err := sender.Publish(context.Background(), dto.NotificationCreateRequest{UserID: user.ID, Type: "generic", Message: "relayed"})
	require.NoError(t, err)

	select {
	case got := <-stream:
		require.Equal(t, published.ID, got.ID)
		require.Equal(t, "relayed", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not relayed")
	}
}

func TestNotificationRelayUsesSingleTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewNotificationRepository(newTestDB(t, "notifications_transport"))

	both := NewNotificationService(repo, client, "quizmaster", &nats.Conn{}, newTestValidator(), zerolog.Nop()).(*notificationService)
	require.Equal(t, relayNATS, both.relayTransport())

	redisOnly := NewNotificationService(repo, client, "quizmaster", nil, newTestValidator(), zerolog.Nop()).(*notificationService)
	require.Equal(t, relayRedis, redisOnly.relayTransport())

	local := NewNotificationService(repo, nil, "quizmaster", nil, newTestValidator(), zerolog.Nop()).(*notificationService)
	require.Equal(t, relayNone, local.relayTransport())
	require.NoError(t, local.relay(context.Background(), dto.NotificationResponse{ID: 1, UserID: 1}))
}

func TestNotificationBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := newNotificationBroker()
	ch := make(chan dto.NotificationResponse, 1)

	broker.subscribe(1, ch)
	broker.broadcast(1, dto.NotificationResponse{ID: 1})
	broker.broadcast(1, dto.NotificationResponse{ID: 2})
	broker.unsubscribe(1, ch)
	broker.unsubscribe(1, ch)

	first, ok := <-ch
	require.True(t, ok)
	require.Equal(t, uint(1), first.ID)
	_, ok = <-ch
	require.False(t, ok)
}
