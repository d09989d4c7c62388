package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
)

type memoryRepo struct {
	mu            sync.Mutex
	notifications []entity.Notification
	createErr     error
}

func (m *memoryRepo) Create(_ context.Context, n *entity.Notification) (entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return entity.Notification{}, m.createErr
	}

	m.notifications = append(m.notifications, *n)

	return *n, nil
}

func (m *memoryRepo) ListByReceiver(_ context.Context, receiverID uuid.UUID, _ bool, _, _ int) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.Notification
	for _, n := range m.notifications {
		if n.ReceiverID == receiverID {
			out = append(out, n)
		}
	}

	return out, nil
}

func (m *memoryRepo) MarkRead(_ context.Context, receiverID, id uuid.UUID) error {
	return m.find(receiverID, id)
}

func (m *memoryRepo) Delete(_ context.Context, receiverID, id uuid.UUID) error {
	return m.find(receiverID, id)
}

func (m *memoryRepo) find(receiverID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.ID == id && n.ReceiverID == receiverID {
			return nil
		}
	}

	return domain.NotFound(errcodes.NotificationNotFound, "notification not found")
}

type recordingPusher struct {
	online map[uuid.UUID]bool
	pushed []uuid.UUID
}

func (p *recordingPusher) PushToUser(_ context.Context, userID uuid.UUID, _ value.Event, _ any) bool {
	if !p.online[userID] {
		return false
	}

	p.pushed = append(p.pushed, userID)

	return true
}

type failingEnqueuer struct {
	calls int
}

func (f *failingEnqueuer) EnqueueContext(context.Context, *asynq.Task, ...asynq.Option) (*asynq.TaskInfo, error) {
	f.calls++
	return nil, errors.New("redis is down")
}

type capturingEnqueuer struct {
	tasks []*asynq.Task
}

func (c *capturingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestDispatcherNotify(t *testing.T) {
	ctx := context.Background()
	sender, receiver, offline := uuid.New(), uuid.New(), uuid.New()

	t.Run("persists and pushes to online receiver", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{}
		pusher := &recordingPusher{online: map[uuid.UUID]bool{receiver: true}}
		dispatcher := NewDispatcher(repo, pusher)

		dispatcher.Notify(ctx, entity.NotificationDraft{
			SenderID:   sender,
			ReceiverID: receiver,
			Type:       value.NotificationOffer,
			Content:    "new offer",
		})

		rq.Len(repo.notifications, 1)
		rq.Equal(value.NotificationOffer, repo.notifications[0].Type)
		rq.False(repo.notifications[0].IsRead)
		rq.Equal([]uuid.UUID{receiver}, pusher.pushed)
	})

	t.Run("offline receiver still gets a record", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{}
		pusher := &recordingPusher{}

		NewDispatcher(repo, pusher).Notify(ctx, entity.NotificationDraft{
			SenderID:   sender,
			ReceiverID: offline,
			Type:       value.NotificationTrade,
		})

		rq.Len(repo.notifications, 1)
		rq.Empty(pusher.pushed)
	})

	t.Run("self notification is suppressed", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{}
		pusher := &recordingPusher{online: map[uuid.UUID]bool{sender: true}}

		rq.NoError(NewDispatcher(repo, pusher).Deliver(ctx, entity.NotificationDraft{
			SenderID:   sender,
			ReceiverID: sender,
			Type:       value.NotificationOffer,
		}))

		rq.Empty(repo.notifications)
		rq.Empty(pusher.pushed)
	})

	t.Run("storage failure is swallowed by Notify", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{createErr: domain.Storage(context.DeadlineExceeded, "insert")}
		dispatcher := NewDispatcher(repo, &recordingPusher{})

		rq.NotPanics(func() {
			dispatcher.Notify(ctx, entity.NotificationDraft{SenderID: sender, ReceiverID: receiver})
		})
		rq.Error(dispatcher.Deliver(ctx, entity.NotificationDraft{SenderID: sender, ReceiverID: receiver}))
	})
}

func TestDispatcherReceiverOperations(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	repo := &memoryRepo{}
	dispatcher := NewDispatcher(repo, nil)
	receiver := uuid.New()

	dispatcher.Notify(ctx, entity.NotificationDraft{SenderID: uuid.New(), ReceiverID: receiver, Type: value.NotificationGeneric})

	list, err := dispatcher.List(ctx, receiver, false, value.Page{})
	rq.NoError(err)
	rq.Len(list, 1)

	id := list[0].ID

	rq.NoError(dispatcher.MarkRead(ctx, receiver, id))
	rq.True(domain.IsCode(dispatcher.MarkRead(ctx, uuid.New(), id), errcodes.NotificationNotFound))
	rq.True(domain.IsCode(dispatcher.Delete(ctx, uuid.New(), id), errcodes.NotificationNotFound))
	rq.NoError(dispatcher.Delete(ctx, receiver, id))
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	draft := entity.NotificationDraft{
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Type:       value.NotificationCounterOffer,
		Content:    "countered",
	}

	t.Run("enqueued task is delivered by the handler", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{}
		client := &capturingEnqueuer{}
		queue := NewQueue(client, "notifications", NewDispatcher(repo, nil))

		queue.Notify(ctx, draft)
		rq.Len(client.tasks, 1)
		rq.Empty(repo.notifications)

		rq.Equal(TaskTypeDeliver, client.tasks[0].Type())
		rq.NoError(queue.HandleDeliver(ctx, client.tasks[0]))
		rq.Len(repo.notifications, 1)
		rq.Equal(draft.Content, repo.notifications[0].Content)
	})

	t.Run("enqueue failure falls back to inline delivery", func(t *testing.T) {
		rq := require.New(t)

		repo := &memoryRepo{}
		client := &failingEnqueuer{}

		NewQueue(client, "notifications", NewDispatcher(repo, nil)).Notify(ctx, draft)

		rq.Equal(1, client.calls)
		rq.Len(repo.notifications, 1)
	})

	t.Run("malformed payload is not retried", func(t *testing.T) {
		queue := NewQueue(&capturingEnqueuer{}, "notifications", NewDispatcher(&memoryRepo{}, nil))

		err := queue.HandleDeliver(ctx, asynq.NewTask(TaskTypeDeliver, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}
