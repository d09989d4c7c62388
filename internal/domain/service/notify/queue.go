package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"trade_market/internal/domain/entity"
	"trade_market/pkg/logx"
	"trade_market/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const (
	TaskTypeDeliver = "notification:deliver"

	deliverMaxRetry = 5
	deliverTimeout  = 30 * time.Second
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue выносит доставку уведомлений в фоновые задачи asynq, отделяя её от
// основной записи. Если поставить задачу не удалось, доставка выполняется
// сразу.
type Queue struct {
	client     enqueuer
	queue      string
	dispatcher *Dispatcher
}

func NewQueue(client enqueuer, queue string, dispatcher *Dispatcher) *Queue {
	return &Queue{
		client:     client,
		queue:      queue,
		dispatcher: dispatcher,
	}
}

func NewDeliverTask(draft entity.NotificationDraft) (*asynq.Task, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return asynq.NewTask(TaskTypeDeliver, payload), nil
}

func (q *Queue) Notify(ctx context.Context, draft entity.NotificationDraft) {
	if draft.IsSelf() {
		q.dispatcher.Notify(ctx, draft)
		return
	}

	task, err := NewDeliverTask(draft)
	if err == nil {
		_, err = q.client.EnqueueContext(ctx, task,
			asynq.Queue(q.queue),
			asynq.MaxRetry(deliverMaxRetry),
			asynq.Timeout(deliverTimeout),
		)
	}

	if err != nil {
		logger(ctx).Warn("notification enqueue failed, delivering inline", logx.Error(err))
		q.dispatcher.Notify(ctx, draft)
		return
	}

	metrics.Notifications.WithLabelValues(metrics.NotificationQueued).Inc()
}

// HandleDeliver is the asynq handler for TaskTypeDeliver.
func (q *Queue) HandleDeliver(ctx context.Context, task *asynq.Task) error {
	var draft entity.NotificationDraft
	if err := json.Unmarshal(task.Payload(), &draft); err != nil {
		logger(ctx).Error("malformed notification task", logx.Error(err), slog.String("type", task.Type()))
		return fmt.Errorf("json.Unmarshal: %w: %w", err, asynq.SkipRetry)
	}

	if err := q.dispatcher.Deliver(ctx, draft); err != nil {
		return fmt.Errorf("dispatcher.Deliver: %w", err)
	}

	return nil
}
