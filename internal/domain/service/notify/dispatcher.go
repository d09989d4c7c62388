package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/contextx"
	"trade_market/pkg/logx"
	"trade_market/pkg/metrics"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type notificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) (entity.Notification, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID, unreadOnly bool, limit, offset int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, receiverID, id uuid.UUID) error
	Delete(ctx context.Context, receiverID, id uuid.UUID) error
}

type pusher interface {
	PushToUser(ctx context.Context, userID uuid.UUID, event value.Event, data any) bool
}

// Dispatcher сохраняет уведомления и пытается доставить их онлайн.
type Dispatcher struct {
	repo   notificationRepository
	pusher pusher
	now    func() time.Time
}

func NewDispatcher(repo notificationRepository, pusher pusher) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		pusher: pusher,
		now:    time.Now,
	}
}

// Notify never fails the caller: errors are logged and counted.
func (d *Dispatcher) Notify(ctx context.Context, draft entity.NotificationDraft) {
	if err := d.Deliver(ctx, draft); err != nil {
		metrics.Notifications.WithLabelValues(metrics.NotificationFailed).Inc()
		logger(ctx).Error(
			"notification dropped",
			logx.Error(err),
			slog.String("type", draft.Type.String()),
			logx.Stringer(logx.FieldUserID, draft.ReceiverID),
		)
	}
}

// Deliver persists the notification and pushes it to the receiver when they
// are online. Self-notifications are skipped without error.
func (d *Dispatcher) Deliver(ctx context.Context, draft entity.NotificationDraft) error {
	if draft.IsSelf() {
		metrics.Notifications.WithLabelValues(metrics.NotificationSuppressed).Inc()
		logger(ctx).Debug("self notification suppressed", slog.String("type", draft.Type.String()))
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Internal(err, "failed to generate notification id")
	}

	notification, err := d.repo.Create(ctx, &entity.Notification{
		ID:         id,
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		Type:       draft.Type,
		Content:    draft.Content,
		ProductID:  draft.ProductID,
		CreatedAt:  d.now().UTC(),
	})
	if err != nil {
		return err
	}

	metrics.Notifications.WithLabelValues(metrics.NotificationPersisted).Inc()

	if d.pusher != nil && d.pusher.PushToUser(ctx, notification.ReceiverID, value.EventNotification, notification) {
		metrics.Notifications.WithLabelValues(metrics.NotificationPushed).Inc()
	}

	return nil
}

func (d *Dispatcher) List(
	ctx context.Context,
	caller uuid.UUID,
	unreadOnly bool,
	page value.Page,
) ([]entity.Notification, error) {
	page = page.Normalize()

	return d.repo.ListByReceiver(ctx, caller, unreadOnly, page.Limit, page.Offset)
}

func (d *Dispatcher) MarkRead(ctx context.Context, caller, id uuid.UUID) error {
	return d.repo.MarkRead(ctx, caller, id)
}

func (d *Dispatcher) Delete(ctx context.Context, caller, id uuid.UUID) error {
	return d.repo.Delete(ctx, caller, id)
}
