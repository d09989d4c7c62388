package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/pkg/errcodes"
)

const notificationColumns = `id, sender_id, receiver_id, type, content, product_id, is_read, created_at`

type NotificationRepository struct {
	store
}

func NewNotificationRepository(db *sqlx.DB, queryTimeout time.Duration) *NotificationRepository {
	return &NotificationRepository{store: newStore(db, queryTimeout)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) (entity.Notification, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	schema := fromNotification(n)
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (id, sender_id, receiver_id, type, content, product_id, is_read, created_at)
		VALUES (:id, :sender_id, :receiver_id, :type, :content, :product_id, :is_read, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, schema); err != nil {
		return entity.Notification{}, domain.Storage(err, "failed to create notification")
	}

	return schema.toDomain(), nil
}

// ListByReceiver возвращает уведомления получателя, новые первыми.
func (r *NotificationRepository) ListByReceiver(
	ctx context.Context,
	receiverID uuid.UUID,
	unreadOnly bool,
	limit, offset int,
) ([]entity.Notification, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE receiver_id = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	var schemas []notificationSchema
	if err := r.db.SelectContext(ctx, &schemas, query, receiverID, unreadOnly, limit, offset); err != nil {
		return nil, domain.Storage(err, "failed to list notifications")
	}

	notifications := make([]entity.Notification, 0, len(schemas))
	for _, s := range schemas {
		notifications = append(notifications, s.toDomain())
	}

	return notifications, nil
}

// MarkRead помечает уведомление прочитанным. Чужие уведомления неотличимы
// от отсутствующих.
func (r *NotificationRepository) MarkRead(ctx context.Context, receiverID, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND receiver_id = $2`, id, receiverID)
	if err != nil {
		return domain.Storage(err, "failed to mark notification read")
	}

	return requireAffected(res.RowsAffected())
}

func (r *NotificationRepository) Delete(ctx context.Context, receiverID, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND receiver_id = $2`, id, receiverID)
	if err != nil {
		return domain.Storage(err, "failed to delete notification")
	}

	return requireAffected(res.RowsAffected())
}

func requireAffected(n int64, err error) error {
	if err != nil {
		return domain.Storage(err, "failed to read affected rows")
	}
	if n == 0 {
		return domain.NotFound(errcodes.NotificationNotFound, "notification not found")
	}

	return nil
}
