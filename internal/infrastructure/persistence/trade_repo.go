package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/pkg/errcodes"
)

const tradeColumns = `id, sender_id, receiver_id, product_id, idempotency_key, created_at`

type TradeRepository struct {
	store
}

func NewTradeRepository(db *sqlx.DB, queryTimeout time.Duration) *TradeRepository {
	return &TradeRepository{store: newStore(db, queryTimeout)}
}

// Create вставляет сделку. Повтор с тем же ключом идемпотентности от того же
// отправителя возвращает исходную запись и created=false.
func (r *TradeRepository) Create(ctx context.Context, trade *entity.Trade) (entity.Trade, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	schema := fromTrade(trade)
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trades (id, sender_id, receiver_id, product_id, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sender_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING ` + tradeColumns

	var created tradeSchema
	err := r.db.GetContext(ctx, &created, query,
		schema.ID, schema.SenderID, schema.ReceiverID, schema.ProductID, schema.IdempotencyKey, schema.CreatedAt)
	switch {
	case err == nil:
		return created.toDomain(), true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.getByIdempotencyKey(ctx, schema.SenderID, schema.IdempotencyKey.String)
		if err != nil {
			return entity.Trade{}, false, err
		}
		return existing, false, nil
	default:
		return entity.Trade{}, false, domain.Storage(err, "failed to create trade")
	}
}

func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Trade, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var schema tradeSchema
	if err := r.db.GetContext(ctx, &schema, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Trade{}, domain.NotFound(errcodes.TradeNotFound, "trade not found")
		}
		return entity.Trade{}, domain.Storage(err, "failed to get trade")
	}

	return schema.toDomain(), nil
}

// FindBetween возвращает самую свежую сделку пары по товару; порядок
// участников не важен. nil, если сделки нет.
func (r *TradeRepository) FindBetween(ctx context.Context, userA, userB, productID uuid.UUID) (*entity.Trade, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND product_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var schema tradeSchema
	if err := r.db.GetContext(ctx, &schema, query, userA, userB, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, domain.Storage(err, "failed to find trade")
	}

	trade := schema.toDomain()

	return &trade, nil
}

func (r *TradeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Trade, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var schemas []tradeSchema
	if err := r.db.SelectContext(ctx, &schemas, query, userID, limit, offset); err != nil {
		return nil, domain.Storage(err, "failed to list trades")
	}

	trades := make([]entity.Trade, 0, len(schemas))
	for _, s := range schemas {
		trades = append(trades, s.toDomain())
	}

	return trades, nil
}

func (r *TradeRepository) getByIdempotencyKey(ctx context.Context, senderID uuid.UUID, key string) (entity.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE sender_id = $1 AND idempotency_key = $2`

	var schema tradeSchema
	if err := r.db.GetContext(ctx, &schema, query, senderID, key); err != nil {
		return entity.Trade{}, domain.Storage(err, "failed to load trade by idempotency key")
	}

	return schema.toDomain(), nil
}
