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
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
)

const offerColumns = `id, trade_id, sender_id, receiver_id, offer_details, status, version,
	parent_offer_id, idempotency_key, created_at, updated_at`

type OfferRepository struct {
	store
}

func NewOfferRepository(db *sqlx.DB, queryTimeout time.Duration) *OfferRepository {
	return &OfferRepository{store: newStore(db, queryTimeout)}
}

// Create вставляет предложение. Повтор ключа идемпотентности возвращает
// ранее созданное предложение и created=false.
func (r *OfferRepository) Create(ctx context.Context, offer *entity.Offer) (entity.Offer, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		created entity.Offer
		isNew   bool
	)

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, isNew, err = r.insertTx(ctx, tx, offer)
		return err
	})

	return created, isNew, err
}

// CreateCounter атомарно вставляет встречное предложение и переводит
// родительское в offer_updated. Родитель блокируется на время транзакции,
// поэтому встречное предложение не может разойтись с принятием или отказом.
func (r *OfferRepository) CreateCounter(
	ctx context.Context,
	counter *entity.Offer,
) (created entity.Offer, parent entity.Offer, isNew bool, err error) {
	if counter.ParentOfferID == nil {
		return entity.Offer{}, entity.Offer{}, false, domain.Internal(errors.New("parent_offer_id is nil"), "not a counter-offer")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := r.getForUpdateTx(ctx, tx, *counter.ParentOfferID)
		if err != nil {
			return err
		}

		if locked.TradeID != counter.TradeID {
			return domain.NotFound(errcodes.OfferNotInTrade, "offer does not belong to this trade")
		}

		if counter.IdempotencyKey != "" {
			replay, found, err := r.findByIdempotencyKeyTx(ctx, tx, counter.SenderID, counter.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				created, parent, isNew = replay, locked, false
				return nil
			}
		}

		if locked.Status != value.OfferStatusPending {
			return domain.Conflict(errcodes.IllegalOfferTransition, "only a pending offer can be countered")
		}

		created, isNew, err = r.insertTx(ctx, tx, counter)
		if err != nil {
			return err
		}

		parent, err = r.setStatusTx(ctx, tx, locked.ID, locked.Status, value.OfferStatusSuperseded, locked.Version, counter.CreatedAt)
		return err
	})

	return created, parent, isNew, err
}

func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var schema offerSchema
	if err := r.db.GetContext(ctx, &schema, `SELECT `+offerColumns+` FROM trade_offers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Offer{}, domain.NotFound(errcodes.OfferNotFound, "offer not found")
		}
		return entity.Offer{}, domain.Storage(err, "failed to get offer")
	}

	return r.toDomain(schema)
}

// ListByTrade возвращает плоский список предложений сделки в порядке создания.
func (r *OfferRepository) ListByTrade(ctx context.Context, tradeID uuid.UUID) ([]entity.Offer, error) {
	return r.list(ctx, `SELECT `+offerColumns+`
		FROM trade_offers
		WHERE trade_id = $1
		ORDER BY created_at ASC, id ASC`, tradeID)
}

// ListCounters возвращает ответы на предложение в порядке создания.
func (r *OfferRepository) ListCounters(ctx context.Context, parentID uuid.UUID) ([]entity.Offer, error) {
	return r.list(ctx, `SELECT `+offerColumns+`
		FROM trade_offers
		WHERE parent_offer_id = $1
		ORDER BY created_at ASC, id ASC`, parentID)
}

// UpdateStatus меняет статус по compare-and-swap: запись обновится, только
// если её статус и версия всё ещё совпадают с прочитанными.
func (r *OfferRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to value.OfferStatus,
	version int64,
) (entity.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated entity.Offer

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		updated, err = r.setStatusTx(ctx, tx, id, from, to, version, time.Now().UTC())
		return err
	})

	return updated, err
}

func (r *OfferRepository) insertTx(ctx context.Context, tx *sqlx.Tx, offer *entity.Offer) (entity.Offer, bool, error) {
	schema, err := fromOffer(offer)
	if err != nil {
		return entity.Offer{}, false, domain.Internal(err, "failed to encode offer")
	}

	now := time.Now().UTC()
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = now
	}
	if schema.UpdatedAt.IsZero() {
		schema.UpdatedAt = schema.CreatedAt
	}
	if schema.Version == 0 {
		schema.Version = 1
	}

	query := `
		INSERT INTO trade_offers (
			id, trade_id, sender_id, receiver_id, offer_details, status, version,
			parent_offer_id, idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (sender_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING ` + offerColumns

	var inserted offerSchema
	err = tx.GetContext(ctx, &inserted, query,
		schema.ID, schema.TradeID, schema.SenderID, schema.ReceiverID, schema.Details, schema.Status, schema.Version,
		schema.ParentOfferID, schema.IdempotencyKey, schema.CreatedAt, schema.UpdatedAt)
	switch {
	case err == nil:
		created, err := r.toDomain(inserted)
		return created, true, err
	case errors.Is(err, sql.ErrNoRows):
		existing, found, err := r.findByIdempotencyKeyTx(ctx, tx, schema.SenderID, schema.IdempotencyKey.String)
		if err != nil {
			return entity.Offer{}, false, err
		}
		if !found {
			return entity.Offer{}, false, domain.Conflict(errcodes.IdempotencyMismatch, "idempotency key is already in use")
		}
		return existing, false, nil
	default:
		return entity.Offer{}, false, domain.Storage(err, "failed to insert offer")
	}
}

func (r *OfferRepository) findByIdempotencyKeyTx(
	ctx context.Context,
	tx *sqlx.Tx,
	senderID uuid.UUID,
	key string,
) (entity.Offer, bool, error) {
	var schema offerSchema

	query := `SELECT ` + offerColumns + ` FROM trade_offers WHERE sender_id = $1 AND idempotency_key = $2`
	if err := tx.GetContext(ctx, &schema, query, senderID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Offer{}, false, nil
		}
		return entity.Offer{}, false, domain.Storage(err, "failed to load offer by idempotency key")
	}

	offer, err := r.toDomain(schema)

	return offer, err == nil, err
}

func (r *OfferRepository) getForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (entity.Offer, error) {
	var schema offerSchema

	query := `SELECT ` + offerColumns + ` FROM trade_offers WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Offer{}, domain.NotFound(errcodes.OfferNotFound, "offer not found")
		}
		return entity.Offer{}, domain.Storage(err, "failed to lock offer")
	}

	return r.toDomain(schema)
}

func (r *OfferRepository) setStatusTx(
	ctx context.Context,
	tx *sqlx.Tx,
	id uuid.UUID,
	from, to value.OfferStatus,
	version int64,
	at time.Time,
) (entity.Offer, error) {
	query := `
		UPDATE trade_offers
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND status = $4 AND version = $5
		RETURNING ` + offerColumns

	var schema offerSchema
	if err := tx.GetContext(ctx, &schema, query, to.String(), at, id, from.String(), version); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return entity.Offer{}, domain.Storage(err, "failed to update offer status")
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM trade_offers WHERE id = $1)`, id); err != nil {
			return entity.Offer{}, domain.Storage(err, "failed to check offer existence")
		}
		if !exists {
			return entity.Offer{}, domain.NotFound(errcodes.OfferNotFound, "offer not found")
		}
		return entity.Offer{}, domain.Conflict(errcodes.OfferVersionConflict, "offer was changed concurrently")
	}

	return r.toDomain(schema)
}

func (r *OfferRepository) list(ctx context.Context, query string, args ...any) ([]entity.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var schemas []offerSchema
	if err := r.db.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, domain.Storage(err, "failed to list offers")
	}

	offers, err := offersToDomain(schemas)
	if err != nil {
		return nil, domain.Internal(err, "failed to decode offers")
	}

	return offers, nil
}

func (r *OfferRepository) toDomain(schema offerSchema) (entity.Offer, error) {
	offer, err := schema.toDomain()
	if err != nil {
		return entity.Offer{}, domain.Internal(err, "failed to decode offer")
	}

	return offer, nil
}
