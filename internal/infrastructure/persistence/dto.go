package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/lox"
)

// tradeSchema: внутренняя структура для маппинга строки trades.
type tradeSchema struct {
	ID             uuid.UUID      `db:"id"`
	SenderID       uuid.UUID      `db:"sender_id"`
	ReceiverID     uuid.UUID      `db:"receiver_id"`
	ProductID      uuid.UUID      `db:"product_id"`
	IdempotencyKey sql.NullString `db:"idempotency_key"`
	CreatedAt      time.Time      `db:"created_at"`
}

func fromTrade(t *entity.Trade) tradeSchema {
	return tradeSchema{
		ID:             t.ID,
		SenderID:       t.SenderID,
		ReceiverID:     t.ReceiverID,
		ProductID:      t.ProductID,
		IdempotencyKey: nullString(t.IdempotencyKey),
		CreatedAt:      t.CreatedAt,
	}
}

func (s tradeSchema) toDomain() entity.Trade {
	return entity.Trade{
		ID:             s.ID,
		SenderID:       s.SenderID,
		ReceiverID:     s.ReceiverID,
		ProductID:      s.ProductID,
		IdempotencyKey: s.IdempotencyKey.String,
		CreatedAt:      s.CreatedAt,
	}
}

// offerSchema: строка trade_offers; offer_details хранится как JSONB.
type offerSchema struct {
	ID             uuid.UUID      `db:"id"`
	TradeID        uuid.UUID      `db:"trade_id"`
	SenderID       uuid.UUID      `db:"sender_id"`
	ReceiverID     uuid.UUID      `db:"receiver_id"`
	Details        []byte         `db:"offer_details"`
	Status         string         `db:"status"`
	Version        int64          `db:"version"`
	ParentOfferID  uuid.NullUUID  `db:"parent_offer_id"`
	IdempotencyKey sql.NullString `db:"idempotency_key"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func fromOffer(o *entity.Offer) (offerSchema, error) {
	details, err := json.Marshal(o.Details)
	if err != nil {
		return offerSchema{}, fmt.Errorf("json.Marshal: %w", err)
	}

	s := offerSchema{
		ID:             o.ID,
		TradeID:        o.TradeID,
		SenderID:       o.SenderID,
		ReceiverID:     o.ReceiverID,
		Details:        details,
		Status:         o.Status.String(),
		Version:        o.Version,
		IdempotencyKey: nullString(o.IdempotencyKey),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.ParentOfferID != nil {
		s.ParentOfferID = uuid.NullUUID{UUID: *o.ParentOfferID, Valid: true}
	}

	return s, nil
}

func (s offerSchema) toDomain() (entity.Offer, error) {
	var details value.OfferDetails
	if len(s.Details) > 0 {
		if err := json.Unmarshal(s.Details, &details); err != nil {
			return entity.Offer{}, fmt.Errorf("json.Unmarshal: %w", err)
		}
	}

	status, err := value.ParseOfferStatus(s.Status)
	if err != nil {
		return entity.Offer{}, fmt.Errorf("value.ParseOfferStatus: %w", err)
	}

	o := entity.Offer{
		ID:             s.ID,
		TradeID:        s.TradeID,
		SenderID:       s.SenderID,
		ReceiverID:     s.ReceiverID,
		Details:        details,
		Status:         status,
		Version:        s.Version,
		IdempotencyKey: s.IdempotencyKey.String,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.ParentOfferID.Valid {
		parent := s.ParentOfferID.UUID
		o.ParentOfferID = &parent
	}

	return o, nil
}

type notificationSchema struct {
	ID         uuid.UUID     `db:"id"`
	SenderID   uuid.UUID     `db:"sender_id"`
	ReceiverID uuid.UUID     `db:"receiver_id"`
	Type       string        `db:"type"`
	Content    string        `db:"content"`
	ProductID  uuid.NullUUID `db:"product_id"`
	IsRead     bool          `db:"is_read"`
	CreatedAt  time.Time     `db:"created_at"`
}

func fromNotification(n *entity.Notification) notificationSchema {
	s := notificationSchema{
		ID:         n.ID,
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		Type:       n.Type.String(),
		Content:    n.Content,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
	if n.ProductID != nil {
		s.ProductID = uuid.NullUUID{UUID: *n.ProductID, Valid: true}
	}

	return s
}

func (s notificationSchema) toDomain() entity.Notification {
	// Unknown types written by older producers are surfaced as is.
	n := entity.Notification{
		ID:         s.ID,
		SenderID:   s.SenderID,
		ReceiverID: s.ReceiverID,
		Type:       value.NotificationType(s.Type),
		Content:    s.Content,
		IsRead:     s.IsRead,
		CreatedAt:  s.CreatedAt,
	}
	if s.ProductID.Valid {
		productID := s.ProductID.UUID
		n.ProductID = &productID
	}

	return n
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func offersToDomain(schemas []offerSchema) ([]entity.Offer, error) {
	return lox.MapErr(schemas, offerSchema.toDomain)
}
