package entity

import (
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain/value"
)

type Notification struct {
	ID         uuid.UUID              `json:"id"`
	SenderID   uuid.UUID              `json:"sender_id"`
	ReceiverID uuid.UUID              `json:"receiver_id"`
	Type       value.NotificationType `json:"type"`
	Content    string                 `json:"content"`
	ProductID  *uuid.UUID             `json:"product_id"`
	IsRead     bool                   `json:"is_read"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NotificationDraft is what a producer hands to the dispatcher; the record is
// created from it only if sender and receiver differ.
type NotificationDraft struct {
	SenderID   uuid.UUID              `json:"sender_id"`
	ReceiverID uuid.UUID              `json:"receiver_id"`
	Type       value.NotificationType `json:"type"`
	Content    string                 `json:"content"`
	ProductID  *uuid.UUID             `json:"product_id,omitempty"`
}

func (d NotificationDraft) IsSelf() bool {
	return d.SenderID == d.ReceiverID
}
