package entity

import (
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain/value"
)

// Trade is a negotiation between two users over one product. Sender and
// receiver only record who opened it; both sides may act in either role.
type Trade struct {
	ID             uuid.UUID `json:"id"`
	SenderID       uuid.UUID `json:"sender_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
	ProductID      uuid.UUID `json:"product_id"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (t Trade) IsParty(userID uuid.UUID) bool {
	return userID == t.SenderID || userID == t.ReceiverID
}

// Counterparty returns the other participant and false when userID is not a
// party to the trade.
func (t Trade) Counterparty(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case t.SenderID:
		return t.ReceiverID, true
	case t.ReceiverID:
		return t.SenderID, true
	default:
		return uuid.Nil, false
	}
}

type Offer struct {
	ID             uuid.UUID          `json:"id"`
	TradeID        uuid.UUID          `json:"trade_id"`
	SenderID       uuid.UUID          `json:"sender_id"`
	ReceiverID     uuid.UUID          `json:"receiver_id"`
	Details        value.OfferDetails `json:"offer_details"`
	Status         value.OfferStatus  `json:"status"`
	Version        int64              `json:"version"`
	ParentOfferID  *uuid.UUID         `json:"parent_offer_id"`
	IdempotencyKey string             `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (o Offer) PartyOf(userID uuid.UUID) value.Party {
	switch userID {
	case o.SenderID:
		return value.PartySender
	case o.ReceiverID:
		return value.PartyReceiver
	default:
		return value.PartyNone
	}
}

func (o Offer) IsCounter() bool {
	return o.ParentOfferID != nil
}

// OfferNode is one offer with the counters issued against it.
type OfferNode struct {
	Offer    Offer       `json:"offer"`
	Counters []OfferNode `json:"counters"`
}
