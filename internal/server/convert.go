package server

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/lox"
	"trade_market/pkg/rest"
)

func newRESTTrade(trade entity.Trade) rest.Trade {
	return rest.Trade{
		ID:         trade.ID.String(),
		SenderID:   trade.SenderID.String(),
		ReceiverID: trade.ReceiverID.String(),
		ProductID:  trade.ProductID.String(),
		CreatedAt:  trade.CreatedAt,
	}
}

func newRESTTrades(trades []entity.Trade) []rest.Trade {
	return lo.Map(trades, func(t entity.Trade, _ int) rest.Trade { return newRESTTrade(t) })
}

func newRESTOfferDetails(details value.OfferDetails) rest.OfferDetails {
	return rest.OfferDetails{
		OfferedProducts: lo.Map(details.OfferedProducts, func(id uuid.UUID, _ int) string { return id.String() }),
		OfferMoney:      rest.Money{Decimal: details.OfferMoney.Decimal},
		RequestMoney:    rest.Money{Decimal: details.RequestMoney.Decimal},
		OfferMessage:    details.OfferMessage,
	}
}

func newDomainOfferDetails(details rest.OfferDetails) (value.OfferDetails, error) {
	offered, err := lox.MapErr(details.OfferedProducts, uuid.Parse)
	if err != nil {
		return value.OfferDetails{}, fmt.Errorf("uuid.Parse: %w", err)
	}

	return value.OfferDetails{
		OfferedProducts: offered,
		OfferMoney:      value.Money{Decimal: details.OfferMoney.Decimal},
		RequestMoney:    value.Money{Decimal: details.RequestMoney.Decimal},
		OfferMessage:    details.OfferMessage,
	}, nil
}

func newRESTOffer(offer entity.Offer) rest.Offer {
	return rest.Offer{
		ID:            offer.ID.String(),
		TradeID:       offer.TradeID.String(),
		SenderID:      offer.SenderID.String(),
		ReceiverID:    offer.ReceiverID.String(),
		Details:       newRESTOfferDetails(offer.Details),
		Status:        offer.Status.String(),
		Version:       offer.Version,
		ParentOfferID: optionalString(offer.ParentOfferID),
		CreatedAt:     offer.CreatedAt,
		UpdatedAt:     offer.UpdatedAt,
	}
}

func newRESTOffers(offers []entity.Offer) []rest.Offer {
	return lo.Map(offers, func(o entity.Offer, _ int) rest.Offer { return newRESTOffer(o) })
}

func newRESTOfferNodes(nodes []entity.OfferNode) []rest.OfferNode {
	return lo.Map(nodes, func(n entity.OfferNode, _ int) rest.OfferNode {
		return rest.OfferNode{
			Offer:    newRESTOffer(n.Offer),
			Counters: newRESTOfferNodes(n.Counters),
		}
	})
}

func newRESTNotification(n entity.Notification) rest.Notification {
	return rest.Notification{
		ID:         n.ID.String(),
		SenderID:   n.SenderID.String(),
		ReceiverID: n.ReceiverID.String(),
		Type:       n.Type.String(),
		Content:    n.Content,
		ProductID:  optionalString(n.ProductID),
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

func newRESTNotifications(notifications []entity.Notification) []rest.Notification {
	return lo.Map(notifications, func(n entity.Notification, _ int) rest.Notification { return newRESTNotification(n) })
}

func optionalString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}

	return lo.ToPtr(id.String())
}
