package trade

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/metrics"
)

type CreateOfferInput struct {
	TradeID uuid.UUID
	Details value.OfferDetails
	// ProductID is the product the notification refers to; defaults to the
	// trade's product.
	ProductID      uuid.UUID
	IdempotencyKey string
}

type CreateCounterOfferInput struct {
	CreateOfferInput
	ParentOfferID uuid.UUID
}

type UpdateOfferStatusInput struct {
	OfferID         uuid.UUID
	Status          string
	ExpectedVersion *int64
}

// CreateOffer отправляет предложение второй стороне сделки. Получатель
// вычисляется: это участник сделки, не являющийся вызывающим.
func (s *Service) CreateOffer(ctx context.Context, caller uuid.UUID, in CreateOfferInput) (entity.Offer, error) {
	trade, err := s.loadTradeAsParty(ctx, caller, in.TradeID)
	if err != nil {
		return entity.Offer{}, err
	}

	productID, err := s.checkProposal(ctx, caller, trade, in)
	if err != nil {
		return entity.Offer{}, err
	}

	receiver, _ := trade.Counterparty(caller)

	draft, err := s.newOffer(trade.ID, caller, receiver, in)
	if err != nil {
		return entity.Offer{}, err
	}

	offer, created, err := s.offers.Create(ctx, draft)
	if err != nil {
		return entity.Offer{}, err
	}

	if !created {
		if offer.TradeID != trade.ID || offer.IsCounter() {
			return entity.Offer{}, domain.Conflict(errcodes.IdempotencyMismatch, "idempotency key was used for another offer")
		}
		return offer, nil
	}

	metrics.OffersCreated.WithLabelValues("offer").Inc()

	s.notify(ctx, entity.NotificationDraft{
		SenderID:   caller,
		ReceiverID: receiver,
		Type:       value.NotificationOffer,
		Content:    "You received a new offer",
		ProductID:  &productID,
	})
	s.publish(ctx, trade.ID, value.EventOfferCreated, offer)

	logger(ctx).Info("offer created", logAttrTrade(trade.ID), logAttrOffer(offer.ID))

	return offer, nil
}

// CreateCounterOffer отвечает на ожидающее предложение. Новое предложение
// идёт в обратную сторону, а родительское атомарно становится offer_updated.
func (s *Service) CreateCounterOffer(ctx context.Context, caller uuid.UUID, in CreateCounterOfferInput) (entity.Offer, error) {
	trade, err := s.trades.GetByID(ctx, in.TradeID)
	if err != nil {
		return entity.Offer{}, err
	}

	parent, err := s.offers.GetByID(ctx, in.ParentOfferID)
	if err != nil {
		return entity.Offer{}, err
	}

	if parent.TradeID != trade.ID {
		return entity.Offer{}, domain.NotFound(errcodes.OfferNotInTrade, "offer does not belong to this trade")
	}

	if !trade.IsParty(caller) {
		return entity.Offer{}, domain.Forbidden(errcodes.NotTradeParty, "caller is not a party to this trade")
	}

	if parent.SenderID == caller {
		return entity.Offer{}, domain.Forbidden(errcodes.CannotCounterOwnOffer, "cannot counter your own offer")
	}

	// A replay may arrive after the first attempt superseded the parent;
	// the repository resolves it before checking the status.
	if in.IdempotencyKey == "" && parent.Status != value.OfferStatusPending {
		return entity.Offer{}, domain.Conflict(errcodes.IllegalOfferTransition, "only a pending offer can be countered")
	}

	productID, err := s.checkProposal(ctx, caller, trade, in.CreateOfferInput)
	if err != nil {
		return entity.Offer{}, err
	}

	draft, err := s.newOffer(trade.ID, caller, parent.SenderID, in.CreateOfferInput)
	if err != nil {
		return entity.Offer{}, err
	}
	draft.ParentOfferID = &parent.ID

	counter, superseded, created, err := s.offers.CreateCounter(ctx, draft)
	if err != nil {
		return entity.Offer{}, err
	}

	if !created {
		if counter.ParentOfferID == nil || *counter.ParentOfferID != parent.ID {
			return entity.Offer{}, domain.Conflict(errcodes.IdempotencyMismatch, "idempotency key was used for another offer")
		}
		return counter, nil
	}

	metrics.OffersCreated.WithLabelValues("counter").Inc()
	metrics.OfferTransitions.WithLabelValues(value.OfferStatusSuperseded.String()).Inc()

	s.notify(ctx, entity.NotificationDraft{
		SenderID:   caller,
		ReceiverID: counter.ReceiverID,
		Type:       value.NotificationCounterOffer,
		Content:    "Your offer received a counter-offer",
		ProductID:  &productID,
	})
	s.publish(ctx, trade.ID, value.EventOfferCountered, counter)
	s.publish(ctx, trade.ID, value.EventOfferUpdated, superseded)

	logger(ctx).Info("counter-offer created",
		logAttrTrade(trade.ID), logAttrOffer(counter.ID), logAttrParent(parent.ID))

	return counter, nil
}

// ListOffers returns the trade's offers oldest first.
func (s *Service) ListOffers(ctx context.Context, caller, tradeID uuid.UUID) ([]entity.Offer, error) {
	if _, err := s.loadTradeAsParty(ctx, caller, tradeID); err != nil {
		return nil, err
	}

	return s.offers.ListByTrade(ctx, tradeID)
}

// ListCounterOffers returns the direct answers to an offer oldest first.
func (s *Service) ListCounterOffers(ctx context.Context, caller, tradeID, offerID uuid.UUID) ([]entity.Offer, error) {
	trade, err := s.loadTradeAsParty(ctx, caller, tradeID)
	if err != nil {
		return nil, err
	}

	parent, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if parent.TradeID != trade.ID {
		return nil, domain.NotFound(errcodes.OfferNotInTrade, "offer does not belong to this trade")
	}

	return s.offers.ListCounters(ctx, parent.ID)
}

// UpdateOfferStatus проводит переход по таблице статусов. Запись идёт через
// compare-and-swap по версии, поэтому из двух конкурентных переходов
// успешен только один.
func (s *Service) UpdateOfferStatus(ctx context.Context, caller uuid.UUID, in UpdateOfferStatusInput) (entity.Offer, error) {
	to, err := value.ParseOfferStatus(in.Status)
	if err != nil {
		return entity.Offer{}, domain.WrapError(err, domain.KindValidation, errcodes.InvalidOfferStatus, "unknown offer status")
	}

	offer, err := s.offers.GetByID(ctx, in.OfferID)
	if err != nil {
		return entity.Offer{}, err
	}

	party := offer.PartyOf(caller)
	if party == value.PartyNone {
		return entity.Offer{}, domain.Forbidden(errcodes.NotTradeParty, "caller is not a party to this offer")
	}

	if !offer.Status.CanTransition(to) {
		return entity.Offer{}, domain.Conflict(errcodes.IllegalOfferTransition,
			fmt.Sprintf("offer cannot move from %s to %s", offer.Status, to))
	}

	if !offer.Status.AllowedFor(to, party) {
		return entity.Offer{}, domain.Forbidden(errcodes.OfferTransitionDenied,
			fmt.Sprintf("the %s of an offer cannot set it to %s", party, to))
	}

	if in.ExpectedVersion != nil && *in.ExpectedVersion != offer.Version {
		return entity.Offer{}, domain.Conflict(errcodes.OfferVersionConflict, "offer was changed since it was read")
	}

	updated, err := s.offers.UpdateStatus(ctx, offer.ID, offer.Status, to, offer.Version)
	if err != nil {
		return entity.Offer{}, err
	}

	metrics.OfferTransitions.WithLabelValues(to.String()).Inc()

	s.afterStatusChange(ctx, caller, updated)

	return updated, nil
}

func (s *Service) afterStatusChange(ctx context.Context, caller uuid.UUID, offer entity.Offer) {
	s.publish(ctx, offer.TradeID, value.EventOfferUpdated, offer)

	counterparty := offer.SenderID
	if caller == offer.SenderID {
		counterparty = offer.ReceiverID
	}

	draft := entity.NotificationDraft{
		SenderID:   caller,
		ReceiverID: counterparty,
		Type:       value.NotificationOfferStatus,
		Content:    "Offer status changed to " + offer.Status.String(),
	}

	trade, err := s.trades.GetByID(ctx, offer.TradeID)
	if err != nil {
		logger(ctx).Warn("trade lookup after status change failed", logAttrOffer(offer.ID), logAttrError(err))
	} else {
		draft.ProductID = &trade.ProductID
	}

	s.notify(ctx, draft)

	logger(ctx).Info("offer status changed", logAttrOffer(offer.ID), logAttrStatus(offer.Status))

	if offer.Status == value.OfferStatusAccepted && err == nil {
		s.announce(ctx, entity.Deal{Trade: trade, Offer: offer, AcceptedAt: offer.UpdatedAt})
	}
}

// checkProposal validates offer details against the catalog and resolves the
// product the offer notification refers to.
func (s *Service) checkProposal(ctx context.Context, caller uuid.UUID, trade entity.Trade, in CreateOfferInput) (uuid.UUID, error) {
	if err := in.Details.Validate(); err != nil {
		return uuid.Nil, domain.WrapError(err, domain.KindValidation, errcodes.InvalidOfferDetails, err.Error())
	}

	for _, id := range in.Details.OfferedProducts {
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			if domain.IsCode(err, errcodes.ProductNotFound) {
				return uuid.Nil, domain.WrapError(err, domain.KindValidation, errcodes.ProductNotFound,
					fmt.Sprintf("offered product %s does not exist", id))
			}
			return uuid.Nil, err
		}

		if product.OwnerID != caller {
			return uuid.Nil, domain.Validation(errcodes.ProductNotOwned,
				fmt.Sprintf("offered product %s does not belong to you", id))
		}
	}

	switch {
	case in.ProductID == uuid.Nil:
		return trade.ProductID, nil
	case in.ProductID == trade.ProductID, slices.Contains(in.Details.OfferedProducts, in.ProductID):
		return in.ProductID, nil
	default:
		return uuid.Nil, domain.Validation(errcodes.ProductNotInTrade, "product_id is neither the trade's product nor offered")
	}
}

func (s *Service) newOffer(tradeID, sender, receiver uuid.UUID, in CreateOfferInput) (*entity.Offer, error) {
	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	return &entity.Offer{
		ID:             id,
		TradeID:        tradeID,
		SenderID:       sender,
		ReceiverID:     receiver,
		Details:        in.Details,
		Status:         value.OfferStatusPending,
		Version:        1,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
