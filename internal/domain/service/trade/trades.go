package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/metrics"
)

type CreateTradeInput struct {
	ReceiverID     uuid.UUID
	ProductID      uuid.UUID
	IdempotencyKey string
}

// CreateTrade открывает сделку между вызывающим и получателем по товару,
// принадлежащему одному из них. Дубликаты не ищет, для этого есть
// FindExistingTrade.
func (s *Service) CreateTrade(ctx context.Context, caller uuid.UUID, in CreateTradeInput) (entity.Trade, error) {
	if in.ReceiverID == uuid.Nil || in.ProductID == uuid.Nil {
		return entity.Trade{}, domain.Validation(errcodes.MissingTradeFields, "receiver_id and product_id are required")
	}

	if in.ReceiverID == caller {
		return entity.Trade{}, domain.Validation(errcodes.TradeWithYourself, "cannot open a trade with yourself")
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return entity.Trade{}, err
	}

	if product.OwnerID != caller && product.OwnerID != in.ReceiverID {
		return entity.Trade{}, domain.Validation(errcodes.ProductNotInTrade, "product must belong to one of the trade parties")
	}

	id, err := s.newID()
	if err != nil {
		return entity.Trade{}, err
	}

	trade, created, err := s.trades.Create(ctx, &entity.Trade{
		ID:             id,
		SenderID:       caller,
		ReceiverID:     in.ReceiverID,
		ProductID:      in.ProductID,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return entity.Trade{}, err
	}

	if !created {
		if trade.ReceiverID != in.ReceiverID || trade.ProductID != in.ProductID {
			return entity.Trade{}, domain.Conflict(errcodes.IdempotencyMismatch, "idempotency key was used for another trade")
		}
		return trade, nil
	}

	metrics.TradesCreated.Inc()

	s.publish(ctx, trade.ID, value.EventTradeCreated, trade)
	s.notify(ctx, entity.NotificationDraft{
		SenderID:   caller,
		ReceiverID: trade.ReceiverID,
		Type:       value.NotificationTrade,
		Content:    fmt.Sprintf("New trade request for %q", product.Title),
		ProductID:  &trade.ProductID,
	})

	logger(ctx).Info("trade created", logAttrTrade(trade.ID))

	return trade, nil
}

// FindExistingTrade возвращает последнюю сделку пары по товару, порядок
// участников не важен. nil, если сделки нет.
func (s *Service) FindExistingTrade(ctx context.Context, caller, receiverID, productID uuid.UUID) (*entity.Trade, error) {
	if receiverID == uuid.Nil || productID == uuid.Nil {
		return nil, domain.Validation(errcodes.MissingTradeFields, "receiver_id and product_id are required")
	}

	return s.trades.FindBetween(ctx, caller, receiverID, productID)
}

func (s *Service) GetTrade(ctx context.Context, caller, tradeID uuid.UUID) (entity.Trade, error) {
	return s.loadTradeAsParty(ctx, caller, tradeID)
}

func (s *Service) ListTrades(ctx context.Context, caller uuid.UUID, page value.Page) ([]entity.Trade, error) {
	page = page.Normalize()

	return s.trades.ListByUser(ctx, caller, page.Limit, page.Offset)
}
