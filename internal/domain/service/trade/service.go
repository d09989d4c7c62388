package trade

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/contextx"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type tradeRepository interface {
	Create(ctx context.Context, trade *entity.Trade) (entity.Trade, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.Trade, error)
	FindBetween(ctx context.Context, userA, userB, productID uuid.UUID) (*entity.Trade, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Trade, error)
}

type offerRepository interface {
	Create(ctx context.Context, offer *entity.Offer) (entity.Offer, bool, error)
	CreateCounter(ctx context.Context, counter *entity.Offer) (entity.Offer, entity.Offer, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.Offer, error)
	ListByTrade(ctx context.Context, tradeID uuid.UUID) ([]entity.Offer, error)
	ListCounters(ctx context.Context, parentID uuid.UUID) ([]entity.Offer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to value.OfferStatus, version int64) (entity.Offer, error)
}

type productCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (entity.Product, error)
}

type notifier interface {
	Notify(ctx context.Context, draft entity.NotificationDraft)
}

type publisher interface {
	PublishTopic(ctx context.Context, topic string, event value.Event, data any)
}

// Service ведёт переговоры по сделкам: сделки, предложения, встречные
// предложения и смену статусов. Состояния в памяти не держит, каждая
// операция перечитывает данные из хранилища.
type Service struct {
	trades    tradeRepository
	offers    offerRepository
	catalog   productCatalog
	notifier  notifier
	publisher publisher
	deals     chan<- entity.Deal
	now       func() time.Time
}

func NewService(
	trades tradeRepository,
	offers offerRepository,
	catalog productCatalog,
	notifier notifier,
	publisher publisher,
) *Service {
	return &Service{
		trades:    trades,
		offers:    offers,
		catalog:   catalog,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithDeals включает публикацию принятых предложений в канал.
func (s *Service) WithDeals(deals chan<- entity.Deal) *Service {
	s.deals = deals
	return s
}

// Authorize allows a realtime subscription to the trade's topic only for
// its parties.
func (s *Service) Authorize(ctx context.Context, userID, tradeID uuid.UUID) error {
	_, err := s.GetTrade(ctx, userID, tradeID)
	return err
}

func (s *Service) loadTradeAsParty(ctx context.Context, caller, tradeID uuid.UUID) (entity.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return entity.Trade{}, err
	}

	if !trade.IsParty(caller) {
		return entity.Trade{}, domain.Forbidden(errcodes.NotTradeParty, "caller is not a party to this trade")
	}

	return trade, nil
}

func (s *Service) newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, domain.Internal(err, "failed to generate id")
	}

	return id, nil
}

func (s *Service) publish(ctx context.Context, tradeID uuid.UUID, event value.Event, data any) {
	if s.publisher == nil {
		return
	}

	s.publisher.PublishTopic(ctx, value.TradeTopic(tradeID), event, data)
}

func (s *Service) notify(ctx context.Context, draft entity.NotificationDraft) {
	if s.notifier == nil {
		return
	}

	s.notifier.Notify(ctx, draft)
}

func (s *Service) announce(ctx context.Context, deal entity.Deal) {
	if s.deals == nil {
		return
	}

	select {
	case s.deals <- deal:
	default:
		logger(ctx).Warn("deal feed is full, announcement dropped", logx.Stringer("offer-id", deal.Offer.ID))
	}
}

func logAttrTrade(id uuid.UUID) slog.Attr {
	return logx.Stringer("trade-id", id)
}

func logAttrOffer(id uuid.UUID) slog.Attr {
	return logx.Stringer("offer-id", id)
}

func logAttrParent(id uuid.UUID) slog.Attr {
	return logx.Stringer("parent-offer-id", id)
}

func logAttrStatus(status value.OfferStatus) slog.Attr {
	return slog.String("status", status.String())
}

func logAttrError(err error) slog.Attr {
	return logx.Error(err)
}
