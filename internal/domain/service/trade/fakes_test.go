package trade

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
)

type memoryTrades struct {
	mu     sync.Mutex
	trades []entity.Trade
}

func (m *memoryTrades) Create(_ context.Context, trade *entity.Trade) (entity.Trade, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if trade.IdempotencyKey != "" {
		for _, t := range m.trades {
			if t.SenderID == trade.SenderID && t.IdempotencyKey == trade.IdempotencyKey {
				return t, false, nil
			}
		}
	}

	m.trades = append(m.trades, *trade)

	return *trade, true, nil
}

func (m *memoryTrades) GetByID(_ context.Context, id uuid.UUID) (entity.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.trades {
		if t.ID == id {
			return t, nil
		}
	}

	return entity.Trade{}, domain.NotFound(errcodes.TradeNotFound, "trade not found")
}

func (m *memoryTrades) FindBetween(_ context.Context, userA, userB, productID uuid.UUID) (*entity.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.trades) - 1; i >= 0; i-- {
		t := m.trades[i]
		if t.ProductID == productID && t.IsParty(userA) && t.IsParty(userB) {
			return &t, nil
		}
	}

	return nil, nil //nolint:nilnil
}

func (m *memoryTrades) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]entity.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.Trade
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].IsParty(userID) {
			out = append(out, m.trades[i])
		}
	}

	if offset >= len(out) {
		return []entity.Trade{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

type memoryOffers struct {
	mu     sync.Mutex
	offers []entity.Offer
}

func (m *memoryOffers) Create(_ context.Context, offer *entity.Offer) (entity.Offer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insert(offer)
}

func (m *memoryOffers) CreateCounter(_ context.Context, counter *entity.Offer) (entity.Offer, entity.Offer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(*counter.ParentOfferID)
	if i < 0 {
		return entity.Offer{}, entity.Offer{}, false, domain.NotFound(errcodes.OfferNotFound, "offer not found")
	}

	if existing, ok := m.byKey(counter); ok {
		return existing, m.offers[i], false, nil
	}

	if m.offers[i].Status != value.OfferStatusPending {
		return entity.Offer{}, entity.Offer{}, false, domain.Conflict(errcodes.IllegalOfferTransition, "only a pending offer can be countered")
	}

	created, _, err := m.insert(counter)
	if err != nil {
		return entity.Offer{}, entity.Offer{}, false, err
	}

	m.offers[i].Status = value.OfferStatusSuperseded
	m.offers[i].Version++
	m.offers[i].UpdatedAt = time.Now().UTC()

	return created, m.offers[i], true, nil
}

func (m *memoryOffers) GetByID(_ context.Context, id uuid.UUID) (entity.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(id); i >= 0 {
		return m.offers[i], nil
	}

	return entity.Offer{}, domain.NotFound(errcodes.OfferNotFound, "offer not found")
}

func (m *memoryOffers) ListByTrade(_ context.Context, tradeID uuid.UUID) ([]entity.Offer, error) {
	return m.filter(func(o entity.Offer) bool { return o.TradeID == tradeID }), nil
}

func (m *memoryOffers) ListCounters(_ context.Context, parentID uuid.UUID) ([]entity.Offer, error) {
	return m.filter(func(o entity.Offer) bool {
		return o.ParentOfferID != nil && *o.ParentOfferID == parentID
	}), nil
}

func (m *memoryOffers) UpdateStatus(_ context.Context, id uuid.UUID, from, to value.OfferStatus, version int64) (entity.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return entity.Offer{}, domain.NotFound(errcodes.OfferNotFound, "offer not found")
	}

	if m.offers[i].Status != from || m.offers[i].Version != version {
		return entity.Offer{}, domain.Conflict(errcodes.OfferVersionConflict, "offer was changed concurrently")
	}

	m.offers[i].Status = to
	m.offers[i].Version++
	m.offers[i].UpdatedAt = time.Now().UTC()

	return m.offers[i], nil
}

// forceVersion имитирует параллельную запись другим запросом.
func (m *memoryOffers) forceVersion(id uuid.UUID, version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.offers[m.index(id)].Version = version
}

func (m *memoryOffers) insert(offer *entity.Offer) (entity.Offer, bool, error) {
	if existing, ok := m.byKey(offer); ok {
		return existing, false, nil
	}

	m.offers = append(m.offers, *offer)

	return *offer, true, nil
}

func (m *memoryOffers) byKey(offer *entity.Offer) (entity.Offer, bool) {
	if offer.IdempotencyKey == "" {
		return entity.Offer{}, false
	}

	for _, o := range m.offers {
		if o.SenderID == offer.SenderID && o.IdempotencyKey == offer.IdempotencyKey {
			return o, true
		}
	}

	return entity.Offer{}, false
}

func (m *memoryOffers) index(id uuid.UUID) int {
	for i, o := range m.offers {
		if o.ID == id {
			return i
		}
	}

	return -1
}

func (m *memoryOffers) filter(keep func(entity.Offer) bool) []entity.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.Offer, 0)
	for _, o := range m.offers {
		if keep(o) {
			out = append(out, o)
		}
	}

	return out
}

type memoryCatalog map[uuid.UUID]entity.Product

func (c memoryCatalog) GetProduct(_ context.Context, id uuid.UUID) (entity.Product, error) {
	p, ok := c[id]
	if !ok {
		return entity.Product{}, domain.NotFound(errcodes.ProductNotFound, "product not found")
	}

	return p, nil
}

type unavailableCatalog struct{}

func (unavailableCatalog) GetProduct(context.Context, uuid.UUID) (entity.Product, error) {
	return entity.Product{}, domain.NewError(domain.KindTransient, errcodes.CatalogUnavailable, "catalog is unavailable")
}

type recordingNotifier struct {
	mu     sync.Mutex
	drafts []entity.NotificationDraft
}

func (r *recordingNotifier) Notify(_ context.Context, draft entity.NotificationDraft) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts = append(r.drafts, draft)
}

func (r *recordingNotifier) all() []entity.NotificationDraft {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]entity.NotificationDraft(nil), r.drafts...)
}

type publishedEvent struct {
	topic string
	event value.Event
	data  any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) PublishTopic(_ context.Context, topic string, event value.Event, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, publishedEvent{topic: topic, event: event, data: data})
}

func (r *recordingPublisher) names() []value.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]value.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.event)
	}

	return out
}
