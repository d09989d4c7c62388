package trade

import (
	"context"

	"github.com/google/uuid"

	"trade_market/internal/domain/entity"
)

// GetOfferThread собирает предложения сделки в лес по parent_offer_id.
// Корни и ответы идут в порядке создания.
func (s *Service) GetOfferThread(ctx context.Context, caller, tradeID uuid.UUID) ([]entity.OfferNode, error) {
	offers, err := s.ListOffers(ctx, caller, tradeID)
	if err != nil {
		return nil, err
	}

	return buildThread(offers), nil
}

// buildThread expects offers in creation order and keeps it at every level.
// An offer whose parent is not in the list becomes a root.
func buildThread(offers []entity.Offer) []entity.OfferNode {
	known := make(map[uuid.UUID]struct{}, len(offers))
	for _, o := range offers {
		known[o.ID] = struct{}{}
	}

	children := make(map[uuid.UUID][]entity.Offer)

	var roots []entity.Offer

	for _, o := range offers {
		if o.ParentOfferID != nil {
			if _, ok := known[*o.ParentOfferID]; ok {
				children[*o.ParentOfferID] = append(children[*o.ParentOfferID], o)
				continue
			}
		}
		roots = append(roots, o)
	}

	var build func(o entity.Offer) entity.OfferNode
	build = func(o entity.Offer) entity.OfferNode {
		node := entity.OfferNode{Offer: o, Counters: make([]entity.OfferNode, 0, len(children[o.ID]))}
		for _, child := range children[o.ID] {
			node.Counters = append(node.Counters, build(child))
		}
		return node
	}

	thread := make([]entity.OfferNode, 0, len(roots))
	for _, root := range roots {
		thread = append(thread, build(root))
	}

	return thread
}
