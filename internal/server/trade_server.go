package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	"github.com/google/uuid"

	"trade_market/internal/auth"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/service/trade"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/httpx/reply"
	"trade_market/pkg/httpx/req"
	"trade_market/pkg/rest"
)

type tradeService interface {
	CreateTrade(ctx context.Context, caller uuid.UUID, in trade.CreateTradeInput) (entity.Trade, error)
	FindExistingTrade(ctx context.Context, caller, receiverID, productID uuid.UUID) (*entity.Trade, error)
	GetTrade(ctx context.Context, caller, tradeID uuid.UUID) (entity.Trade, error)
	ListTrades(ctx context.Context, caller uuid.UUID, page value.Page) ([]entity.Trade, error)
	CreateOffer(ctx context.Context, caller uuid.UUID, in trade.CreateOfferInput) (entity.Offer, error)
	CreateCounterOffer(ctx context.Context, caller uuid.UUID, in trade.CreateCounterOfferInput) (entity.Offer, error)
	ListOffers(ctx context.Context, caller, tradeID uuid.UUID) ([]entity.Offer, error)
	ListCounterOffers(ctx context.Context, caller, tradeID, offerID uuid.UUID) ([]entity.Offer, error)
	GetOfferThread(ctx context.Context, caller, tradeID uuid.UUID) ([]entity.OfferNode, error)
	UpdateOfferStatus(ctx context.Context, caller uuid.UUID, in trade.UpdateOfferStatusInput) (entity.Offer, error)
}

type TradeServer struct {
	tradeService tradeService
}

func NewTradeServer(tradeService tradeService) TradeServer {
	return TradeServer{
		tradeService: tradeService,
	}
}

func (s TradeServer) postV1Trade(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	key, err := idempotencyKey(r)
	if err != nil {
		return err
	}

	var request rest.CreateTradeRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	receiverID, err := parseUUID(request.ReceiverID, errcodes.InvalidUserID, "receiver_id")
	if err != nil {
		return err
	}

	productID, err := parseUUID(request.ProductID, errcodes.InvalidProductID, "product_id")
	if err != nil {
		return err
	}

	created, err := s.tradeService.CreateTrade(ctx, caller, trade.CreateTradeInput{
		ReceiverID:     receiverID,
		ProductID:      productID,
		IdempotencyKey: key,
	})
	if err != nil {
		return fmt.Errorf("tradeService.CreateTrade: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTTrade(created))

	return nil
}

func (s TradeServer) getV1Trades(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	page, err := queryPage(r)
	if err != nil {
		return err
	}

	trades, err := s.tradeService.ListTrades(ctx, caller, page)
	if err != nil {
		return fmt.Errorf("tradeService.ListTrades: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTTrades(trades))

	return nil
}

func (s TradeServer) getV1ExistingTrade(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	query := r.URL.Query()

	receiverID, err := parseUUID(query.Get("receiver_id"), errcodes.InvalidUserID, "receiver_id")
	if err != nil {
		return err
	}

	productID, err := parseUUID(query.Get("product_id"), errcodes.InvalidProductID, "product_id")
	if err != nil {
		return err
	}

	existing, err := s.tradeService.FindExistingTrade(ctx, caller, receiverID, productID)
	if err != nil {
		return fmt.Errorf("tradeService.FindExistingTrade: %w", err)
	}

	var response rest.ExistingTrade
	if existing != nil {
		t := newRESTTrade(*existing)
		response.Trade = &t
	}

	reply.JSON(ctx, w, http.StatusOK, response)

	return nil
}

func (s TradeServer) getV1Trade(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	found, err := s.tradeService.GetTrade(ctx, caller, tradeID)
	if err != nil {
		return fmt.Errorf("tradeService.GetTrade: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTTrade(found))

	return nil
}

func (s TradeServer) postV1Offer(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	in, err := readOfferInput(r, tradeID)
	if err != nil {
		return err
	}

	offer, err := s.tradeService.CreateOffer(ctx, caller, in)
	if err != nil {
		return fmt.Errorf("tradeService.CreateOffer: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTOffer(offer))

	return nil
}

func (s TradeServer) getV1Offers(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	offers, err := s.tradeService.ListOffers(ctx, caller, tradeID)
	if err != nil {
		return fmt.Errorf("tradeService.ListOffers: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOffers(offers))

	return nil
}

func (s TradeServer) getV1OfferThread(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	thread, err := s.tradeService.GetOfferThread(ctx, caller, tradeID)
	if err != nil {
		return fmt.Errorf("tradeService.GetOfferThread: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOfferNodes(thread))

	return nil
}

func (s TradeServer) postV1CounterOffer(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	offerID, err := pathUUID(r, "offer_id", errcodes.InvalidOfferID)
	if err != nil {
		return err
	}

	in, err := readOfferInput(r, tradeID)
	if err != nil {
		return err
	}

	counter, err := s.tradeService.CreateCounterOffer(ctx, caller, trade.CreateCounterOfferInput{
		CreateOfferInput: in,
		ParentOfferID:    offerID,
	})
	if err != nil {
		return fmt.Errorf("tradeService.CreateCounterOffer: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTOffer(counter))

	return nil
}

func (s TradeServer) getV1CounterOffers(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, tradeID, err := callerAndTrade(r)
	if err != nil {
		return err
	}

	offerID, err := pathUUID(r, "offer_id", errcodes.InvalidOfferID)
	if err != nil {
		return err
	}

	counters, err := s.tradeService.ListCounterOffers(ctx, caller, tradeID, offerID)
	if err != nil {
		return fmt.Errorf("tradeService.ListCounterOffers: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOffers(counters))

	return nil
}

func (s TradeServer) putV1OfferStatus(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	offerID, err := pathUUID(r, "offer_id", errcodes.InvalidOfferID)
	if err != nil {
		return err
	}

	var request rest.UpdateOfferStatusRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	offer, err := s.tradeService.UpdateOfferStatus(ctx, caller, trade.UpdateOfferStatusInput{
		OfferID:         offerID,
		Status:          request.Status,
		ExpectedVersion: request.Version,
	})
	if err != nil {
		return fmt.Errorf("tradeService.UpdateOfferStatus: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOffer(offer))

	return nil
}

func callerAndTrade(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	caller, err := auth.CallerFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	tradeID, err := pathUUID(r, "trade_id", errcodes.InvalidTradeID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return caller, tradeID, nil
}

func readOfferInput(r *http.Request, tradeID uuid.UUID) (trade.CreateOfferInput, error) {
	key, err := idempotencyKey(r)
	if err != nil {
		return trade.CreateOfferInput{}, err
	}

	var request rest.CreateOfferRequest

	if err = req.Read(r, &request); err != nil {
		return trade.CreateOfferInput{}, fmt.Errorf("req.Read: %w", err)
	}

	details, err := newDomainOfferDetails(request.Details)
	if err != nil {
		return trade.CreateOfferInput{}, failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("newDomainOfferDetails: %w", err),
			failure.WithCode(errcodes.InvalidOfferDetails),
			failure.WithDescription("offeredProducts must contain product ids"),
		)
	}

	var productID uuid.UUID
	if request.ProductID != "" {
		if productID, err = parseUUID(request.ProductID, errcodes.InvalidProductID, "product_id"); err != nil {
			return trade.CreateOfferInput{}, err
		}
	}

	return trade.CreateOfferInput{
		TradeID:        tradeID,
		Details:        details,
		ProductID:      productID,
		IdempotencyKey: key,
	}, nil
}
