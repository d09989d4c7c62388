package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"trade_market/internal/auth"
	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/service/trade"
	"trade_market/internal/domain/value"
	"trade_market/internal/realtime"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/rest"
	"trade_market/pkg/tests"
)

type stubTradeService struct {
	tradeService

	createTrade  func(caller uuid.UUID, in trade.CreateTradeInput) (entity.Trade, error)
	findExisting func(caller, receiverID, productID uuid.UUID) (*entity.Trade, error)
	createOffer  func(caller uuid.UUID, in trade.CreateOfferInput) (entity.Offer, error)
	updateStatus func(caller uuid.UUID, in trade.UpdateOfferStatusInput) (entity.Offer, error)
	thread       func(caller, tradeID uuid.UUID) ([]entity.OfferNode, error)
}

func (s stubTradeService) CreateTrade(_ context.Context, caller uuid.UUID, in trade.CreateTradeInput) (entity.Trade, error) {
	return s.createTrade(caller, in)
}

func (s stubTradeService) FindExistingTrade(_ context.Context, caller, receiverID, productID uuid.UUID) (*entity.Trade, error) {
	return s.findExisting(caller, receiverID, productID)
}

func (s stubTradeService) CreateOffer(_ context.Context, caller uuid.UUID, in trade.CreateOfferInput) (entity.Offer, error) {
	return s.createOffer(caller, in)
}

func (s stubTradeService) UpdateOfferStatus(_ context.Context, caller uuid.UUID, in trade.UpdateOfferStatusInput) (entity.Offer, error) {
	return s.updateStatus(caller, in)
}

func (s stubTradeService) GetOfferThread(_ context.Context, caller, tradeID uuid.UUID) ([]entity.OfferNode, error) {
	return s.thread(caller, tradeID)
}

type stubNotificationService struct {
	deleted map[uuid.UUID]bool
}

func (s stubNotificationService) List(context.Context, uuid.UUID, bool, value.Page) ([]entity.Notification, error) {
	return nil, nil
}

func (s stubNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (s stubNotificationService) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	if !s.deleted[id] {
		return domain.NotFound(errcodes.NotificationNotFound, "notification not found")
	}

	return nil
}

type stubGateway struct{}

func (stubGateway) Serve(http.ResponseWriter, *http.Request, uuid.UUID, realtime.Authorizer) error {
	return nil
}

type testServer struct {
	client tests.APIClient
	tokens *auth.Tokens
}

func newTestServer(t *testing.T, trades stubTradeService, notifications stubNotificationService) testServer {
	t.Helper()

	tokens := auth.NewTokens("test-secret", "trade_market")

	srv := NewServer(
		tokens,
		NewTradeServer(trades),
		NewNotificationServer(notifications),
		NewRealtimeServer(stubGateway{}, tokens, func(context.Context, uuid.UUID, uuid.UUID) error { return nil }),
	)

	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return testServer{client: tests.NewAPIClient(ts.URL, ts.Client()), tokens: tokens}
}

func (s testServer) headers(t *testing.T, userID uuid.UUID) http.Header {
	t.Helper()

	token, _, err := s.tokens.Issue(userID.String(), time.Minute)
	require.NoError(t, err)

	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestServerRequiresToken(t *testing.T) {
	t.Parallel()

	rq := require.New(t)
	ts := newTestServer(t, stubTradeService{}, stubNotificationService{})

	var errResp rest.Error

	resp, err := ts.client.Get(context.Background(), "/v1/trades", nil, nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusUnauthorized, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.Unauthorized), errResp.Code)

	resp, err = ts.client.Get(context.Background(), "/v1/ws", nil, nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, err = ts.client.Get(context.Background(), "/v1/ws?token=garbage", nil, nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusUnauthorized, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.AccessTokenInvalid), errResp.Code)
}

func TestPostTrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caller := uuid.New()
	receiver := uuid.New()
	product := uuid.New()

	var got trade.CreateTradeInput

	ts := newTestServer(t, stubTradeService{
		createTrade: func(c uuid.UUID, in trade.CreateTradeInput) (entity.Trade, error) {
			got = in
			if in.ReceiverID == c {
				return entity.Trade{}, domain.Validation(errcodes.TradeWithYourself, "cannot open a trade with yourself")
			}
			return entity.Trade{ID: uuid.New(), SenderID: c, ReceiverID: in.ReceiverID, ProductID: in.ProductID}, nil
		},
	}, stubNotificationService{})

	t.Run("created", func(t *testing.T) {
		rq := require.New(t)

		headers := ts.headers(t, caller)
		headers.Set(headerIdempotencyKey, "key-1")

		var created rest.Trade

		resp, err := ts.client.Post(ctx, "/v1/trades", headers, rest.CreateTradeRequest{
			ReceiverID: receiver.String(),
			ProductID:  product.String(),
		}, &created, nil)
		rq.NoError(err)
		rq.Equal(http.StatusCreated, resp.StatusCode)
		rq.Equal(caller.String(), created.SenderID)
		rq.Equal(receiver.String(), created.ReceiverID)
		rq.Equal("key-1", got.IdempotencyKey)
	})

	t.Run("invalid body", func(t *testing.T) {
		rq := require.New(t)

		var errResp rest.Error

		resp, err := ts.client.PostJSON(ctx, "/v1/trades", ts.headers(t, caller), `{"receiver_id":"nope"}`, nil, &errResp)
		rq.NoError(err)
		rq.Equal(http.StatusBadRequest, resp.StatusCode)
		rq.Equal(rest.ErrorCode(errcodes.ValidationError), errResp.Code)
	})

	t.Run("domain validation", func(t *testing.T) {
		rq := require.New(t)

		var errResp rest.Error

		resp, err := ts.client.Post(ctx, "/v1/trades", ts.headers(t, caller), rest.CreateTradeRequest{
			ReceiverID: caller.String(),
			ProductID:  product.String(),
		}, nil, &errResp)
		rq.NoError(err)
		rq.Equal(http.StatusBadRequest, resp.StatusCode)
		rq.Equal(rest.ErrorCode(errcodes.TradeWithYourself), errResp.Code)
		rq.NotEmpty(errResp.SupportID)
	})
}

func TestGetExistingTrade(t *testing.T) {
	t.Parallel()

	rq := require.New(t)
	caller := uuid.New()

	ts := newTestServer(t, stubTradeService{
		findExisting: func(uuid.UUID, uuid.UUID, uuid.UUID) (*entity.Trade, error) {
			return nil, nil //nolint:nilnil
		},
	}, stubNotificationService{})

	var found map[string]any

	endpoint := "/v1/trades/existing?receiver_id=" + uuid.NewString() + "&product_id=" + uuid.NewString()

	resp, err := ts.client.Get(context.Background(), endpoint, ts.headers(t, caller), &found, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Contains(found, "trade")
	rq.Nil(found["trade"])

	var errResp rest.Error

	resp, err = ts.client.Get(context.Background(), "/v1/trades/existing?receiver_id=x", ts.headers(t, caller), nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.InvalidUserID), errResp.Code)
}

func TestPostOffer(t *testing.T) {
	t.Parallel()

	rq := require.New(t)
	ctx := context.Background()
	caller := uuid.New()
	tradeID := uuid.New()
	offered := uuid.New()

	var got trade.CreateOfferInput

	ts := newTestServer(t, stubTradeService{
		createOffer: func(c uuid.UUID, in trade.CreateOfferInput) (entity.Offer, error) {
			got = in
			return entity.Offer{
				ID:         uuid.New(),
				TradeID:    in.TradeID,
				SenderID:   c,
				ReceiverID: uuid.New(),
				Details:    in.Details,
				Status:     value.OfferStatusPending,
				Version:    1,
			}, nil
		},
	}, stubNotificationService{})

	amount := tests.NewRandomizer().Amount()
	body := `{"offer_details":{"offeredProducts":["` + offered.String() + `"],"offerMoney":` + amount.String() + `,"offerMessage":"hi"}}`

	var created rest.Offer

	resp, err := ts.client.PostJSON(ctx, "/v1/trades/"+tradeID.String()+"/offers", ts.headers(t, caller), body, &created, nil)
	rq.NoError(err)
	rq.Equal(http.StatusCreated, resp.StatusCode)

	rq.Equal(tradeID, got.TradeID)
	rq.Equal([]uuid.UUID{offered}, got.Details.OfferedProducts)
	rq.True(amount.Equal(got.Details.OfferMoney.Decimal))
	rq.True(got.Details.RequestMoney.IsZero())
	rq.Equal(uuid.Nil, got.ProductID)

	rq.Equal("pending", created.Status)
	rq.EqualValues(1, created.Version)
	rq.Nil(created.ParentOfferID)
	rq.Equal("hi", created.Details.OfferMessage)
	rq.True(amount.Equal(created.Details.OfferMoney.Decimal))

	var errResp rest.Error

	resp, err = ts.client.PostJSON(ctx, "/v1/trades/not-a-uuid/offers", ts.headers(t, caller), body, nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.InvalidTradeID), errResp.Code)
}

func TestPutOfferStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caller := uuid.New()
	offerID := uuid.New()

	ts := newTestServer(t, stubTradeService{
		updateStatus: func(c uuid.UUID, in trade.UpdateOfferStatusInput) (entity.Offer, error) {
			switch {
			case in.Status == "accepted" && in.ExpectedVersion != nil && *in.ExpectedVersion == 1:
				return entity.Offer{ID: in.OfferID, ReceiverID: c, Status: value.OfferStatusAccepted, Version: 2}, nil
			case in.Status == "accepted":
				return entity.Offer{}, domain.Conflict(errcodes.OfferVersionConflict, "offer was changed since it was read")
			default:
				return entity.Offer{}, domain.Forbidden(errcodes.OfferTransitionDenied, "denied")
			}
		},
	}, stubNotificationService{})

	cases := []struct {
		name   string
		body   rest.UpdateOfferStatusRequest
		status int
		code   string
	}{
		{"accepted", rest.UpdateOfferStatusRequest{Status: "accepted", Version: lo.ToPtr(int64(1))}, http.StatusOK, ""},
		{"stale", rest.UpdateOfferStatusRequest{Status: "accepted", Version: lo.ToPtr(int64(2))}, http.StatusConflict, string(errcodes.OfferVersionConflict)},
		{"denied", rest.UpdateOfferStatusRequest{Status: "declined"}, http.StatusForbidden, string(errcodes.OfferTransitionDenied)},
		{"missing status", rest.UpdateOfferStatusRequest{}, http.StatusBadRequest, string(errcodes.ValidationError)},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)

			var (
				offer   rest.Offer
				errResp rest.Error
			)

			resp, err := ts.client.Put(ctx, "/v1/offers/"+offerID.String()+"/status", ts.headers(t, caller), tt.body, &offer, &errResp)
			rq.NoError(err)
			rq.Equal(tt.status, resp.StatusCode)

			if tt.code == "" {
				rq.Equal("accepted", offer.Status)
				rq.EqualValues(2, offer.Version)
				return
			}

			rq.Equal(rest.ErrorCode(tt.code), errResp.Code)
		})
	}
}

func TestGetOfferThread(t *testing.T) {
	t.Parallel()

	rq := require.New(t)
	root := entity.Offer{ID: uuid.New(), Status: value.OfferStatusSuperseded}
	counter := entity.Offer{ID: uuid.New(), ParentOfferID: &root.ID, Status: value.OfferStatusPending}

	ts := newTestServer(t, stubTradeService{
		thread: func(uuid.UUID, uuid.UUID) ([]entity.OfferNode, error) {
			return []entity.OfferNode{{Offer: root, Counters: []entity.OfferNode{{Offer: counter}}}}, nil
		},
	}, stubNotificationService{})

	var thread []rest.OfferNode

	resp, err := ts.client.Get(context.Background(), "/v1/trades/"+uuid.NewString()+"/thread", ts.headers(t, uuid.New()), &thread, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Len(thread, 1)
	rq.Equal("offer_updated", thread[0].Offer.Status)
	rq.Len(thread[0].Counters, 1)
	rq.Equal(root.ID.String(), *thread[0].Counters[0].Offer.ParentOfferID)
	rq.Empty(thread[0].Counters[0].Counters)
}

func TestNotificationEndpoints(t *testing.T) {
	t.Parallel()

	rq := require.New(t)
	ctx := context.Background()
	mine := uuid.New()

	ts := newTestServer(t, stubTradeService{}, stubNotificationService{deleted: map[uuid.UUID]bool{mine: true}})
	headers := ts.headers(t, uuid.New())

	var list []rest.Notification

	resp, err := ts.client.Get(ctx, "/v1/notifications?unread=true&limit=10", headers, &list, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Empty(list)

	resp, err = ts.client.Get(ctx, "/v1/notifications?limit=-1", headers, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, err = ts.client.Delete(ctx, "/v1/notifications/"+mine.String(), headers, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusNoContent, resp.StatusCode)

	var errResp rest.Error

	resp, err = ts.client.Delete(ctx, "/v1/notifications/"+uuid.NewString(), headers, nil, &errResp)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.NotificationNotFound), errResp.Code)
}
