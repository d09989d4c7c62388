package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"trade_market/internal/auth"
	"trade_market/internal/domain"
	"trade_market/internal/realtime"
	"trade_market/pkg/contextx"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type realtimeGateway interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID, authorize realtime.Authorizer) error
}

type tokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type RealtimeServer struct {
	gateway   realtimeGateway
	tokens    tokenVerifier
	authorize realtime.Authorizer
}

// NewRealtimeServer: authorize решает, может ли пользователь подписаться на
// топик сделки.
func NewRealtimeServer(
	gateway realtimeGateway,
	tokens tokenVerifier,
	authorize func(ctx context.Context, userID, tradeID uuid.UUID) error,
) RealtimeServer {
	return RealtimeServer{
		gateway:   gateway,
		tokens:    tokens,
		authorize: authorize,
	}
}

// getV1WS: браузер не умеет ставить заголовки на upgrade, поэтому токен
// приходит в query.
func (s RealtimeServer) getV1WS(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	if token == "" {
		return domain.Unauthorized(errcodes.Unauthorized, "token query parameter is required")
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}

	r = r.WithContext(auth.WithCaller(r.Context(), userID))

	if err = s.gateway.Serve(w, r, userID, s.authorize); err != nil {
		logger(r.Context()).Warn("websocket upgrade failed", logx.Error(err))
	}

	return nil
}
