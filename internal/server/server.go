package server

import (
	"net/http"

	"trade_market/internal/auth"
)

// Данный сервер просто объединяет специфичные HTTP сервера, отвечающие за обработку конкретных сущностей
type Server struct {
	TradeServer
	NotificationServer
	RealtimeServer

	authenticate func(http.Handler) http.Handler
}

func NewServer(
	tokens *auth.Tokens,
	tradeServer TradeServer,
	notificationServer NotificationServer,
	realtimeServer RealtimeServer,
) Server {
	return Server{
		TradeServer:        tradeServer,
		NotificationServer: notificationServer,
		RealtimeServer:     realtimeServer,
		authenticate:       auth.Middleware(tokens),
	}
}
