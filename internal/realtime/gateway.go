package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trade_market/internal/domain"
	"trade_market/internal/domain/value"
	"trade_market/pkg/contextx"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const authorizeTimeout = 5 * time.Second

// Authorizer decides whether a user may subscribe to a trade's topic.
type Authorizer func(ctx context.Context, userID, tradeID uuid.UUID) error

// Gateway связывает реестр присутствия, хаб соединений и брокер.
type Gateway struct {
	registry Registry
	hub      *Hub
	broker   Broker
	upgrader websocket.Upgrader
}

func NewGateway(registry Registry, hub *Hub, broker Broker) *Gateway {
	return &Gateway{
		registry: registry,
		hub:      hub,
		broker:   broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Токен проверяется до апгрейда, origin не ограничиваем.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

func (g *Gateway) Registry() Registry {
	return g.registry
}

// PublishTopic рассылает событие подписчикам топика. Ошибки только логируются.
func (g *Gateway) PublishTopic(ctx context.Context, topic string, event value.Event, data any) {
	frame, err := json.Marshal(Frame{Event: event, Topic: topic, Data: data})
	if err != nil {
		logger(ctx).Error("json.Marshal", logx.Error(err), slog.String("event", event.String()))
		return
	}

	if err := g.broker.Publish(ctx, Envelope{Topic: topic, Frame: frame}); err != nil {
		logger(ctx).Error("broker.Publish", logx.Error(err), slog.String("topic", topic))
	}
}

// PushToUser отправляет событие в канал пользователя, если он онлайн.
func (g *Gateway) PushToUser(ctx context.Context, userID uuid.UUID, event value.Event, data any) bool {
	connID, ok, err := g.registry.Resolve(ctx, userID)
	if err != nil {
		logger(ctx).Error("registry.Resolve", logx.Error(err), logx.Stringer(logx.FieldUserID, userID))
		return false
	}
	if !ok {
		return false
	}

	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		logger(ctx).Error("json.Marshal", logx.Error(err), slog.String("event", event.String()))
		return false
	}

	if err := g.broker.Publish(ctx, Envelope{ConnID: connID, Frame: frame}); err != nil {
		logger(ctx).Error("broker.Publish", logx.Error(err), logx.Stringer(logx.FieldUserID, userID))
		return false
	}

	return true
}

// Serve upgrades the request and blocks until the connection is gone.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID, authorize Authorizer) error {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return fmt.Errorf("upgrader.Upgrade: %w", err)
	}

	ctx := context.WithoutCancel(r.Context())
	c := newClient(conn, userID)

	g.connect(ctx, c)
	defer g.disconnect(ctx, c)

	go c.writePump()

	err = c.readPump(func(msg []byte) {
		g.handleMessage(ctx, c, msg, authorize)
	})
	if err != nil {
		logger(ctx).Info("websocket closed unexpectedly", logx.Error(err))
	}

	return nil
}

// Run держит брокер до отмены контекста, затем закрывает соединения и
// очищает реестр.
func (g *Gateway) Run(ctx context.Context) error {
	err := g.broker.Run(ctx)

	g.hub.Close()

	if clearErr := g.registry.Clear(context.WithoutCancel(ctx)); clearErr != nil {
		logger(ctx).Error("registry.Clear", logx.Error(clearErr))
	}

	if err != nil {
		return fmt.Errorf("broker.Run: %w", err)
	}

	return nil
}

func (g *Gateway) connect(ctx context.Context, c *Client) {
	g.hub.attach(c)

	if err := g.registry.Register(ctx, c.UserID, c.ID); err != nil {
		logger(ctx).Error("registry.Register", logx.Error(err))
	}

	logger(ctx).Info("websocket connected", slog.String("conn-id", c.ID))
}

func (g *Gateway) disconnect(ctx context.Context, c *Client) {
	g.hub.detach(c)
	c.close()

	if err := g.registry.Unregister(ctx, c.ID); err != nil {
		logger(ctx).Error("registry.Unregister", logx.Error(err))
	}

	logger(ctx).Info("websocket disconnected", slog.String("conn-id", c.ID))
}

func (g *Gateway) handleMessage(ctx context.Context, c *Client, raw []byte, authorize Authorizer) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.reply(ctx, c, Frame{Event: value.EventError, Data: errorData{
			Code:    errcodes.ValidationError.String(),
			Message: "malformed message",
		}})
		return
	}

	switch msg.Type {
	case "ping":
		g.reply(ctx, c, Frame{Event: value.EventPong})
	case "subscribe", "unsubscribe":
		tradeID, err := uuid.Parse(msg.TradeID)
		if err != nil {
			g.reply(ctx, c, Frame{Event: value.EventError, Data: errorData{
				Code:    errcodes.InvalidTradeID.String(),
				Message: "trade_id must be a uuid",
			}})
			return
		}

		topic := value.TradeTopic(tradeID)

		if msg.Type == "unsubscribe" {
			g.hub.unsubscribe(c, topic)
			g.reply(ctx, c, Frame{Event: value.EventUnsubscribed, Topic: topic})
			return
		}

		if err := g.authorizeSubscribe(ctx, c.UserID, tradeID, authorize); err != nil {
			g.reply(ctx, c, Frame{Event: value.EventError, Topic: topic, Data: errorFrom(err)})
			return
		}

		g.hub.subscribe(c, topic)
		g.reply(ctx, c, Frame{Event: value.EventSubscribed, Topic: topic})
	default:
		g.reply(ctx, c, Frame{Event: value.EventError, Data: errorData{
			Code:    errcodes.ValidationError.String(),
			Message: fmt.Sprintf("unknown message type %q", msg.Type),
		}})
	}
}

func (g *Gateway) authorizeSubscribe(ctx context.Context, userID, tradeID uuid.UUID, authorize Authorizer) error {
	if authorize == nil {
		return domain.Forbidden(errcodes.Forbidden, "subscriptions are disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, authorizeTimeout)
	defer cancel()

	return authorize(ctx, userID, tradeID)
}

func (g *Gateway) reply(ctx context.Context, c *Client, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger(ctx).Error("json.Marshal", logx.Error(err))
		return
	}

	if !c.enqueue(data) {
		g.hub.detach(c)
		c.close()
	}
}

func errorFrom(err error) errorData {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Kind != domain.KindInternal && appErr.Kind != domain.KindTransient {
		return errorData{Code: appErr.Code.String(), Message: appErr.Message}
	}

	return errorData{Code: errcodes.InternalServerError.String(), Message: "subscription failed"}
}
