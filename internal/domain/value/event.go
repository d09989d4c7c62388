package value

import "github.com/google/uuid"

// Event is the name of a realtime frame pushed to clients.
type Event string

const (
	EventTradeCreated   Event = "trade_created"
	EventOfferCreated   Event = "offer_created"
	EventOfferCountered Event = "offer_countered"
	// EventOfferUpdated is the frame name for any offer status change and is
	// unrelated to OfferStatusSuperseded's stored spelling.
	EventOfferUpdated Event = "offer_updated"
	EventNotification Event = "notification"

	// Replies to client frames on the websocket.
	EventSubscribed   Event = "subscribed"
	EventUnsubscribed Event = "unsubscribed"
	EventPong         Event = "pong"
	EventError        Event = "error"
)

func (e Event) String() string {
	return string(e)
}

// TradeTopic is the realtime topic both parties of a trade subscribe to.
func TradeTopic(tradeID uuid.UUID) string {
	return "trade:" + tradeID.String()
}
