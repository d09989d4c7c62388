package realtime

import (
	jsoniter "github.com/json-iterator/go"

	"trade_market/internal/domain/value"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// Frame is what a websocket client receives.
type Frame struct {
	Event value.Event `json:"event"`
	Topic string      `json:"topic,omitempty"`
	Data  any         `json:"data"`
}

// Envelope is a marshalled frame addressed either to a topic or to a single
// connection. It is what travels through a Broker.
type Envelope struct {
	Topic  string              `json:"topic,omitempty"`
	ConnID string              `json:"conn_id,omitempty"`
	Frame  jsoniter.RawMessage `json:"frame"`
}

type clientMessage struct {
	Type    string `json:"type"`
	TradeID string `json:"trade_id"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
