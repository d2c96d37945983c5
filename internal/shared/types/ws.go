package types

import "encoding/json"

// WSMessage is the envelope for every websocket frame in both directions
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}
