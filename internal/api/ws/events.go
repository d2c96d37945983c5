package ws

import (
	"encoding/json"
	"time"

	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

// Message types
const (
	TypeHello       = "hello"
	TypeNodeCreated = "node_created"
	TypeNodeUpdated = "node_updated"
	TypeNodeDeleted = "node_deleted"
	TypeToken       = "token"
	TypeSelection   = "selection"
	TypeSettings    = "settings"
	TypeLoaded      = "loaded"
	TypeAck         = "ack"
	TypePong        = "pong"
	TypeError       = "error"

	TypeNavigate = "navigate"
	TypeGenerate = "generate"
	TypeSelect   = "select"
	TypePing     = "ping"
)

type helloPayload struct {
	ClientID      string  `json:"client_id"`
	CurrentNodeID *string `json:"current_node_id"`
	Nodes         int     `json:"nodes"`
}

type nodePayload struct {
	Node session.Node `json:"node"`
}

type nodeIDPayload struct {
	NodeID string `json:"node_id"`
}

type tokenPayload struct {
	NodeID string `json:"node_id"`
	Chunk  string `json:"chunk"`
}

type selectionPayload struct {
	CurrentNodeID *string `json:"current_node_id"`
}

type settingsPayload struct {
	Settings session.Settings `json:"settings"`
}

type loadedPayload struct {
	Nodes         int     `json:"nodes"`
	CurrentNodeID *string `json:"current_node_id"`
}

type ackPayload struct {
	Request generation.Info `json:"request"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Client requests

type navigateRequest struct {
	Target string `json:"target"`
}

type generateRequest struct {
	URL string `json:"url"`
	// ParentID nil means the current node, "" means a new root
	ParentID *string `json:"parent_id"`
}

type selectRequest struct {
	NodeID string `json:"node_id"`
}

func encode(msgType string, payload any) ([]byte, error) {
	msg := types.WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

func optional(id string, ok bool) *string {
	if !ok {
		return nil
	}
	return &id
}
