package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // The host shell is local
	},
}

// Hub manages websocket clients and broadcasts store changes to them
type Hub struct {
	store    *session.Store
	pipeline *generation.Pipeline
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// NewHub creates a hub and subscribes it to the store
func NewHub(store *session.Store, pipeline *generation.Pipeline, logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Hub{
		store:    store,
		pipeline: pipeline,
		logger:   logger.Named("ws"),
		metrics:  metrics,
		clients:  make(map[string]*client),
	}
	store.Subscribe(h)
	return h
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnChange implements session.Observer. It runs on the mutating goroutine
// and never blocks.
func (h *Hub) OnChange(c session.Change) {
	var (
		msgType string
		payload any
	)

	switch c.Kind {
	case session.ChangeNodeCreated:
		msgType, payload = TypeNodeCreated, nodePayload{Node: *c.Node}
	case session.ChangeNodeUpdated:
		if c.Node == nil {
			msgType, payload = TypeToken, tokenPayload{NodeID: c.NodeID, Chunk: c.Chunk}
		} else {
			msgType, payload = TypeNodeUpdated, nodePayload{Node: *c.Node}
		}
	case session.ChangeNodeDeleted:
		msgType, payload = TypeNodeDeleted, nodeIDPayload{NodeID: c.NodeID}
	case session.ChangeSelection:
		msgType, payload = TypeSelection, selectionPayload{CurrentNodeID: c.CurrentNodeID}
	case session.ChangeSettings:
		msgType, payload = TypeSettings, settingsPayload{Settings: h.store.Settings().Masked()}
	case session.ChangeLoaded:
		cur, ok := h.store.CurrentID()
		msgType, payload = TypeLoaded, loadedPayload{Nodes: h.store.Len(), CurrentNodeID: optional(cur, ok)}
	default:
		return
	}

	h.broadcast(msgType, payload)
}

func (h *Hub) broadcast(msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", msgType), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.RecordWSMessage("out", msgType)
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow client", zap.String("client_id", c.id))
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.IncWSConnections()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if ok {
		h.metrics.DecWSConnections()
	}
	c.close()
}

// HandleConnection upgrades the request and serves the client until it
// disconnects
func (h *Hub) HandleConnection(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	cur, ok := h.store.CurrentID()
	hello, _ := encode(TypeHello, helloPayload{ClientID: c.id, CurrentNodeID: optional(cur, ok), Nodes: h.store.Len()})
	c.send <- hello

	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("Client connected", zap.String("client_id", c.id))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info("Client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg types.WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		h.dispatch(c, msg)
	}
}

func (h *Hub) dispatch(c *client, msg types.WSMessage) {
	switch msg.Type {
	case TypePing:
		h.reply(c, TypePong, nil)

	case TypeNavigate:
		var req navigateRequest
		if err := decode(msg.Data, &req); err != nil {
			h.replyError(c, err)
			return
		}
		h.replyRequest(c, func() (*generation.Request, error) {
			return h.pipeline.Navigate(req.Target)
		})

	case TypeGenerate:
		var req generateRequest
		if err := decode(msg.Data, &req); err != nil {
			h.replyError(c, err)
			return
		}
		if req.URL == "" {
			h.replyError(c, errors.New("url is required"))
			return
		}
		parentID := ""
		if req.ParentID != nil {
			parentID = *req.ParentID
		} else if cur, ok := h.store.CurrentID(); ok {
			parentID = cur
		}
		h.replyRequest(c, func() (*generation.Request, error) {
			return h.pipeline.Start(req.URL, parentID)
		})

	case TypeSelect:
		var req selectRequest
		if err := decode(msg.Data, &req); err != nil {
			h.replyError(c, err)
			return
		}
		if !h.store.Select(req.NodeID) {
			h.replyError(c, errors.New("node not found"))
		}

	default:
		h.replyError(c, errors.New("unknown message type"))
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("malformed data")
	}
	return nil
}

func (h *Hub) replyRequest(c *client, start func() (*generation.Request, error)) {
	req, err := start()
	if err != nil {
		h.replyError(c, err)
		return
	}
	h.reply(c, TypeAck, ackPayload{Request: req.Info()})
}

func (h *Hub) replyError(c *client, err error) {
	h.reply(c, TypeError, errorPayload{Message: err.Error()})
}

func (h *Hub) reply(c *client, msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
		h.metrics.RecordWSMessage("out", msgType)
	case <-c.done:
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
