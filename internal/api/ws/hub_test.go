package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/indranet/internal/providers/llm/llmtest"
	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

type fixture struct {
	hub   *Hub
	store *session.Store
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewStore()
	factory := &llmtest.Factory{Client: llmtest.NewClient("<html>", "<body>hi</body>", "</html>")}
	pipeline := generation.New(store, factory, nil, nil, generation.DefaultConfig())
	hub := NewHub(store, pipeline, nil, monitoring.NewMetrics())

	r := gin.New()
	r.GET("/stream", hub.HandleConnection)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pipeline.Close(ctx)
	})
	return &fixture{hub: hub, store: store, srv: srv}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := readUntil(t, conn, TypeHello)
	var payload helloPayload
	require.NoError(t, json.Unmarshal(hello.Data, &payload))
	assert.NotEmpty(t, payload.ClientID)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	msg := types.WSMessage{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		msg.Data = raw
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil skips messages until one of the given type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) types.WSMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg types.WSMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestHubBroadcastsStoreChanges(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	assert.Equal(t, 1, f.hub.Clients())

	id := f.store.CreateNode("example.com", "", true)

	created := readUntil(t, conn, TypeNodeCreated)
	var node nodePayload
	require.NoError(t, json.Unmarshal(created.Data, &node))
	assert.Equal(t, id, node.Node.ID)
	assert.Equal(t, "example.com", node.Node.URL)

	sel := readUntil(t, conn, TypeSelection)
	var selection selectionPayload
	require.NoError(t, json.Unmarshal(sel.Data, &selection))
	require.NotNil(t, selection.CurrentNodeID)
	assert.Equal(t, id, *selection.CurrentNodeID)

	f.store.AppendContent(id, "<p>")
	tok := readUntil(t, conn, TypeToken)
	var token tokenPayload
	require.NoError(t, json.Unmarshal(tok.Data, &token))
	assert.Equal(t, tokenPayload{NodeID: id, Chunk: "<p>"}, token)

	f.store.DeleteNode(id)
	del := readUntil(t, conn, TypeNodeDeleted)
	assert.JSONEq(t, `{"node_id":"`+id+`"}`, string(del.Data))
}

func TestHubMasksSettings(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	key := "sk-ant-secret-value-1234"
	f.store.UpdateSettings(session.SettingsPatch{APIKey: &key})

	msg := readUntil(t, conn, TypeSettings)
	assert.NotContains(t, string(msg.Data), "secret")
	var payload settingsPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "****1234", payload.Settings.APIKey)
}

func TestHubPing(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, TypePing, nil)
	readUntil(t, conn, TypePong)
}

func TestHubGenerate(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, TypeGenerate, generateRequest{URL: "example.com"})

	ack := readUntil(t, conn, TypeAck)
	var payload ackPayload
	require.NoError(t, json.Unmarshal(ack.Data, &payload))
	assert.Equal(t, "example.com", payload.Request.URL)
	assert.Empty(t, payload.Request.ParentID, "no selection means a new root")

	require.Eventually(t, func() bool {
		n, ok := f.store.Get(payload.Request.NodeID)
		return ok && n.Content != nil && strings.HasSuffix(*n.Content, "</html>")
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHubGenerateDefaultsToCurrentParent(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	parent := f.store.CreateNode("example.com", "", true)

	send(t, conn, TypeGenerate, generateRequest{URL: "example.com/about"})
	ack := readUntil(t, conn, TypeAck)
	var payload ackPayload
	require.NoError(t, json.Unmarshal(ack.Data, &payload))
	assert.Equal(t, parent, payload.Request.ParentID)

	root := ""
	send(t, conn, TypeGenerate, generateRequest{URL: "other.org", ParentID: &root})
	ack = readUntil(t, conn, TypeAck)
	var rootPayload ackPayload
	require.NoError(t, json.Unmarshal(ack.Data, &rootPayload))
	assert.Equal(t, "other.org", rootPayload.Request.URL)
	assert.Empty(t, rootPayload.Request.ParentID, "explicit empty parent means a new root")
}

func TestHubNavigate(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	parent := f.store.CreateNode("example.com/docs/index", "", true)

	send(t, conn, TypeNavigate, navigateRequest{Target: "../about"})
	ack := readUntil(t, conn, TypeAck)
	var payload ackPayload
	require.NoError(t, json.Unmarshal(ack.Data, &payload))
	assert.Equal(t, "https://example.com/about", payload.Request.URL)
	assert.Equal(t, parent, payload.Request.ParentID)

	send(t, conn, TypeNavigate, navigateRequest{Target: "javascript:alert(1)"})
	msg := readUntil(t, conn, TypeError)
	assert.Contains(t, string(msg.Data), "unresolvable")
}

func TestHubSelect(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	a := f.store.CreateNode("a", "", false)

	send(t, conn, TypeSelect, selectRequest{NodeID: a})
	sel := readUntil(t, conn, TypeSelection)
	assert.JSONEq(t, `{"current_node_id":"`+a+`"}`, string(sel.Data))

	send(t, conn, TypeSelect, selectRequest{NodeID: "missing"})
	readUntil(t, conn, TypeError)
}

func TestHubRejectsBadMessages(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, "teleport", nil)
	msg := readUntil(t, conn, TypeError)
	assert.Contains(t, string(msg.Data), "unknown message type")

	send(t, conn, TypeGenerate, nil)
	msg = readUntil(t, conn, TypeError)
	assert.Contains(t, string(msg.Data), "missing data")

	send(t, conn, TypeGenerate, map[string]string{"parent_id": "x"})
	msg = readUntil(t, conn, TypeError)
	assert.Contains(t, string(msg.Data), "url is required")
}

func TestHubDropsSlowClients(t *testing.T) {
	f := newFixture(t)
	slow := &client{id: "slow", send: make(chan []byte), done: make(chan struct{})}
	require.True(t, f.hub.register(slow))

	f.hub.broadcast(TypePong, nil)

	assert.Zero(t, f.hub.Clients())
	select {
	case <-slow.done:
	default:
		t.Fatal("slow client should be closed")
	}
}

func TestHubClose(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	f.hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Zero(t, f.hub.Clients())
}
