package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/rpg2kbattle/api/ws"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/config"
	"github.com/kasuganosora/rpg2kbattle/game/presentation"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type input struct {
	sig   session.Signal
	index *int
}

type fakeSessions struct {
	mu      sync.Mutex
	inputs  []input
	aborted bool
}

func (f *fakeSessions) Snapshot(id string) (session.Snapshot, error) {
	if id != "b-1" {
		return session.Snapshot{}, session.ErrSessionNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := "none"
	if f.aborted {
		result = "abort"
	}
	return session.Snapshot{ID: id, State: "select_option", Result: result}, nil
}

func (f *fakeSessions) Input(id string, sig session.Signal, index *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted {
		return session.ErrSessionFinished
	}
	f.inputs = append(f.inputs, input{sig: sig, index: index})
	return nil
}

func (f *fakeSessions) Abort(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
	return nil
}

func (f *fakeSessions) recorded() []input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]input(nil), f.inputs...)
}

func newServer(t *testing.T, sec config.SecurityConfig) (*httptest.Server, *fakeSessions, cache.PubSub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, ps := testutil.SetupTestCache(t)
	fs := &fakeSessions{}
	h := ws.NewHandler(ws.HandlerConfig{Sessions: fs, PubSub: ps, Security: sec})

	r := gin.New()
	r.GET("/api/sessions/:id/ws", h.ServeBattle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, fs, ps
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "b-1"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) ws.Packet {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pkt ws.Packet
	require.NoError(t, conn.ReadJSON(&pkt))
	return pkt
}

func write(t *testing.T, conn *websocket.Conn, seq uint64, typ string, payload interface{}) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	require.NoError(t, conn.WriteJSON(ws.Packet{Seq: seq, Type: typ, Payload: raw}))
}

func TestServeBattle_SnapshotFirst(t *testing.T) {
	srv, _, _ := newServer(t, config.SecurityConfig{})
	conn := dial(t, srv)

	pkt := read(t, conn)
	require.Equal(t, "snapshot", pkt.Type)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(pkt.Payload, &snap))
	assert.Equal(t, "b-1", snap.ID)
	assert.Equal(t, "select_option", snap.State)
}

func TestServeBattle_Input(t *testing.T) {
	srv, fs, _ := newServer(t, config.SecurityConfig{})
	conn := dial(t, srv)
	read(t, conn)

	write(t, conn, 1, "input", ws.InputPayload{Signal: "confirm", Index: intPtr(2)})
	ack := read(t, conn)
	require.Equal(t, "ack", ack.Type)

	got := fs.recorded()
	require.Len(t, got, 1)
	assert.Equal(t, session.SignalConfirm, got[0].sig)
	require.NotNil(t, got[0].index)
	assert.Equal(t, 2, *got[0].index)

	write(t, conn, 2, "input", ws.InputPayload{Signal: "jump"})
	assert.Equal(t, "error", read(t, conn).Type)

	write(t, conn, 3, "input", ws.InputPayload{Signal: "cancel", Index: intPtr(-1)})
	assert.Equal(t, "error", read(t, conn).Type)
	assert.Len(t, fs.recorded(), 1)
}

func TestServeBattle_AbortThenInputFails(t *testing.T) {
	srv, _, _ := newServer(t, config.SecurityConfig{})
	conn := dial(t, srv)
	read(t, conn)

	write(t, conn, 1, "abort", nil)
	assert.Equal(t, "ack", read(t, conn).Type)

	write(t, conn, 2, "snapshot", nil)
	pkt := read(t, conn)
	require.Equal(t, "snapshot", pkt.Type)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(pkt.Payload, &snap))
	assert.Equal(t, "abort", snap.Result)

	write(t, conn, 3, "input", ws.InputPayload{Signal: "confirm"})
	errPkt := read(t, conn)
	require.Equal(t, "error", errPkt.Type)
	var ep ws.ErrorPayload
	require.NoError(t, json.Unmarshal(errPkt.Payload, &ep))
	assert.Contains(t, ep.Error, session.ErrSessionFinished.Error())
}

func TestServeBattle_RelaysEvents(t *testing.T) {
	srv, _, ps := newServer(t, config.SecurityConfig{})
	conn := dial(t, srv)
	read(t, conn)

	payload := `{"type":"battle_message","frame":4,"payload":{"text":"Slime appeared!"}}`
	require.NoError(t, ps.Publish(context.Background(), presentation.Channel("b-1"), "not json"))
	require.NoError(t, ps.Publish(context.Background(), presentation.Channel("b-1"), payload))

	pkt := read(t, conn)
	require.Equal(t, "event", pkt.Type)
	var env struct {
		Type  string `json:"type"`
		Frame int    `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(pkt.Payload, &env))
	assert.Equal(t, "battle_message", env.Type)
	assert.Equal(t, 4, env.Frame)
}

func TestServeBattle_Ping(t *testing.T) {
	srv, _, _ := newServer(t, config.SecurityConfig{})
	conn := dial(t, srv)
	read(t, conn)

	write(t, conn, 0, "ping", map[string]int64{"ts": 42})
	pkt := read(t, conn)
	require.Equal(t, "pong", pkt.Type)
	var pong ws.PongPayload
	require.NoError(t, json.Unmarshal(pkt.Payload, &pong))
	assert.Equal(t, int64(42), pong.ClientTS)
	assert.NotZero(t, pong.ServerTS)
}

func TestServeBattle_NotFound(t *testing.T) {
	srv, _, _ := newServer(t, config.SecurityConfig{})
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "nope"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeBattle_OriginCheck(t *testing.T) {
	srv, _, _ := newServer(t, config.SecurityConfig{AllowedOrigins: []string{"http://game.example"}})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "b-1"), http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "b-1"), http.Header{"Origin": {"http://game.example"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "snapshot", read(t, conn).Type)
}

func intPtr(v int) *int { return &v }
