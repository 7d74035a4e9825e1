package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apirest "github.com/kasuganosora/rpg2kbattle/api/rest"
	"github.com/kasuganosora/rpg2kbattle/api/sse"
	"github.com/kasuganosora/rpg2kbattle/api/ws"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/config"
	"github.com/kasuganosora/rpg2kbattle/game/battle"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/journal"
	mw "github.com/kasuganosora/rpg2kbattle/middleware"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/plugin/script"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"github.com/kasuganosora/rpg2kbattle/scheduler"
	"github.com/kasuganosora/rpg2kbattle/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with the battle services wired the
// way main.go wires them.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Res      *resource.ResourceLoader
	Sessions *session.Manager
	Hooks    *hook.HookCenter
	Server   *httptest.Server
	URL      string // http://127.0.0.1:<port>
}

func fastOptions() session.Options {
	return session.Options{
		Timing: battle.Timing{
			ActionWait:          1,
			EscapeWait:          1,
			TargetFlashInterval: 1,
			EncounterShortWait:  1,
			EncounterLongWait:   1,
		},
		FPS:        1000,
		MaxTicks:   20000,
		SessionTTL: time.Minute,
	}
}

// NewTestServer creates a fully wired server over testutil.BattleData.
// Each source becomes a battle hook script named script<N>.js.
func NewTestServer(t *testing.T, sources ...string) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	res := testutil.BattleData()

	sec := config.SecurityConfig{
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	hooks := hook.NewHookCenter()
	jr := journal.New(db, journal.Config{FlushInterval: 10 * time.Millisecond, Logger: logger})
	t.Cleanup(func() { jr.Stop(context.Background()) })
	jr.Register(hooks)

	if len(sources) > 0 {
		scripts := make([]*script.Script, 0, len(sources))
		for i, src := range sources {
			s, err := script.Compile(fmt.Sprintf("script%d.js", i), src)
			require.NoError(t, err)
			scripts = append(scripts, s)
		}
		script.NewRunner(script.NewVMPool(2, time.Second, logger), scripts, logger).Register(hooks)
	}

	opts := fastOptions()
	sessions := session.NewManager(session.ManagerConfig{
		Data:      res,
		Scheduler: sched,
		PubSub:    pubsub,
		Hooks:     hooks,
		Options:   opts,
		Logger:    logger,
	})
	t.Cleanup(sessions.StopAll)

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(sessions.IDs())})
	})

	api := r.Group("/api")
	api.Use(mw.RateLimit(ctx, rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))
	apirest.NewBattleHandler(apirest.BattleHandlerConfig{
		Data:     res,
		Sessions: sessions,
		Journal:  jr,
		Hooks:    hooks,
		Options:  opts,
		Logger:   logger,
	}).Register(api)
	api.GET("/sessions/:id/events", sse.NewHandler(pubsub, sessions, logger).ServeBattle)
	api.GET("/sessions/:id/ws", ws.NewHandler(ws.HandlerConfig{
		Sessions: sessions,
		PubSub:   pubsub,
		Security: sec,
		Logger:   logger,
	}).ServeBattle)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &TestServer{
		DB:       db,
		Cache:    c,
		PubSub:   pubsub,
		Res:      res,
		Sessions: sessions,
		Hooks:    hooks,
		Server:   server,
		URL:      server.URL,
	}
}

// --- HTTP helpers ---

// PostJSON sends a POST request with a JSON body.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

// Get sends a GET request.
func (ts *TestServer) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// StartSession starts a live battle and returns its id.
func (ts *TestServer) StartSession(t *testing.T, troopID int, actorIDs ...int) string {
	t.Helper()
	actors := make([]map[string]int, 0, len(actorIDs))
	for _, id := range actorIDs {
		actors = append(actors, map[string]int{"id": id})
	}
	resp := ts.PostJSON(t, "/api/sessions", map[string]interface{}{
		"troop_id": troopID,
		"actors":   actors,
		"seed":     11,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]interface{}
	ReadJSON(t, resp, &out)
	return out["id"].(string)
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection. A background readLoop
// feeds readCh so that a receive timeout never poisons the connection.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// ConnectWS dials the socket of a battle session.
func (ts *TestServer) ConnectWS(t *testing.T, battleID string) *WSClient {
	t.Helper()
	url := "ws" + ts.URL[len("http"):] + "/api/sessions/" + battleID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	t.Cleanup(wc.Close)
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes a packet with the next sequence number.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(wc.t, err)
		raw = b
	}
	require.NoError(wc.t, wc.Conn.WriteJSON(ws.Packet{Seq: seq, Type: msgType, Payload: raw}))
}

// RecvAny reads one packet or reports errTimeout.
func (wc *WSClient) RecvAny(timeout time.Duration) (*ws.Packet, error) {
	select {
	case res := <-wc.readCh:
		if res.err != nil {
			return nil, res.err
		}
		var pkt ws.Packet
		if err := json.Unmarshal(res.data, &pkt); err != nil {
			return nil, err
		}
		return &pkt, nil
	case <-time.After(timeout):
		return nil, errTimeout
	}
}

// RecvType reads packets until one of msgType arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) *ws.Packet {
	wc.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
		}
		pkt, err := wc.RecvAny(remaining)
		if err == errTimeout {
			continue
		}
		require.NoError(wc.t, err, "WS recv failed while waiting for %q", msgType)
		if pkt.Type == msgType {
			return pkt
		}
	}
}

// Close closes the WebSocket connection.
func (wc *WSClient) Close() {
	_ = wc.Conn.Close()
}

type timeoutError struct{}

func (timeoutError) Error() string { return "read timeout" }

var errTimeout error = timeoutError{}

// Envelope decodes the presentation envelope carried by an "event" packet.
func Envelope(t *testing.T, pkt *ws.Packet) (typ string, payload map[string]interface{}) {
	t.Helper()
	var env struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pkt.Payload, &env))
	return env.Type, env.Payload
}
