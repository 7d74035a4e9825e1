package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]session.Snapshot

func (f fakeSessions) Snapshot(id string) (session.Snapshot, error) {
	s, ok := f[id]
	if !ok {
		return session.Snapshot{}, session.ErrSessionNotFound
	}
	return s, nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/sessions/:id/events", h.ServeBattle)
	return r
}

func TestServeBattle_NotFound(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	r := newRouter(NewHandler(ps, fakeSessions{}, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/nope/events", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeBattle_FinishedSendsSnapshotOnly(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	r := newRouter(NewHandler(ps, fakeSessions{"b1": {ID: "b1", State: "victory", Result: "victory"}}, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/b1/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: snapshot\n")
	assert.Contains(t, w.Body.String(), `"result":"victory"`)
}

func TestServeBattle_RelaysUntilBattleEnd(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	h := NewHandler(ps, fakeSessions{"b2": {ID: "b2", State: "select_option", Result: "none"}}, nil)
	r := newRouter(h)

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/b2/events", nil))
	}()

	ctx := context.Background()
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, ps.Publish(ctx, "battle:b2", "not json"))
		require.NoError(t, ps.Publish(ctx, "battle:b2", `{"type":"message_push","frame":3,"payload":{"text":"Hi","line":0}}`))
		require.NoError(t, ps.Publish(ctx, "battle:b2", `{"type":"battle_end","frame":9,"payload":{"result":"victory"}}`))
		select {
		case <-done:
			body := w.Body.String()
			assert.Contains(t, body, "event: snapshot\n")
			assert.Contains(t, body, "event: battle_end\n")
			assert.NotContains(t, body, "not json")
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("stream did not close after battle_end")
		}
	}
}
