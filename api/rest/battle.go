package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/journal"
	mw "github.com/kasuganosora/rpg2kbattle/middleware"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"go.uber.org/zap"
)

const (
	defaultRecent = 20
	maxRecent     = 100
)

// BattleHandler serves simulations, live sessions and the battle journal.
type BattleHandler struct {
	data     *resource.ResourceLoader
	sessions *session.Manager
	journal  *journal.Service
	hooks    *hook.HookCenter
	opts     session.Options
	logger   *zap.Logger
}

// BattleHandlerConfig holds the dependencies of a BattleHandler.
type BattleHandlerConfig struct {
	Data     *resource.ResourceLoader
	Sessions *session.Manager
	Journal  *journal.Service
	Hooks    *hook.HookCenter
	Options  session.Options
	Logger   *zap.Logger
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(cfg BattleHandlerConfig) *BattleHandler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewHookCenter()
	}
	return &BattleHandler{
		data:     cfg.Data,
		sessions: cfg.Sessions,
		journal:  cfg.Journal,
		hooks:    cfg.Hooks,
		opts:     cfg.Options,
		logger:   cfg.Logger,
	}
}

// Register mounts the battle routes on g.
func (h *BattleHandler) Register(g *gin.RouterGroup) {
	g.POST("/battles/simulate", h.Simulate)
	g.GET("/battles", h.Recent)
	g.GET("/battles/:id", h.GetRecord)

	g.POST("/sessions", h.StartSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/input", h.Input)
	g.POST("/sessions/:id/abort", h.Abort)

	g.GET("/data/troops/:id", h.GetTroop)
}

// SimulateRequest is the body of POST /api/battles/simulate.
type SimulateRequest struct {
	session.StartRequest
	KeepEvents bool `json:"keep_events"`
}

// Simulate runs a whole battle with auto battle and journals the result.
// POST /api/battles/simulate
func (h *BattleHandler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := session.Simulate(c.Request.Context(), session.SimulateConfig{
		Data:       h.data,
		Options:    h.opts,
		Hooks:      h.hooks,
		Logger:     h.logger,
		TraceID:    mw.GetTraceID(c),
		KeepEvents: req.KeepEvents,
	}, req.StartRequest)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRecord returns a journaled battle.
// GET /api/battles/:id
func (h *BattleHandler) GetRecord(c *gin.Context) {
	rec, err := h.journal.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Recent lists the newest journaled battles.
// GET /api/battles?limit=20
func (h *BattleHandler) Recent(c *gin.Context) {
	limit := defaultRecent
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxRecent {
		limit = l
	}
	recs, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": recs})
}

// StartSession begins a live battle.
// POST /api/sessions
func (h *BattleHandler) StartSession(c *gin.Context) {
	var req session.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.sessions.Start(c.Request.Context(), req, mw.GetTraceID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       s.ID,
		"seed":     s.Seed,
		"snapshot": s.Snapshot(),
	})
}

// ListSessions lists the live and recently finished sessions.
// GET /api/sessions
func (h *BattleHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.IDs()})
}

// GetSession returns the current state of a session.
// GET /api/sessions/:id
func (h *BattleHandler) GetSession(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// InputRequest is the body of POST /api/sessions/:id/input.
type InputRequest struct {
	Signal string `json:"signal" binding:"required"`
	Index  *int   `json:"index"`
}

// Input queues a key press for a session.
// POST /api/sessions/:id/input
func (h *BattleHandler) Input(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sig, err := session.ParseSignal(req.Signal)
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Index != nil && *req.Index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must not be negative"})
		return
	}
	if err := h.sessions.Input(c.Param("id"), sig, req.Index); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// Abort ends a session on its next frame.
// POST /api/sessions/:id/abort
func (h *BattleHandler) Abort(c *gin.Context) {
	if err := h.sessions.Abort(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"aborting": true})
}

// TroopMember is one enemy of a troop as listed by GetTroop.
type TroopMember struct {
	EnemyID   int    `json:"enemy_id"`
	Name      string `json:"name"`
	MaxHP     int    `json:"max_hp"`
	Invisible bool   `json:"invisible"`
}

// GetTroop describes a troop of the loaded database.
// GET /api/data/troops/:id
func (h *BattleHandler) GetTroop(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid troop id"})
		return
	}
	troop, err := h.data.Troop(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	members := make([]TroopMember, 0, len(troop.Members))
	for _, m := range troop.Members {
		tm := TroopMember{EnemyID: m.EnemyID, Invisible: m.Invisible}
		if e := h.data.EnemyByID(m.EnemyID); e != nil {
			tm.Name = e.Name
			tm.MaxHP = e.MaxHP
		}
		members = append(members, tm)
	}
	c.JSON(http.StatusOK, gin.H{"id": troop.ID, "name": troop.Name, "members": members})
}

// fail maps service errors to HTTP status codes.
func (h *BattleHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, resource.ErrNotFound),
		errors.Is(err, journal.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionFinished):
		status = http.StatusConflict
	case errors.Is(err, hook.ErrInterrupt):
		status = http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("battle request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
