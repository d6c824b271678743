// Package api exposes the round engine's thin operator-facing HTTP surface:
// current round status, a manual replay trigger, and the rounds/change
// websocket stream. None of this participates in the engine's correctness
// properties — it's the ambient surface the teacher repo always wraps its
// engines in (internal/api/routes.go, internal/api/auth.go).
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/round-engine/internal/engine"
	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundmath"
	"github.com/rawblock/round-engine/internal/store"
)

// Server wires the round engine and its collaborators into gin handlers.
type Server struct {
	Engine *engine.Engine
	Blocks store.BlockStore
	Bus    *eventbus.Bus
	Exec   engine.Executor

	// BeginTx opens the transaction a replay request runs its ops inside.
	// Supplied by the caller so this package never imports a concrete
	// store backend.
	BeginTx func(ctx context.Context) (store.Txn, CommitRollback, error)
}

// CommitRollback is the pair of functions a Server uses to finish a
// transaction opened via BeginTx.
type CommitRollback struct {
	Commit   func(ctx context.Context) error
	Rollback func(ctx context.Context) error
}

// SetupRouter builds the gin engine with auth, rate limiting, and routes
// wired in, in the shape of the teacher's SetupRouter(dbConn, ...).
func SetupRouter(s *Server, authToken string) *gin.Engine {
	r := gin.Default()

	limiter := NewRateLimiter(120, 30)
	r.Use(limiter.Middleware())

	protected := r.Group("/")
	protected.Use(AuthMiddleware())

	protected.GET("/rounds/current", s.handleCurrentRound)
	protected.GET("/rounds/:n", s.handleRoundByNumber)
	protected.POST("/rounds/replay", s.handleReplay)

	r.GET("/ws", func(c *gin.Context) { s.Bus.Hub().Subscribe(c) })

	return r
}

func (s *Server) handleCurrentRound(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isLoaded":  s.Engine.State.IsLoaded(),
		"isTicking": s.Engine.State.IsTicking(),
		"snapshot":  s.Engine.State.Snapshot(),
	})
}

func (s *Server) handleRoundByNumber(c *gin.Context) {
	var n uint64
	if _, err := fmt.Sscanf(c.Param("n"), "%d", &n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round must be a non-negative integer"})
		return
	}

	first := roundmath.FirstInRound(n, s.Engine.ActiveDelegates)
	last := roundmath.LastInRound(n, s.Engine.ActiveDelegates)

	block, err := s.Blocks.Find(c.Request.Context(), nil, last)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round":      n,
		"firstBlock": first,
		"lastBlock":  last,
		"closed":     block != nil,
	})
}

// replayRequest is the body of POST /rounds/replay: re-run tick for a
// specific already-persisted block, useful for operators recovering from a
// crash between exec.Execute and the caller's own commit.
type replayRequest struct {
	Height uint64 `json:"height" binding:"required"`
}

func (s *Server) handleReplay(c *gin.Context) {
	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := s.Blocks.Find(c.Request.Context(), nil, req.Height)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found at that height"})
		return
	}

	tx, finish, err := s.BeginTx(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("begin transaction: %v", err)})
		return
	}

	if err := s.Engine.Tick(c.Request.Context(), *block, tx, s.Exec); err != nil {
		_ = finish.Rollback(c.Request.Context())
		status := http.StatusInternalServerError
		if err == engine.ErrOverlappingTick {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if err := finish.Commit(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("commit: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"replayed": req.Height})
}
