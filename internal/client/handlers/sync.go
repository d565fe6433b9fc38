package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaultdrive/vaultdrive/internal/client/sync"
)

// Engine is the slice of the client the HTTP handlers drive.
type Engine interface {
	Status() sync.StatusSnapshot
	PendingOps(ctx context.Context) ([]sync.Operation, error)
	PushNow(ctx context.Context) error
	PullNow(ctx context.Context, forceRemoteWins bool) error
	Undo(ctx context.Context, paths []string) ([]sync.Operation, []error, error)
}

type SyncHandler struct {
	engine Engine
}

func NewSyncHandler(engine Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

type journalEntry struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func (h *SyncHandler) Journal(c *gin.Context) {
	ops, err := h.engine.PendingOps(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries := make([]journalEntry, 0, len(ops))
	for _, op := range ops {
		entries = append(entries, journalEntry{Path: op.Path, Kind: string(op.Kind)})
	}
	c.JSON(http.StatusOK, gin.H{"operations": entries})
}

func (h *SyncHandler) Push(c *gin.Context) {
	if err := h.engine.PushNow(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, sync.ErrPushInProgress):
			status = http.StatusConflict
		case errors.Is(err, sync.ErrPushDeclined):
			status = http.StatusPreconditionFailed
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.Status())
}

type pullRequest struct {
	ForceRemoteWins bool `json:"forceRemoteWins"`
}

func (h *SyncHandler) Pull(c *gin.Context) {
	var body pullRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.engine.PullNow(c.Request.Context(), body.ForceRemoteWins); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.Status())
}

type undoRequest struct {
	Paths []string `json:"paths"`
}

type undoResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

func (h *SyncHandler) Undo(c *gin.Context) {
	var body undoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ops, errs, err := h.engine.Undo(c.Request.Context(), body.Paths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]undoResult, len(ops))
	failed := 0
	for i, op := range ops {
		results[i] = undoResult{Path: op.Path, Kind: string(op.Kind)}
		if errs[i] != nil {
			results[i].Error = errs[i].Error()
			failed++
		}
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"reversed": results, "failed": failed})
}
