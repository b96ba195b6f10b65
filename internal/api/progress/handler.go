// Package progress records study time and streams it to the learner.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

type Store interface {
	Get(ctx context.Context, userID uint) (account.State, error)
	AddStudyTime(ctx context.Context, userID uint, seconds int64) (int64, error)
}

type Handler struct {
	store        Store
	pingInterval time.Duration
	log          *slog.Logger
}

func New(store Store, pingInterval time.Duration, log *slog.Logger) *Handler {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	return &Handler{store: store, pingInterval: pingInterval, log: log}
}

type StudyTimeRequest struct {
	Seconds int64 `json:"seconds" binding:"required,min=1,max=3600"`
}

// POST /progress/study-time
func (h *Handler) AddStudyTime(c *gin.Context) {
	var req StudyTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}

	total, err := h.store.AddStudyTime(c.Request.Context(), c.GetUint(middleware.CtxUserID), req.Seconds)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"studyTimeSeconds": total})
}

// GET /progress/stream
//
// Sends the current progress once, then a ping every interval until the
// client goes away. The ticker belongs to this request only.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetUint(middleware.CtxUserID)

	st, err := h.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	metrics.SSEConnections.Inc()
	defer metrics.SSEConnections.Dec()

	c.SSEvent("progress", gin.H{"studyTimeSeconds": st.StudyTimeSeconds})
	c.Writer.Flush()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("progress stream closed", slog.Uint64("user_id", uint64(userID)))
			return
		case t := <-ticker.C:
			c.SSEvent("ping", gin.H{"ts": t.UTC().Unix()})
			c.Writer.Flush()
		}
	}
}
