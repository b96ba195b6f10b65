package cron

import (
	"context"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/api/respond"

	"github.com/gin-gonic/gin"
)

type Sweeper interface {
	SweepExpiredTrials(ctx context.Context) (int, error)
}

type Handler struct {
	sweeper Sweeper
	log     *slog.Logger
}

func New(sweeper Sweeper, log *slog.Logger) *Handler {
	return &Handler{sweeper: sweeper, log: log}
}

// GET|POST /cron/expire-trials, behind RequireCronSecret.
func (h *Handler) ExpireTrials(c *gin.Context) {
	n, err := h.sweeper.SweepExpiredTrials(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
