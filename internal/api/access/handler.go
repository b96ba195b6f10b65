// Package access serves per-module access checks and gated module content.
package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/access"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

type Store interface {
	Get(ctx context.Context, userID uint) (account.State, error)
	ActiveLevelForModule(ctx context.Context, m account.Module) (levels.Level, error)
}

type Handler struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

type CheckResponse struct {
	HasAccess  bool   `json:"hasAccess"`
	LevelID    uint   `json:"levelId"`
	LevelTitle string `json:"levelTitle"`
	Module     string `json:"module"`
}

// GET /access/:module
func (h *Handler) Check(c *gin.Context) {
	m, ok := account.ParseModule(c.Param("module"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown module"})
		return
	}

	ctx := c.Request.Context()
	level, err := h.store.ActiveLevelForModule(ctx, m)
	if err != nil {
		if errors.Is(err, levels.ErrNotAvailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "module not available", "module": m})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	st, err := h.store.Get(ctx, c.GetUint(middleware.CtxUserID))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	d := access.Evaluate(st, m)
	metrics.ObserveAccess(string(m), d.Allowed)
	h.log.Debug("access evaluated",
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.String("module", string(m)),
		slog.Bool("allowed", d.Allowed),
		slog.String("rule", string(d.Rule)),
	)

	c.JSON(http.StatusOK, CheckResponse{
		HasAccess:  d.Allowed,
		LevelID:    level.ID,
		LevelTitle: level.Title,
		Module:     string(m),
	})
}

// GET /modules/:module/content, behind RequireProtectedAccess and
// RequireModuleAccess.
func (h *Handler) Content(c *gin.Context) {
	m, _ := account.ParseModule(c.Param("module"))

	level, err := h.store.ActiveLevelForModule(c.Request.Context(), m)
	if err != nil {
		if errors.Is(err, levels.ErrNotAvailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "module not available", "module": m})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"module":     m,
		"levelId":    level.ID,
		"levelTitle": level.Title,
		"interval":   level.Interval,
	})
}
