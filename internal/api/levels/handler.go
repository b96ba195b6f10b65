// Package levels lists the purchasable levels and syncs them from Stripe.
package levels

import (
	"context"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/infra/stripe"
	"tajwid-academy/internal/lib/sl"

	"github.com/gin-gonic/gin"
)

type PriceLister interface {
	ListRecurringPrices(ctx context.Context) ([]stripe.Price, error)
}

type Store interface {
	ListActiveLevels(ctx context.Context) ([]levels.Level, error)
	UpsertLevel(ctx context.Context, l levels.Level) (bool, error)
}

type Handler struct {
	prices PriceLister
	store  Store
	log    *slog.Logger
}

func New(prices PriceLister, store Store, log *slog.Logger) *Handler {
	return &Handler{prices: prices, store: store, log: log}
}

type LevelDTO struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Module   string  `json:"module"`
	PriceEUR float64 `json:"priceEur"`
	PriceID  string  `json:"priceId"`
	Interval string  `json:"interval"`
}

// GET /levels
func (h *Handler) List(c *gin.Context) {
	rows, err := h.store.ListActiveLevels(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	out := make([]LevelDTO, 0, len(rows))
	for _, l := range rows {
		out = append(out, LevelDTO{
			ID:       l.ID,
			Title:    l.Title,
			Module:   string(l.Module),
			PriceEUR: l.PriceEUR,
			PriceID:  l.StripePriceID,
			Interval: l.Interval,
		})
	}
	c.JSON(http.StatusOK, out)
}

// POST /admin/sync-levels
//
// Every recurring price whose product (or price) metadata names a known
// module becomes a level. Prices without a module are skipped.
func (h *Handler) Sync(c *gin.Context) {
	const op = "levels.Sync"
	log := h.log.With(slog.String("op", op))
	ctx := c.Request.Context()

	prices, err := h.prices.ListRecurringPrices(ctx)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	synced, created, updated, skipped := 0, 0, 0, 0
	for _, p := range prices {
		m, ok := account.ParseModule(p.Module)
		if !ok || !p.Active {
			skipped++
			continue
		}

		isNew, err := h.store.UpsertLevel(ctx, levels.Level{
			Title:         p.Name,
			Module:        m,
			PriceEUR:      p.AmountEUR,
			StripePriceID: p.ID,
			Interval:      p.Interval,
			IsActive:      true,
		})
		if err != nil {
			log.Error("failed to upsert level", sl.Err(err), slog.String("price_id", p.ID))
			respond.Error(c, h.log, err)
			return
		}
		if isNew {
			created++
		} else {
			updated++
		}
		synced++
	}

	log.Info("levels synced", slog.Int("synced", synced), slog.Int("skipped", skipped))
	c.JSON(http.StatusOK, gin.H{
		"synced":  synced,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
