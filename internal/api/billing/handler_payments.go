package billing

import (
	"net/http"
	"time"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

type PaymentDTO struct {
	ID         uint      `json:"id"`
	LevelTitle *string   `json:"level_title,omitempty"`
	Module     *string   `json:"module,omitempty"`
	AmountEUR  float64   `json:"amount_eur"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// GET /payments
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	payments, err := h.store.ListPayments(c.Request.Context(), c.GetUint(middleware.CtxUserID))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	out := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dto := PaymentDTO{
			ID:        p.ID,
			AmountEUR: p.AmountEUR,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		}
		if p.Level != nil {
			title, module := p.Level.Title, string(p.Level.Module)
			dto.LevelTitle, dto.Module = &title, &module
		}
		out = append(out, dto)
	}

	c.JSON(http.StatusOK, out)
}
