package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/access"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/infra/stripe"

	"github.com/gin-gonic/gin"
)

// POST /create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID    string `json:"price_id" binding:"required"`
		SuccessURL string `json:"success_url" binding:"omitempty,url"`
		CancelURL  string `json:"cancel_url" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Validation(c, err)
		return
	}

	successURL := h.appURL + "/account?checkout=success&session_id={CHECKOUT_SESSION_ID}"
	cancelURL := h.appURL + "/account?canceled=1"
	if body.SuccessURL != "" {
		if !h.sameOrigin(body.SuccessURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "success_url must point to the application"})
			return
		}
		successURL = body.SuccessURL
	}
	if body.CancelURL != "" {
		if !h.sameOrigin(body.CancelURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cancel_url must point to the application"})
			return
		}
		cancelURL = body.CancelURL
	}

	ctx := c.Request.Context()

	// allow-list price id
	level, err := h.store.ActiveLevelByPriceID(ctx, body.PriceID)
	if err != nil {
		if errors.Is(err, levels.ErrNotAvailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown price_id"})
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

	req := stripe.CheckoutRequest{
		UserID:     st.UserID,
		Email:      st.Email,
		PriceID:    level.StripePriceID,
		LevelID:    level.ID,
		Module:     string(level.Module),
		Plan:       level.Interval,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
	if st.StripeCustomerID != nil {
		req.CustomerID = *st.StripeCustomerID
	}

	s, err := h.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	h.log.Info("checkout session created",
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.Uint64("level_id", uint64(level.ID)),
		slog.String("session_id", s.ID),
	)
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "url": s.URL})
}

// GET /checkout/verify?session_id=... applies a completed checkout without
// waiting for the webhook. Replays are harmless. Only the student the session
// was opened for may verify it.
func (h *Handler) VerifyCheckout(c *gin.Context) {
	id := strings.TrimSpace(c.Query("session_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	ctx := c.Request.Context()
	ev, err := h.gateway.CheckoutSession(ctx, id)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	if caller := c.GetUint(middleware.CtxUserID); ev.UserID == 0 || ev.UserID != caller {
		h.log.Warn("checkout session verified by another user",
			slog.String("session_id", id),
			slog.Uint64("caller_id", uint64(caller)),
		)
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	st, err := h.lifecycle.PaymentVerified(ctx, ev)
	if err != nil {
		if errors.Is(err, account.ErrPaymentNotPaid) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment not completed", "status": ev.PaymentStatus})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "paid",
		"account_type": st.AccountType,
		"access_state": access.ComputeEffectiveAccessState(st),
	})
}

// sameOrigin reports whether raw has the scheme and host of the app URL.
func (h *Handler) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	app, err := url.Parse(h.appURL)
	if err != nil {
		return false
	}
	return u.Scheme == app.Scheme && u.Host == app.Host
}
