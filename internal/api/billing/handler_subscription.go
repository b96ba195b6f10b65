package billing

import (
	"errors"
	"net/http"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/account"

	"github.com/gin-gonic/gin"
)

// POST /subscription/cancel schedules cancellation at period end. Access
// stays until the provider reports the subscription deleted.
func (h *Handler) CancelSubscription(c *gin.Context) {
	st, err := h.lifecycle.RequestCancellation(c.Request.Context(), c.GetUint(middleware.CtxUserID))
	if err != nil {
		if errors.Is(err, account.ErrNoSubscription) {
			c.JSON(http.StatusConflict, gin.H{"error": "No active subscription"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Subscription will end at the close of the current period",
		"cancel_at_period_end":  st.CancelAtPeriodEnd,
		"subscription_end_date": st.SubscriptionEndDate,
	})
}

// POST /billing-portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	st, err := h.store.Get(c.Request.Context(), c.GetUint(middleware.CtxUserID))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}
	if st.StripeCustomerID == nil || *st.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	url, err := h.gateway.BillingPortal(c.Request.Context(), *st.StripeCustomerID, h.appURL+"/account")
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
