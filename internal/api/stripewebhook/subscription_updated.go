package stripewebhooks

import (
	"context"
	"errors"
	"log/slog"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/lib/sl"
)

func (h *Handler) handleSubscriptionUpdated(ctx context.Context, log *slog.Logger, ev *account.SubscriptionUpdated) error {
	if ev == nil || ev.SubscriptionID == "" {
		return errors.New("subscription event without id")
	}

	st, err := h.lifecycle.SubscriptionUpdated(ctx, *ev)
	if err != nil {
		if acknowledged(err) {
			// acknowledge to avoid Stripe retries if user deleted
			log.Warn("subscription update not applied", sl.Err(err), slog.String("subscription_id", ev.SubscriptionID))
			return nil
		}
		return err
	}

	log.Info("subscription updated",
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.String("status", ev.Status),
		slog.Bool("cancel_at_period_end", st.CancelAtPeriodEnd),
	)
	return nil
}
