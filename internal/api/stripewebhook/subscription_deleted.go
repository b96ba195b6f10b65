package stripewebhooks

import (
	"context"
	"errors"
	"log/slog"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/lib/sl"
)

func (h *Handler) handleSubscriptionDeleted(ctx context.Context, log *slog.Logger, ev *account.SubscriptionEnded) error {
	if ev == nil || ev.SubscriptionID == "" {
		return errors.New("subscription event without id")
	}

	st, err := h.lifecycle.SubscriptionEnded(ctx, *ev)
	if err != nil {
		if acknowledged(err) {
			log.Warn("subscription end not applied", sl.Err(err), slog.String("subscription_id", ev.SubscriptionID))
			return nil
		}
		return err
	}

	log.Info("subscription ended",
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.String("account_type", string(st.AccountType)),
		slog.Bool("is_active", st.IsActive),
	)
	return nil
}
