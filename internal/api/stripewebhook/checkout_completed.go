package stripewebhooks

import (
	"context"
	"errors"
	"log/slog"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/lib/sl"
)

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, log *slog.Logger, ev *account.PaymentVerified) error {
	if ev == nil {
		return errors.New("checkout event without payload")
	}

	st, err := h.lifecycle.PaymentVerified(ctx, *ev)
	if err != nil {
		if acknowledged(err) {
			log.Warn("checkout not applied", sl.Err(err), slog.String("session_id", ev.SessionID))
			return nil
		}
		return err
	}

	log.Info("checkout applied",
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.String("account_type", string(st.AccountType)),
	)
	return nil
}
