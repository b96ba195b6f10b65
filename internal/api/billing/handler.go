package billing

import (
	"context"
	"log/slog"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/infra/stripe"
)

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (stripe.CheckoutSession, error)
	CheckoutSession(ctx context.Context, id string) (account.PaymentVerified, error)
	BillingPortal(ctx context.Context, customerID, returnURL string) (string, error)
}

type Store interface {
	Get(ctx context.Context, userID uint) (account.State, error)
	ActiveLevelByPriceID(ctx context.Context, priceID string) (levels.Level, error)
	ListPayments(ctx context.Context, userID uint) ([]billing.Payment, error)
}

type Lifecycle interface {
	PaymentVerified(ctx context.Context, ev account.PaymentVerified) (account.State, error)
	RequestCancellation(ctx context.Context, userID uint) (account.State, error)
}

type Handler struct {
	gateway   Gateway
	store     Store
	lifecycle Lifecycle
	appURL    string
	log       *slog.Logger
}

func New(gateway Gateway, store Store, lifecycle Lifecycle, appURL string, log *slog.Logger) *Handler {
	return &Handler{
		gateway:   gateway,
		store:     store,
		lifecycle: lifecycle,
		appURL:    appURL,
		log:       log,
	}
}
