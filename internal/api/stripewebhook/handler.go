package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/infra/metrics"
	"tajwid-academy/internal/infra/stripe"
	"tajwid-academy/internal/lib/sl"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 65536

type Parser interface {
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}

// EventLog remembers which provider events were already applied.
type EventLog interface {
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

type Lifecycle interface {
	PaymentVerified(ctx context.Context, ev account.PaymentVerified) (account.State, error)
	SubscriptionUpdated(ctx context.Context, ev account.SubscriptionUpdated) (account.State, error)
	SubscriptionEnded(ctx context.Context, ev account.SubscriptionEnded) (account.State, error)
}

type Handler struct {
	parser    Parser
	events    EventLog
	lifecycle Lifecycle
	log       *slog.Logger
}

func New(parser Parser, events EventLog, lifecycle Lifecycle, log *slog.Logger) *Handler {
	return &Handler{parser: parser, events: events, lifecycle: lifecycle, log: log}
}

// POST /webhook
//
// 400 when the signature does not verify, 500 when applying the event failed
// and the provider should retry, 200 otherwise.
func (h *Handler) StripeWebhook(c *gin.Context) {
	const op = "stripewebhooks.StripeWebhook"
	log := h.log.With(slog.String("op", op))

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := h.parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if apperr.KindOf(err) == apperr.SignatureInvalid {
			log.Warn("stripe signature verification failed", sl.Err(err))
			metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}
		log.Warn("malformed stripe event", sl.Err(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	if event.Kind == stripe.EventIgnored {
		// Acknowledge unknown events to avoid retries
		metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	done, err := h.events.EventProcessed(ctx, event.ID)
	if err != nil {
		log.Error("failed to check event log", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if done {
		metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	switch event.Kind {
	case stripe.EventPaymentVerified:
		err = h.handleCheckoutSessionCompleted(ctx, log, event.Payment)
	case stripe.EventSubscriptionUpdated:
		err = h.handleSubscriptionUpdated(ctx, log, event.Updated)
	case stripe.EventSubscriptionEnded:
		err = h.handleSubscriptionDeleted(ctx, log, event.Ended)
	}
	if err != nil {
		log.Error("failed to apply stripe event", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := h.events.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		// The transition is already applied and replays are no-ops.
		log.Error("failed to record processed event", sl.Err(err))
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, "processed").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// acknowledged reports errors a retry would not fix. Those are logged and
// answered with 200.
func acknowledged(err error) bool {
	return errors.Is(err, account.ErrNotFound) ||
		errors.Is(err, account.ErrPaymentNotPaid) ||
		apperr.KindOf(err) == apperr.Validation
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
