// Package stripe adapts the Stripe API to the account lifecycle. Nothing
// outside this package sees stripe-go types.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/domain/account"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

var ErrSignatureInvalid = apperr.New(apperr.SignatureInvalid, "signature verification failed")

type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentVerified
	EventSubscriptionUpdated
	EventSubscriptionEnded
)

// Event is a verified webhook delivery translated to a lifecycle trigger.
// Exactly one of the payload pointers is set unless Kind is EventIgnored.
type Event struct {
	ID   string
	Type string
	Kind EventKind

	Payment *account.PaymentVerified
	Updated *account.SubscriptionUpdated
	Ended   *account.SubscriptionEnded
}

type CheckoutRequest struct {
	UserID     uint
	Email      string
	CustomerID string
	PriceID    string
	LevelID    uint
	Module     string
	Plan       string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Price is a recurring price as listed by the provider.
type Price struct {
	ID        string
	ProductID string
	Name      string
	Module    string
	AmountEUR float64
	Interval  string
	Active    bool
}

type Gateway struct {
	api           *client.API
	webhookSecret string
	productID     string
}

func NewGateway(secretKey, webhookSecret, productID string) *Gateway {
	return &Gateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		productID:     productID,
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	uid := strconv.FormatUint(uint64(req.UserID), 10)
	meta := map[string]string{
		"user_id":  uid,
		"level_id": strconv.FormatUint(uint64(req.LevelID), 10),
		"module":   req.Module,
		"plan":     req.Plan,
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(uid),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": uid},
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, apperr.Upstreamf(err, "failed to create checkout session")
	}
	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CheckoutSession fetches a session for synchronous verification after the
// redirect back from checkout.
func (g *Gateway) CheckoutSession(ctx context.Context, id string) (account.PaymentVerified, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.AddExpand("customer")
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return account.PaymentVerified{}, apperr.Upstreamf(err, "failed to fetch checkout session")
	}
	return paymentFromSession(s), nil
}

// CancelSubscription schedules cancellation at the end of the current
// period and reports when it takes effect.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) (account.Cancellation, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return account.Cancellation{}, apperr.Upstreamf(err, "failed to cancel subscription")
	}

	effective := sub.CurrentPeriodEnd
	if sub.CancelAt != 0 {
		effective = sub.CancelAt
	}
	return account.Cancellation{
		SubscriptionID: sub.ID,
		EffectiveAt:    time.Unix(effective, 0).UTC(),
	}, nil
}

func (g *Gateway) BillingPortal(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	portal, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", apperr.Upstreamf(err, "could not create billing portal session")
	}
	return portal.URL, nil
}

// ListRecurringPrices returns the active recurring prices, restricted to the
// configured product when one is set.
func (g *Gateway) ListRecurringPrices(ctx context.Context) ([]Price, error) {
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
		Type:   stripe.String(string(stripe.PriceTypeRecurring)),
	}
	if g.productID != "" {
		params.Product = stripe.String(g.productID)
	}
	params.AddExpand("data.product")
	params.Context = ctx

	var out []Price
	it := g.api.Prices.List(params)
	for it.Next() {
		out = append(out, priceFromStripe(it.Price()))
	}
	if err := it.Err(); err != nil {
		return nil, apperr.Upstreamf(err, "failed to list prices")
	}
	return out, nil
}

// ParseWebhook verifies the signature and translates the event. Any
// verification failure is ErrSignatureInvalid.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}

	switch string(ev.Type) {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return Event{}, apperr.Wrap(apperr.Validation, "failed to parse session", err)
		}
		p := paymentFromSession(&s)
		p.EventID = ev.ID
		out.Kind, out.Payment = EventPaymentVerified, &p

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return Event{}, apperr.Wrap(apperr.Validation, "failed to parse subscription", err)
		}
		u := account.SubscriptionUpdated{
			EventID:           ev.ID,
			SubscriptionID:    sub.ID,
			UserID:            userIDFromMetadata(sub.Metadata, ""),
			Status:            NormalizeStripeStatus(stripe.String(string(sub.Status))),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
		if sub.CurrentPeriodEnd != 0 {
			u.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		out.Kind, out.Updated = EventSubscriptionUpdated, &u

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return Event{}, apperr.Wrap(apperr.Validation, "failed to parse subscription", err)
		}
		e := account.SubscriptionEnded{
			EventID:        ev.ID,
			SubscriptionID: sub.ID,
			UserID:         userIDFromMetadata(sub.Metadata, ""),
		}
		if sub.EndedAt != 0 {
			e.EndedAt = time.Unix(sub.EndedAt, 0).UTC()
		}
		out.Kind, out.Ended = EventSubscriptionEnded, &e

	default:
		out.Kind = EventIgnored
	}
	return out, nil
}

func paymentFromSession(s *stripe.CheckoutSession) account.PaymentVerified {
	p := account.PaymentVerified{
		SessionID:     s.ID,
		PaymentStatus: string(s.PaymentStatus),
		UserID:        userIDFromMetadata(s.Metadata, s.ClientReferenceID),
		Email:         s.CustomerEmail,
		AmountEUR:     float64(s.AmountTotal) / 100,
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		p.Email = s.CustomerDetails.Email
	}
	if s.Customer != nil {
		p.CustomerID = s.Customer.ID
		if p.Email == "" {
			p.Email = s.Customer.Email
		}
	}
	if s.Subscription != nil {
		p.SubscriptionID = s.Subscription.ID
		if s.Subscription.CurrentPeriodEnd != 0 {
			end := time.Unix(s.Subscription.CurrentPeriodEnd, 0).UTC()
			p.PeriodEnd = &end
		}
	}
	if s.Metadata != nil {
		p.Plan = s.Metadata["plan"]
		if id, err := strconv.ParseUint(s.Metadata["level_id"], 10, 64); err == nil {
			p.LevelID = uint(id)
		}
	}
	return p
}

func priceFromStripe(p *stripe.Price) Price {
	out := Price{
		ID:        p.ID,
		Name:      p.Nickname,
		AmountEUR: float64(p.UnitAmount) / 100,
		Active:    p.Active,
	}
	if p.Recurring != nil {
		out.Interval = string(p.Recurring.Interval)
	}
	if p.Product != nil {
		out.ProductID = p.Product.ID
		if out.Name == "" {
			out.Name = p.Product.Name
		}
		if p.Product.Metadata != nil {
			out.Module = p.Product.Metadata["module"]
		}
	}
	if m := p.Metadata["module"]; m != "" {
		out.Module = m
	}
	return out
}

// userIDFromMetadata prefers metadata.user_id and falls back to the client
// reference. Zero means unknown.
func userIDFromMetadata(meta map[string]string, clientRef string) uint {
	raw := meta["user_id"]
	if raw == "" {
		raw = clientRef
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func (k EventKind) String() string {
	switch k {
	case EventPaymentVerified:
		return "payment_verified"
	case EventSubscriptionUpdated:
		return "subscription_updated"
	case EventSubscriptionEnded:
		return "subscription_ended"
	default:
		return "ignored"
	}
}
