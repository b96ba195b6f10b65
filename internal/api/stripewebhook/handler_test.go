package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/infra/store"
	"tajwid-academy/internal/infra/store/storetest"
	"tajwid-academy/internal/infra/stripe"
	"tajwid-academy/internal/lib/sl"
	"tajwid-academy/internal/lifecycle"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"
)

const secret = "whsec_test"

func router(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.StripeWebhook)
	return r
}

func deliver(r *gin.Engine, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sign(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: secret}).Header
}

func checkoutEvent(eventID string, userID uint) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"client_reference_id": "%d",
			"customer": "cus_1",
			"subscription": "sub_1",
			"amount_total": 1990
		}}
	}`, eventID, userID)
}

func seedTrial(t *testing.T, s *store.Store) account.State {
	t.Helper()
	end := time.Now().UTC().Add(-time.Hour)
	st, err := s.Create(context.Background(), account.NewAccount{
		Email: "learner@example.com", AuthProvider: "local", Role: "user",
		AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: &end,
	})
	require.NoError(t, err)
	return st
}

func TestWebhook_BadSignatureIs400(t *testing.T) {
	s := storetest.New(t)
	st := seedTrial(t, s)
	h := New(stripe.NewGateway("sk_test", secret, ""), s, lifecycle.New(s, nil, sl.Discard(), 14), sl.Discard())
	r := router(h)

	payload := checkoutEvent("evt_1", st.UserID)
	w := deliver(r, payload, "t=1,v1=forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = deliver(r, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	got, err := s.Get(context.Background(), st.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.TypeFreeTrial, got.AccountType)
}

func TestWebhook_CheckoutCompletedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	st := seedTrial(t, s)
	h := New(stripe.NewGateway("sk_test", secret, ""), s, lifecycle.New(s, nil, sl.Discard(), 14), sl.Discard())
	r := router(h)

	payload := checkoutEvent("evt_1", st.UserID)
	w := deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	first, err := s.Get(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.TypePaid, first.AccountType)
	assert.True(t, first.IsActive)
	require.NotNil(t, first.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *first.StripeSubscriptionID)

	// Same event redelivered.
	w = deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")

	// Same checkout under a new event id.
	payload = checkoutEvent("evt_2", st.UserID)
	w = deliver(r, payload, sign(payload))
	require.Equal(t, http.StatusOK, w.Code)

	again, err := s.Get(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	payments, err := s.ListPayments(ctx, st.UserID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestWebhook_SubscriptionDeletedRevokesAccess(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	st := seedTrial(t, s)
	h := New(stripe.NewGateway("sk_test", secret, ""), s, lifecycle.New(s, nil, sl.Discard(), 14), sl.Discard())
	r := router(h)

	payload := checkoutEvent("evt_1", st.UserID)
	require.Equal(t, http.StatusOK, deliver(r, payload, sign(payload)).Code)

	payload = `{"id":"evt_9","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","object":"subscription","status":"canceled"}}}`
	require.Equal(t, http.StatusOK, deliver(r, payload, sign(payload)).Code)

	got, err := s.Get(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.TypeInactive, got.AccountType)
	assert.False(t, got.IsActive)

	// Unknown subscription is acknowledged.
	payload = `{"id":"evt_10","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_zzz","object":"subscription"}}}`
	assert.Equal(t, http.StatusOK, deliver(r, payload, sign(payload)).Code)
}

func TestWebhook_IgnoredType(t *testing.T) {
	s := storetest.New(t)
	h := New(stripe.NewGateway("sk_test", secret, ""), s, lifecycle.New(s, nil, sl.Discard(), 14), sl.Discard())

	payload := `{"id":"evt_3","object":"event","type":"invoice.paid","data":{"object":{}}}`
	w := deliver(router(h), payload, sign(payload))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

type lifecycleMock struct {
	mock.Mock
}

func (m *lifecycleMock) PaymentVerified(ctx context.Context, ev account.PaymentVerified) (account.State, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(account.State), args.Error(1)
}

func (m *lifecycleMock) SubscriptionUpdated(ctx context.Context, ev account.SubscriptionUpdated) (account.State, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(account.State), args.Error(1)
}

func (m *lifecycleMock) SubscriptionEnded(ctx context.Context, ev account.SubscriptionEnded) (account.State, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(account.State), args.Error(1)
}

func TestWebhook_InternalFailureIs500AndRetryable(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	lm := new(lifecycleMock)
	h := New(stripe.NewGateway("sk_test", secret, ""), s, lm, sl.Discard())
	r := router(h)

	lm.On("PaymentVerified", mock.Anything, mock.Anything).Return(account.State{}, errors.New("db down")).Once()
	lm.On("PaymentVerified", mock.Anything, mock.Anything).Return(account.State{UserID: 1}, nil).Once()

	payload := checkoutEvent("evt_1", 1)
	assert.Equal(t, http.StatusInternalServerError, deliver(r, payload, sign(payload)).Code)

	done, err := s.EventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, done, "failed events are not recorded")

	assert.Equal(t, http.StatusOK, deliver(r, payload, sign(payload)).Code)
	lm.AssertExpectations(t)
}
