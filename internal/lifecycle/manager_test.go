package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/lib/sl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	nextID    uint
	rows      map[uint]account.State
	payments  []billing.Payment
	failOn    map[uint]error
}

func newMemStore() *memStore {
	return &memStore{
		rows:      map[uint]account.State{},
		failOn:    map[uint]error{},
	}
}

func (s *memStore) Get(_ context.Context, id uint) (account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[id]
	if !ok {
		return account.State{}, account.ErrNotFound
	}
	return st, nil
}

func (s *memStore) Update(_ context.Context, id uint, p account.Patch) (account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[id]; err != nil {
		return account.State{}, err
	}
	st, ok := s.rows[id]
	if !ok {
		return account.State{}, account.ErrNotFound
	}
	st = p.Apply(st)
	s.rows[id] = st
	return st, nil
}

func (s *memStore) Create(_ context.Context, a account.NewAccount) (account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(a.Email))
	for _, st := range s.rows {
		if st.Email == email {
			return account.State{}, account.ErrAlreadyExists
		}
	}
	s.nextID++
	st := account.State{
		UserID:               s.nextID,
		Email:                email,
		AccountType:          a.AccountType,
		IsActive:             a.IsActive,
		TrialEndDate:         a.TrialEndDate,
		SubscriptionPlan:     a.SubscriptionPlan,
		StripeCustomerID:     a.StripeCustomerID,
		StripeSubscriptionID: a.StripeSubscriptionID,
		SubscriptionEndDate:  a.SubscriptionEndDate,
	}
	s.rows[st.UserID] = st
	return st, nil
}

func (s *memStore) find(match func(account.State) bool) (account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.rows {
		if match(st) {
			return st, nil
		}
	}
	return account.State{}, account.ErrNotFound
}

func (s *memStore) FindByEmail(_ context.Context, email string) (account.State, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.find(func(st account.State) bool { return st.Email == email })
}

func (s *memStore) FindByStripeCustomer(_ context.Context, id string) (account.State, error) {
	return s.find(func(st account.State) bool { return st.StripeCustomerID != nil && *st.StripeCustomerID == id })
}

func (s *memStore) FindBySubscription(_ context.Context, id string) (account.State, error) {
	return s.find(func(st account.State) bool {
		if st.StripeSubscriptionID != nil && *st.StripeSubscriptionID == id {
			return true
		}
		for _, p := range st.Purchases {
			if p.SubscriptionID == id {
				return true
			}
		}
		return false
	})
}

func (s *memStore) ListTrialsEndedBefore(_ context.Context, t time.Time) ([]account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []account.State
	for id := uint(1); id <= s.nextID; id++ {
		st, ok := s.rows[id]
		if ok && st.AccountType == account.TypeFreeTrial && !st.TrialExpired && st.TrialEndDate != nil && st.TrialEndDate.Before(t) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) ListByAccountType(_ context.Context, t account.AccountType) ([]account.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []account.State
	for id := uint(1); id <= s.nextID; id++ {
		if st, ok := s.rows[id]; ok && st.AccountType == t {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) RecordPurchase(_ context.Context, userID, levelID uint, _, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.rows[userID]
	for _, p := range st.Purchases {
		if p.LevelID == levelID {
			return nil
		}
	}
	st.Purchases = append(st.Purchases, account.Purchase{LevelID: levelID, Module: account.ModuleTajwid, LevelActive: true, SubscriptionID: subscriptionID})
	s.rows[userID] = st
	return nil
}

func (s *memStore) EndPurchases(_ context.Context, userID uint, subscriptionID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.rows[userID]
	live := st.Purchases[:0:0]
	for _, p := range st.Purchases {
		if p.SubscriptionID != subscriptionID {
			live = append(live, p)
		}
	}
	st.Purchases = live
	s.rows[userID] = st
	return nil
}

func (s *memStore) RecordPayment(_ context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.StripeSessionID == p.StripeSessionID {
			return nil
		}
	}
	s.payments = append(s.payments, p)
	return nil
}

// seed inserts a row directly, bypassing Create.
func (s *memStore) seed(st account.State) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	st.UserID = s.nextID
	s.rows[st.UserID] = st
	return st.UserID
}

type cancellerMock struct {
	mock.Mock
}

func (m *cancellerMock) CancelSubscription(ctx context.Context, id string) (account.Cancellation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(account.Cancellation), args.Error(1)
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newManager(store Store, c Canceller) *Manager {
	return New(store, c, sl.Discard(), 14, WithClock(func() time.Time { return now }))
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestSignup_CreatesTrial(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	st, err := m.Signup(context.Background(), account.Profile{Email: "Student@Example.com ", AuthProvider: "local"})
	require.NoError(t, err)

	assert.Equal(t, account.TypeFreeTrial, st.AccountType)
	assert.True(t, st.IsActive)
	assert.False(t, st.TrialExpired)
	require.NotNil(t, st.TrialEndDate)
	assert.True(t, st.TrialEndDate.Equal(now.AddDate(0, 0, 14)))
	assert.Equal(t, "student@example.com", st.Email)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	_, err := m.Signup(context.Background(), account.Profile{Email: "a@b.c"})
	require.NoError(t, err)

	_, err = m.Signup(context.Background(), account.Profile{Email: "A@B.C"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrAlreadyExists))
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestSweepExpiredTrials_FlagsOnlyEndedTrials(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	ended := store.seed(account.State{Email: "a@x", AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: timePtr(now.Add(-time.Hour))})
	running := store.seed(account.State{Email: "b@x", AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: timePtr(now.Add(time.Hour))})
	paid := store.seed(account.State{Email: "c@x", AccountType: account.TypePaid, IsActive: true, TrialEndDate: timePtr(now.Add(-48 * time.Hour))})

	n, err := m.SweepExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, _ := store.Get(context.Background(), ended)
	assert.True(t, st.TrialExpired)
	assert.True(t, st.IsActive, "expiry must not touch isActive")
	assert.Equal(t, account.TypeFreeTrial, st.AccountType)

	st, _ = store.Get(context.Background(), running)
	assert.False(t, st.TrialExpired)

	st, _ = store.Get(context.Background(), paid)
	assert.False(t, st.TrialExpired)

	n, err = m.SweepExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep is a no-op")
}

func TestSweepExpiredTrials_ContinuesAfterFailure(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	first := store.seed(account.State{Email: "a@x", AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: timePtr(now.Add(-time.Hour))})
	second := store.seed(account.State{Email: "b@x", AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: timePtr(now.Add(-time.Hour))})
	store.failOn[first] = errors.New("connection reset")

	n, err := m.SweepExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, _ := store.Get(context.Background(), second)
	assert.True(t, st.TrialExpired)

	st, _ = store.Get(context.Background(), first)
	assert.False(t, st.TrialExpired)
}

func TestPaymentVerified_UpgradesTrial(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	id := store.seed(account.State{Email: "s@x", AccountType: account.TypeFreeTrial, IsActive: true, TrialExpired: true, TrialEndDate: timePtr(now.Add(-time.Hour))})

	periodEnd := now.AddDate(0, 1, 0)
	ev := account.PaymentVerified{
		SessionID:      "cs_1",
		PaymentStatus:  account.PaymentStatusPaid,
		UserID:         id,
		Email:          "s@x",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Plan:           "monthly",
		LevelID:        3,
		AmountEUR:      19.9,
		PeriodEnd:      &periodEnd,
	}

	st, err := m.PaymentVerified(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, account.TypePaid, st.AccountType)
	assert.True(t, st.IsActive)
	assert.Equal(t, "sub_1", *st.StripeSubscriptionID)
	assert.Equal(t, "cus_1", *st.StripeCustomerID)
	require.Len(t, st.Purchases, 1)
	assert.Len(t, store.payments, 1)

	again, err := m.PaymentVerified(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, st, again, "replayed payment must not change the account")
	assert.Len(t, store.payments, 1)
}

func TestPaymentVerified_KeepsLegacyType(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	id := store.seed(account.State{Email: "l@x", AccountType: account.TypePaidLegacy, IsActive: true})

	st, err := m.PaymentVerified(context.Background(), account.PaymentVerified{
		SessionID:     "cs_2",
		PaymentStatus: account.PaymentStatusPaid,
		UserID:        id,
		LevelID:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, account.TypePaidLegacy, st.AccountType)
}

func TestPaymentVerified_CreatesAccountForUnknownEmail(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	st, err := m.PaymentVerified(context.Background(), account.PaymentVerified{
		SessionID:      "cs_3",
		PaymentStatus:  account.PaymentStatusPaid,
		Email:          "new@x",
		CustomerID:     "cus_9",
		SubscriptionID: "sub_9",
	})
	require.NoError(t, err)
	assert.Equal(t, account.TypePaid, st.AccountType)
	assert.True(t, st.IsActive)
	assert.Equal(t, "new@x", st.Email)
}

func TestPaymentVerified_RejectsUnpaid(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	_, err := m.PaymentVerified(context.Background(), account.PaymentVerified{SessionID: "cs_4", PaymentStatus: "unpaid", Email: "x@x"})
	require.ErrorIs(t, err, account.ErrPaymentNotPaid)
	assert.Empty(t, store.rows)
}

func TestRequestCancellation_KeepsAccessUntilPeriodEnd(t *testing.T) {
	store := newMemStore()
	c := new(cancellerMock)
	m := newManager(store, c)

	id := store.seed(account.State{Email: "p@x", AccountType: account.TypePaid, IsActive: true, StripeSubscriptionID: strPtr("sub_1")})
	end := now.AddDate(0, 0, 20)
	c.On("CancelSubscription", mock.Anything, "sub_1").Return(account.Cancellation{SubscriptionID: "sub_1", EffectiveAt: end}, nil).Once()

	st, err := m.RequestCancellation(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, st.IsActive)
	assert.True(t, st.CancelAtPeriodEnd)
	assert.Equal(t, account.TypePaid, st.AccountType)
	require.NotNil(t, st.SubscriptionEndDate)
	assert.True(t, st.SubscriptionEndDate.Equal(end))

	// Already scheduled: the provider is not called again.
	_, err = m.RequestCancellation(context.Background(), id)
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestRequestCancellation_NoSubscription(t *testing.T) {
	store := newMemStore()
	c := new(cancellerMock)
	m := newManager(store, c)

	id := store.seed(account.State{Email: "t@x", AccountType: account.TypeFreeTrial, IsActive: true})

	_, err := m.RequestCancellation(context.Background(), id)
	require.ErrorIs(t, err, account.ErrNoSubscription)
	c.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
}

func TestRequestCancellation_ProviderFailureLeavesAccount(t *testing.T) {
	store := newMemStore()
	c := new(cancellerMock)
	m := newManager(store, c)

	id := store.seed(account.State{Email: "p@x", AccountType: account.TypePaid, IsActive: true, StripeSubscriptionID: strPtr("sub_1")})
	c.On("CancelSubscription", mock.Anything, "sub_1").Return(account.Cancellation{}, apperr.Upstreamf(errors.New("timeout"), "stripe"))

	_, err := m.RequestCancellation(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))

	st, _ := store.Get(context.Background(), id)
	assert.False(t, st.CancelAtPeriodEnd)
}

func TestSubscriptionEnded_RevokesAccess(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	id := store.seed(account.State{Email: "p@x", AccountType: account.TypePaid, IsActive: true, StripeSubscriptionID: strPtr("sub_1"), CancelAtPeriodEnd: true})

	ev := account.SubscriptionEnded{SubscriptionID: "sub_1", EndedAt: now}
	st, err := m.SubscriptionEnded(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, id, st.UserID)
	assert.Equal(t, account.TypeInactive, st.AccountType)
	assert.False(t, st.IsActive)

	again, err := m.SubscriptionEnded(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, st, again)
}

func TestSubscriptionEnded_UnknownSubscription(t *testing.T) {
	m := newManager(newMemStore(), nil)

	_, err := m.SubscriptionEnded(context.Background(), account.SubscriptionEnded{SubscriptionID: "sub_missing"})
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestSubscriptionUpdated_MirrorsCancelFlag(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	store.seed(account.State{Email: "p@x", AccountType: account.TypePaid, IsActive: true, StripeSubscriptionID: strPtr("sub_1")})
	end := now.AddDate(0, 1, 0)

	st, err := m.SubscriptionUpdated(context.Background(), account.SubscriptionUpdated{SubscriptionID: "sub_1", CancelAtPeriodEnd: true, PeriodEnd: end})
	require.NoError(t, err)
	assert.True(t, st.CancelAtPeriodEnd)
	assert.True(t, st.IsActive)
	assert.True(t, st.SubscriptionEndDate.Equal(end))
}

func TestMigrateLegacy(t *testing.T) {
	store := newMemStore()
	m := newManager(store, nil)

	full := store.seed(account.State{Email: "f@x", AccountType: account.TypePaidFull, IsActive: false})
	store.seed(account.State{Email: "p@x", AccountType: account.TypePaid, IsActive: true})

	n, err := m.MigrateLegacy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, _ := store.Get(context.Background(), full)
	assert.Equal(t, account.TypePaidLegacy, st.AccountType)
	assert.True(t, st.IsActive)
}
