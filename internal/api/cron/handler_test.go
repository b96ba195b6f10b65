package cron

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/infra/store/storetest"
	"tajwid-academy/internal/lib/sl"
	"tajwid-academy/internal/lifecycle"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireTrials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	s := storetest.New(t)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	for _, tc := range []struct {
		email string
		end   time.Time
	}{{"a@x.io", past}, {"b@x.io", past}, {"c@x.io", future}} {
		end := tc.end
		_, err := s.Create(ctx, account.NewAccount{
			Email: tc.email, AuthProvider: "local", Role: "user",
			AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: &end,
		})
		require.NoError(t, err)
	}

	h := New(lifecycle.New(s, nil, sl.Discard(), 14), sl.Discard())
	r := gin.New()
	guard := middleware.RequireCronSecret("cron-secret")
	r.GET("/cron/expire-trials", guard, h.ExpireTrials)
	r.POST("/cron/expire-trials", guard, h.ExpireTrials)

	req := httptest.NewRequest(http.MethodPost, "/cron/expire-trials", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/cron/expire-trials", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired":2}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/cron/expire-trials", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired":0}`, w.Body.String())

	st, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.True(t, st.TrialExpired)
	assert.True(t, st.IsActive)
}
