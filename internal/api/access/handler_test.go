package access

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/infra/store"
	"tajwid-academy/internal/infra/store/storetest"
	"tajwid-academy/internal/lib/sl"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := storetest.New(t)
	h := New(s, sl.Discard())

	asUser := func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.GetHeader("X-User"), 10, 64)
		c.Set(middleware.CtxUserID, uint(id))
	}

	r := gin.New()
	r.GET("/access/:module", asUser, h.Check)
	r.GET("/modules/:module/content", asUser,
		middleware.RequireProtectedAccess(s, sl.Discard()),
		middleware.RequireModuleAccess(),
		h.Content,
	)
	return r, s
}

func get(r *gin.Engine, path string, userID uint) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-User", strconv.FormatUint(uint64(userID), 10))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createAccount(t *testing.T, s *store.Store, email string, typ account.AccountType, trialEnd *time.Time) account.State {
	t.Helper()
	st, err := s.Create(context.Background(), account.NewAccount{
		Email: email, AuthProvider: "local", Role: "user",
		AccountType: typ, IsActive: true, TrialEndDate: trialEnd,
	})
	require.NoError(t, err)
	return st
}

func TestCheck_ModuleNotAvailable(t *testing.T) {
	r, s := setup(t)
	st := createAccount(t, s, "a@x.io", account.TypePaidLegacy, nil)

	w := get(r, "/access/lecture", st.UserID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"module not available","module":"LECTURE"}`, w.Body.String())

	w = get(r, "/access/poetry", st.UserID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheck_PurchaseGrantsOnlyItsModule(t *testing.T) {
	ctx := context.Background()
	r, s := setup(t)

	_, err := s.UpsertLevel(ctx, levels.Level{Title: "Tajwid 1", Module: account.ModuleTajwid, StripePriceID: "price_t", IsActive: true})
	require.NoError(t, err)
	_, err = s.UpsertLevel(ctx, levels.Level{Title: "Lecture 1", Module: account.ModuleLecture, StripePriceID: "price_l", IsActive: true})
	require.NoError(t, err)
	tajwid, err := s.ActiveLevelForModule(ctx, account.ModuleTajwid)
	require.NoError(t, err)

	st := createAccount(t, s, "paid@x.io", account.TypePaid, nil)
	require.NoError(t, s.RecordPurchase(ctx, st.UserID, tajwid.ID, "cs_1", "sub_1"))

	w := get(r, "/access/tajwid", st.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	var resp CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CheckResponse{HasAccess: true, LevelID: tajwid.ID, LevelTitle: "Tajwid 1", Module: "TAJWID"}, resp)

	w = get(r, "/access/lecture", st.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.HasAccess)

	assert.Equal(t, http.StatusOK, get(r, "/modules/tajwid/content", st.UserID).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/modules/lecture/content", st.UserID).Code)
}

func TestCheck_ExpiredTrialDenied(t *testing.T) {
	ctx := context.Background()
	r, s := setup(t)

	_, err := s.UpsertLevel(ctx, levels.Level{Title: "Tajwid 1", Module: account.ModuleTajwid, StripePriceID: "price_t", IsActive: true})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	st := createAccount(t, s, "trial@x.io", account.TypeFreeTrial, &past)

	// Not yet swept: the flag, not the date, decides.
	w := get(r, "/access/tajwid", st.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasAccess":true`)

	expired := true
	_, err = s.Update(ctx, st.UserID, account.Patch{TrialExpired: &expired})
	require.NoError(t, err)

	w = get(r, "/access/tajwid", st.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasAccess":false`)
	assert.Equal(t, http.StatusForbidden, get(r, "/modules/tajwid/content", st.UserID).Code)
}
