// Package admin serves the back-office views and maintenance actions.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/domain/users"
	"tajwid-academy/internal/infra/store"

	"github.com/gin-gonic/gin"
)

type Store interface {
	ListUsers(ctx context.Context) ([]users.User, error)
	Get(ctx context.Context, userID uint) (account.State, error)
	UserByID(ctx context.Context, id uint) (users.User, error)
	ListPayments(ctx context.Context, userID uint) ([]billing.Payment, error)
	ListAllPayments(ctx context.Context) ([]billing.Payment, error)
	Stats(ctx context.Context, since time.Time) (store.Stats, error)
}

type Migrator interface {
	MigrateLegacy(ctx context.Context) (int, error)
}

type Handler struct {
	store    Store
	migrator Migrator
	log      *slog.Logger
}

func New(store Store, migrator Migrator, log *slog.Logger) *Handler {
	return &Handler{store: store, migrator: migrator, log: log}
}

type AdminUser struct {
	ID                  uint       `json:"id"`
	Name                string     `json:"name"`
	Lastname            string     `json:"lastname"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	AuthProvider        string     `json:"auth_provider"`
	AccountType         string     `json:"account_type"`
	IsActive            bool       `json:"is_active"`
	TrialEndDate        *time.Time `json:"trial_end_date,omitempty"`
	TrialExpired        bool       `json:"trial_expired"`
	StripeCustomerID    *string    `json:"stripe_customer_id,omitempty"`
	StripeSubID         *string    `json:"stripe_subscription_id,omitempty"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	StudyTimeSeconds    int64      `json:"study_time_seconds"`
}

type AdminPayment struct {
	ID         uint    `json:"id"`
	Email      string  `json:"email"`
	LevelTitle *string `json:"level_title,omitempty"`
	AmountEUR  float64 `json:"amount_eur"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
}

type AdminStats struct {
	TotalUsers     int64            `json:"total_users"`
	ActiveAccounts int64            `json:"active_accounts"`
	TotalRevenue   float64          `json:"total_revenue"`
	RecentRevenue  float64          `json:"recent_revenue"`
	UsersPerType   map[string]int64 `json:"users_per_account_type"`
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:                  u.ID,
		Name:                u.Name,
		Lastname:            u.Lastname,
		Email:               u.Email,
		Role:                u.Role,
		AuthProvider:        u.AuthProvider,
		AccountType:         string(u.AccountType),
		IsActive:            u.IsActive,
		TrialEndDate:        u.TrialEndDate,
		TrialExpired:        u.TrialExpired,
		StripeCustomerID:    u.StripeCustomerID,
		StripeSubID:         u.StripeSubscriptionID,
		SubscriptionEndDate: u.SubscriptionEndDate,
		StudyTimeSeconds:    u.StudyTimeSeconds,
	}
}

func toAdminPayment(p billing.Payment) AdminPayment {
	out := AdminPayment{
		ID:        p.ID,
		Email:     p.User.Email,
		AmountEUR: p.AmountEUR,
		Status:    p.Status,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}
	if p.Level != nil {
		title := p.Level.Title
		out.LevelTitle = &title
	}
	return out
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	rows, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	out := make([]AdminUser, 0, len(rows))
	for _, u := range rows {
		out = append(out, toAdminUser(u))
	}
	c.JSON(http.StatusOK, out)
}

// GET /admin/user/:id
func (h *Handler) GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	ctx := c.Request.Context()

	u, err := h.store.UserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	st, err := h.store.Get(ctx, u.ID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	payments, err := h.store.ListPayments(ctx, u.ID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	list := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		p.User = u
		list = append(list, toAdminPayment(p))
	}

	purchases := make([]gin.H, 0, len(st.Purchases))
	for _, p := range st.Purchases {
		purchases = append(purchases, gin.H{"level_id": p.LevelID, "module": p.Module, "level_active": p.LevelActive, "subscription_id": p.SubscriptionID})
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      toAdminUser(u),
		"purchases": purchases,
		"payments":  list,
	})
}

// GET /admin/payments
func (h *Handler) ListAllPayments(c *gin.Context) {
	rows, err := h.store.ListAllPayments(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	out := make([]AdminPayment, 0, len(rows))
	for _, p := range rows {
		out = append(out, toAdminPayment(p))
	}
	c.JSON(http.StatusOK, out)
}

// GET /admin/stats
func (h *Handler) GetAdminStats(c *gin.Context) {
	st, err := h.store.Stats(c.Request.Context(), time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	perType := make(map[string]int64, len(st.UsersPerType))
	for t, n := range st.UsersPerType {
		perType[string(t)] = n
	}

	c.JSON(http.StatusOK, AdminStats{
		TotalUsers:     st.TotalUsers,
		ActiveAccounts: st.ActiveAccounts,
		TotalRevenue:   st.TotalRevenue,
		RecentRevenue:  st.RecentRevenue,
		UsersPerType:   perType,
	})
}

// POST /admin/migrate-legacy
func (h *Handler) MigrateLegacy(c *gin.Context) {
	n, err := h.migrator.MigrateLegacy(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrated": n})
}
