package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/access"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Store interface {
	UserByID(ctx context.Context, id uint) (users.User, error)
	Get(ctx context.Context, userID uint) (account.State, error)
}

type Handler struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, log *slog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetUint(middleware.CtxUserID)

	user, err := h.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	st, err := h.store.Get(ctx, userID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	now := h.now()
	resp := MeResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Lastname:     user.Lastname,
			Role:         user.Role,
			AuthProvider: user.AuthProvider,
		},
		Billing: BillingDTO{
			AccountType:  string(st.AccountType),
			Subscription: BuildSubscriptionDTO(st),
			Trial:        BuildTrialDTO(now, user.TrialStartAt, st),
		},
		Access: AccessDTO{
			State:   string(access.ComputeEffectiveAccessState(st)),
			Modules: BuildModulesDTO(st),
		},
		Progress: ProgressDTO{StudyTimeSeconds: st.StudyTimeSeconds},
	}

	c.JSON(http.StatusOK, resp)
}
