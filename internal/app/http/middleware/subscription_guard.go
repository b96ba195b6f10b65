package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/domain/access"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

type AccountReader interface {
	Get(ctx context.Context, userID uint) (account.State, error)
}

// RequireProtectedAccess lets through accounts that may see protected
// content at all and stores their state on the context.
func RequireProtectedAccess(accounts AccountReader, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := accounts.Get(c.Request.Context(), c.GetUint(CtxUserID))
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			respond.Error(c, log, err)
			return
		}

		if !access.CanAccessProtectedContent(st) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Set(CtxState, st)
		c.Next()
	}
}

// RequireModuleAccess checks the module named by the :module path param
// against the state loaded by RequireProtectedAccess.
func RequireModuleAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := account.ParseModule(c.Param("module"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown module"})
			return
		}

		v, exists := c.Get(CtxState)
		st, isState := v.(account.State)
		if !exists || !isState {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		d := access.Evaluate(st, m)
		metrics.ObserveAccess(string(m), d.Allowed)
		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}
