package middleware

import (
	"net/http"

	"tajwid-academy/internal/identity"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
	CtxState  = "account_state"
)

// IdentityResolver resolves the caller from request credentials.
type IdentityResolver interface {
	Student(r *http.Request) (identity.Identity, bool)
	Professor(r *http.Request) (identity.Identity, bool)
}

func AuthMiddleware(ids IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ids.Student(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

func ProfessorAuthMiddleware(ids IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ids.Professor(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(CtxRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			return
		}

		if value != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}

func setIdentity(c *gin.Context, id identity.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxRole, id.Role)
}
