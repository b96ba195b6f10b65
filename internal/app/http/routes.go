package routes

import (
	"log/slog"
	"net/http"

	accessapi "tajwid-academy/internal/api/access"
	adminapi "tajwid-academy/internal/api/admin"
	authapi "tajwid-academy/internal/api/auth"
	"tajwid-academy/internal/api/billing"
	cronapi "tajwid-academy/internal/api/cron"
	"tajwid-academy/internal/api/levels"
	"tajwid-academy/internal/api/progress"
	stripewebhooks "tajwid-academy/internal/api/stripewebhook"
	"tajwid-academy/internal/api/users"
	"tajwid-academy/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth     *authapi.Handler
	Users    *users.Handler
	Billing  *billing.Handler
	Webhook  *stripewebhooks.Handler
	Cron     *cronapi.Handler
	Levels   *levels.Handler
	Access   *accessapi.Handler
	Progress *progress.Handler
	Admin    *adminapi.Handler
}

type Guards struct {
	Identity   middleware.IdentityResolver
	Accounts   middleware.AccountReader
	Limiter    *middleware.RateLimiter
	CronSecret string
	Log        *slog.Logger
}

func RegisterRoutes(r *gin.Engine, h Handlers, g Guards) {
	// Raw body: the signature covers the exact bytes, keep it out of the sanitizer.
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := middleware.RequireCronSecret(g.CronSecret)
	r.GET("/cron/expire-trials", cron, h.Cron.ExpireTrials)
	r.POST("/cron/expire-trials", cron, h.Cron.ExpireTrials)

	public := r.Group("/")
	public.Use(middleware.SanitizeInput())

	limited := g.Limiter.Middleware()
	public.POST("/register", limited, h.Auth.Register)
	public.POST("/login", limited, h.Auth.Login)
	public.POST("/logout", h.Auth.Logout)
	public.POST("/professor/login", limited, h.Auth.ProfessorLogin)
	public.GET("/levels", h.Levels.List)

	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(g.Identity), middleware.SanitizeInput())
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/access/:module", h.Access.Check)
	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.POST("/create-checkout-session", h.Billing.CreateCheckoutSession)
	auth.GET("/checkout/verify", h.Billing.VerifyCheckout)
	auth.POST("/subscription/cancel", h.Billing.CancelSubscription)
	auth.POST("/billing-portal", h.Billing.CreateBillingPortal)
	auth.POST("/change-password", h.Auth.ChangePassword)

	auth.POST("/progress/study-time", h.Progress.AddStudyTime)
	auth.GET("/progress/stream", h.Progress.Stream)

	// Protected content
	content := auth.Group("/modules")
	content.Use(middleware.RequireProtectedAccess(g.Accounts, g.Log))
	content.GET("/:module/content", middleware.RequireModuleAccess(), h.Access.Content)

	// Professors
	prof := r.Group("/professor")
	prof.Use(middleware.ProfessorAuthMiddleware(g.Identity))
	prof.GET("/me", h.Auth.ProfessorMe)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(g.Identity), middleware.RequireRole("admin"))
	admin.GET("/users", h.Admin.ListAllUsers)
	admin.GET("/user/:id", h.Admin.GetUserDetails)
	admin.GET("/payments", h.Admin.ListAllPayments)
	admin.GET("/stats", h.Admin.GetAdminStats)
	admin.POST("/sync-levels", h.Levels.Sync)
	admin.POST("/migrate-legacy", h.Admin.MigrateLegacy)
}
