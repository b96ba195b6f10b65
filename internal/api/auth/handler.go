package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/professors"
	"tajwid-academy/internal/domain/users"
	"tajwid-academy/internal/identity"
	"tajwid-academy/internal/infra/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type Accounts interface {
	UserByEmail(ctx context.Context, email string) (users.User, error)
	UserByID(ctx context.Context, id uint) (users.User, error)
	UserByGoogleSub(ctx context.Context, sub string) (users.User, error)
	SetPassword(ctx context.Context, userID uint, hash string) error
	LinkGoogle(ctx context.Context, userID uint, sub string) error
	ProfessorByEmail(ctx context.Context, email string) (professors.Professor, error)
	ProfessorByID(ctx context.Context, id uint) (professors.Professor, error)
}

type Signup interface {
	Signup(ctx context.Context, p account.Profile) (account.State, error)
}

type Tokens interface {
	Issue(id identity.Identity, ttl time.Duration) (string, error)
	IssueProfessor(id identity.Identity, ttl time.Duration) (string, error)
}

type Handler struct {
	accounts     Accounts
	lifecycle    Signup
	tokens       Tokens
	google       *Google
	secureCookie bool
	log          *slog.Logger
}

// New builds the auth handler. google may be nil when sign-in with Google is
// not configured.
func New(accounts Accounts, lifecycle Signup, tokens Tokens, google *Google, secureCookie bool, log *slog.Logger) *Handler {
	return &Handler{
		accounts:     accounts,
		lifecycle:    lifecycle,
		tokens:       tokens,
		google:       google,
		secureCookie: secureCookie,
		log:          log,
	}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// POST /register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Lastname string `json:"lastname" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Validation(c, err)
		return
	}

	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	hash := string(hashed)

	st, err := h.lifecycle.Signup(c.Request.Context(), account.Profile{
		Email:        input.Email,
		Name:         input.Name,
		Lastname:     input.Lastname,
		PasswordHash: &hash,
		AuthProvider: "local",
	})
	if err != nil {
		if errors.Is(err, account.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(identity.Identity{UserID: st.UserID, Email: st.Email, Role: "user"}, tokenTTL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.setCookie(c, identity.StudentCookie, token)

	c.JSON(http.StatusCreated, gin.H{
		"message":        "User registered successfully",
		"token":          token,
		"trial_end_date": st.TrialEndDate,
	})
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Validation(c, err)
		return
	}

	user, err := h.accounts.UserByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(identity.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, tokenTTL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.setCookie(c, identity.StudentCookie, token)

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// POST /logout clears both session cookies.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(identity.StudentCookie, "", -1, "/", "", h.secureCookie, true)
	c.SetCookie(identity.ProfessorCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// POST /change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.GetUint(middleware.CtxUserID)

	var body struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Validation(c, err)
		return
	}

	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters with letters and numbers"})
		return
	}

	user, err := h.accounts.UserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "This account does not have a password. Sign in with Google or set a password first.",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(body.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}

	hashedNew, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	if err := h.accounts.SetPassword(c.Request.Context(), user.ID, string(hashedNew)); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// POST /professor/login
func (h *Handler) ProfessorLogin(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Validation(c, err)
		return
	}

	p, err := h.accounts.ProfessorByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if errors.Is(err, store.ErrProfessorNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.IssueProfessor(identity.Identity{UserID: p.ID, Email: p.Email, Role: "professor"}, tokenTTL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.setCookie(c, identity.ProfessorCookie, token)

	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// GET /professor/me
func (h *Handler) ProfessorMe(c *gin.Context) {
	p, err := h.accounts.ProfessorByID(c.Request.Context(), c.GetUint(middleware.CtxUserID))
	if err != nil {
		if errors.Is(err, store.ErrProfessorNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Professor not found"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       p.ID,
		"email":    p.Email,
		"name":     p.Name,
		"lastname": p.Lastname,
	})
}

func (h *Handler) setCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(tokenTTL.Seconds()), "/", "", h.secureCookie, true)
}
