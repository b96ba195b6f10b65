package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"tajwid-academy/internal/api/respond"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/users"
	"tajwid-academy/internal/identity"
	"tajwid-academy/internal/lib/sl"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer = "https://accounts.google.com"
	stateCookie  = "oauth_state"
)

// Google holds the OAuth client and a lazily discovered ID token verifier.
type Google struct {
	oauth            *oauth2.Config
	frontendRedirect string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewGoogle(clientID, clientSecret, redirectURL, frontendRedirect string) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		frontendRedirect: frontendRedirect,
	}
}

func (g *Google) idVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
	return g.verifier, nil
}

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state, err := randomState()
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 300, "/", "", h.secureCookie, true)

	c.Redirect(http.StatusFound, h.google.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	const op = "auth.GoogleCallback"
	log := h.log.With(slog.String("op", op))

	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}

	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.google.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", sl.Err(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	verifier, err := h.google.idVerifier(ctx)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
		return
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil || claims.Sub == "" || claims.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token missing required claims"})
		return
	}

	user, err := h.findOrCreateGoogleUser(ctx, claims)
	if err != nil {
		log.Error("failed to resolve google user", sl.Err(err))
		respond.Error(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(identity.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, tokenTTL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.setCookie(c, identity.StudentCookie, token)

	if h.google.frontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": token})
		return
	}
	c.Redirect(http.StatusFound, h.google.frontendRedirect)
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, gc googleIDClaims) (users.User, error) {
	user, err := h.accounts.UserByGoogleSub(ctx, gc.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return users.User{}, err
	}

	user, err = h.accounts.UserByEmail(ctx, gc.Email)
	switch {
	case err == nil:
		if user.GoogleSub == nil {
			if err := h.accounts.LinkGoogle(ctx, user.ID, gc.Sub); err != nil {
				return users.User{}, err
			}
		}
		return user, nil
	case !errors.Is(err, account.ErrNotFound):
		return users.User{}, err
	}

	sub := gc.Sub
	st, err := h.lifecycle.Signup(ctx, account.Profile{
		Email:        gc.Email,
		Name:         firstNonEmpty(gc.GivenName, gc.Name),
		Lastname:     gc.FamilyName,
		AuthProvider: "google",
		GoogleSub:    &sub,
	})
	if err != nil {
		return users.User{}, err
	}
	return h.accounts.UserByID(ctx, st.UserID)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
