// Package identity turns request credentials into the caller's identity.
package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	StudentCookie   = "token"
	ProfessorCookie = "professor_token"
)

type Identity struct {
	UserID uint
	Email  string
	Role   string
}

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Resolver validates HS256 tokens. Students and professors are signed with
// separate secrets so one token type is never accepted as the other.
type Resolver struct {
	studentSecret   []byte
	professorSecret []byte
	now             func() time.Time
}

func NewResolver(studentSecret, professorSecret string) *Resolver {
	return &Resolver{
		studentSecret:   []byte(studentSecret),
		professorSecret: []byte(professorSecret),
		now:             time.Now,
	}
}

// Student reads the "token" cookie, then an Authorization bearer token.
// Any missing, malformed or expired credential resolves to no identity.
func (r *Resolver) Student(req *http.Request) (Identity, bool) {
	raw := cookieValue(req, StudentCookie)
	if raw == "" {
		raw = bearer(req)
	}
	if raw == "" {
		return Identity{}, false
	}
	return r.parse(raw, r.studentSecret)
}

func (r *Resolver) Professor(req *http.Request) (Identity, bool) {
	raw := cookieValue(req, ProfessorCookie)
	if raw == "" {
		return Identity{}, false
	}
	return r.parse(raw, r.professorSecret)
}

func (r *Resolver) Issue(id Identity, ttl time.Duration) (string, error) {
	return r.issue(id, ttl, r.studentSecret)
}

func (r *Resolver) IssueProfessor(id Identity, ttl time.Duration) (string, error) {
	return r.issue(id, ttl, r.professorSecret)
}

func (r *Resolver) issue(id Identity, ttl time.Duration, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("identity: signing secret not configured")
	}
	now := r.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (r *Resolver) parse(raw string, secret []byte) (Identity, bool) {
	if len(secret) == 0 {
		return Identity{}, false
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return Identity{}, false
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, true
}

func cookieValue(req *http.Request, name string) string {
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func bearer(req *http.Request) string {
	h := req.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(tok)
}
