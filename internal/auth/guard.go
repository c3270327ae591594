package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dukerupert/tasklist/internal/model"
)

// CookieName is the cookie that carries the session token.
const CookieName = "jwt"

var (
	ErrNoToken               = errors.New("no session token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired session token")
	ErrUserNotFound          = errors.New("session user not found")
)

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Guard resolves the caller of a request from its session cookie.
type Guard struct {
	issuer *Issuer
	users  UserFinder
}

func NewGuard(issuer *Issuer, users UserFinder) *Guard {
	return &Guard{issuer: issuer, users: users}
}

// Authenticate returns the identity behind r. Tokens for users that no
// longer exist are rejected with ErrUserNotFound.
func (g *Guard) Authenticate(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, ErrNoToken
	}

	userID, err := g.issuer.Resolve(cookie.Value)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidOrExpiredToken, err)
	}

	u, err := g.users.GetByID(r.Context(), userID)
	if err != nil {
		return Identity{}, fmt.Errorf("load session user: %w", err)
	}
	if u == nil {
		return Identity{}, ErrUserNotFound
	}

	return Identity{UserID: u.ID, Name: u.Name, Email: u.Email}, nil
}
