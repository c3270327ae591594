package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/tasklist/internal/apperr"
	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/dukerupert/tasklist/internal/store"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Session is the result of a successful register or login.
type Session struct {
	User      model.UserSummary
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserRepository, tokens TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)

	if name == "" {
		return nil, apperr.Invalid("Name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Invalid("Password must be at least 6 characters")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Invalid("Password must be at most 72 bytes")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "look up user", err)
	}
	if existing != nil {
		return nil, apperr.Duplicate("User already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "register", err)
	}

	u, err := s.users.Create(ctx, name, email, hash)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return nil, apperr.Duplicate("User already exists")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create user", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.startSession(u)
}

// Login checks the credentials. Unknown emails and wrong passwords fail
// with the same error and take about the same time.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := model.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperr.Invalid("Password is required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "look up user", err)
	}
	if u == nil {
		auth.VerifyPassword(s.dummy(), in.Password)
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if !auth.VerifyPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return s.startSession(u)
}

func (s *AuthService) startSession(u *model.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "issue session", err)
	}
	return &Session{User: u.Summary(), Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("tasklist-timing-equalizer")
		if err != nil {
			s.logger.Error("hash dummy password", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Invalid("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Invalid("Please include a valid email")
	}
	return nil
}
