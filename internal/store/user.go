package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewUserStore(db *sql.DB, d database.Dialect) *UserStore {
	return &UserStore{db: db, dialect: d, now: time.Now}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, created_at, updated_at`

// Create inserts a user. The email is normalized first; a second user with
// the same normalized email fails with ErrDuplicateEmail.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	id := uuid.NewString()
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, name, model.NormalizeEmail(email), passwordHash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+userCols+` FROM users WHERE email = ?`), model.NormalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}
