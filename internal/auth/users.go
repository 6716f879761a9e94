package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/college-erp/internal/db"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           string `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
}

// UserStore reads and writes the users table.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore { return &UserStore{db: db} }

// Create hashes password with bcrypt and inserts the user.
func (s *UserStore) Create(ctx context.Context, username, password, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.CreateWithHash(ctx, username, string(hash), role)
}

// CreateWithHash inserts a user whose bcrypt hash is already known.
func (s *UserStore) CreateWithHash(ctx context.Context, username, hash, role string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         role,
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.PasswordHash, u.Role, time.Now().Unix())
	if db.IsUniqueViolation(err) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// ByID finds a user by id; token subjects are ids.
func (s *UserStore) ByID(ctx context.Context, id string) (User, error) {
	return s.getOne(ctx, `SELECT id, username, password_hash, role FROM users WHERE id = ?`, id)
}

// ByUsername finds a user by login name.
func (s *UserStore) ByUsername(ctx context.Context, username string) (User, error) {
	return s.getOne(ctx, `SELECT id, username, password_hash, role FROM users WHERE username = ?`, username)
}

func (s *UserStore) getOne(ctx context.Context, q string, arg string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(q), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// Authenticate checks password against the stored bcrypt hash.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
