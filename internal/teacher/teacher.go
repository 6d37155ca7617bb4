// Package teacher handles teacher accounts: signup, login, credential checks.
package teacher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on login with an unknown email or a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Teacher is an account that can take attendance.
type Teacher struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists teacher accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new teacher row.
func (r *Repository) Insert(ctx context.Context, email, passwordHash string) (Teacher, error) {
	t := Teacher{ID: uuid.NewString(), Email: email}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, t.ID, t.Email, passwordHash)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return Teacher{}, fmt.Errorf("insert teacher: %w", err)
	}
	return t, nil
}

// GetByEmail returns a teacher and their password hash, or nil when unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Teacher, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM teachers WHERE email = $1
	`, email)
	var t Teacher
	var hash string
	if err := row.Scan(&t.ID, &t.Email, &hash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &t, hash, nil
}

// Store is what the account service needs from persistence.
type Store interface {
	Insert(ctx context.Context, email, passwordHash string) (Teacher, error)
	GetByEmail(ctx context.Context, email string) (*Teacher, string, error)
}

// Service validates credentials and manages account creation.
type Service struct {
	store Store
}

// NewService creates the account service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SignUp creates an account with a bcrypt-hashed password.
func (s *Service) SignUp(ctx context.Context, email, password string) (Teacher, error) {
	if email == "" || password == "" {
		return Teacher{}, errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Teacher{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.Insert(ctx, email, string(hash))
}

// Login checks credentials and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (Teacher, error) {
	if email == "" || password == "" {
		return Teacher{}, ErrInvalidCredentials
	}
	t, hash, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Teacher{}, err
	}
	if t == nil {
		return Teacher{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Teacher{}, ErrInvalidCredentials
	}
	return *t, nil
}
