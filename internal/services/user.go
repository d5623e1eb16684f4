package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/repeatapi/internal/models"
)

// SQLSTATE unique_violation
const uniqueViolationCode = "23505"

var ErrEmailAlreadyExists = errors.New("email already exists")

type UserService struct {
	db   Querier
	pool DBConn // nil once scoped to a single connection
}

func NewUserService(db DBConn) *UserService {
	return &UserService{db: db, pool: db}
}

// ExistsByEmail matches the email exactly as stored.
func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

// Create inserts a user. The users.email UNIQUE constraint is authoritative:
// a concurrent insert of the same email yields ErrEmailAlreadyExists.
func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, password_hash, name, created_at`,
		params.Email, params.PasswordHash, params.Name,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt)

	if isUniqueViolation(err) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *UserService) Scoped(ctx context.Context, fn func(users UserServiceInterface) error) error {
	if s.pool == nil {
		return fn(s)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(&UserService{db: conn})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
