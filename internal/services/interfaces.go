package services

import (
	"context"

	"github.com/HammerMeetNail/repeatapi/internal/models"
)

// Row is the subset of pgx.Row used by the services.
type Row interface {
	Scan(dest ...any) error
}

// Querier runs single-row queries against PostgreSQL.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// PooledConn is a connection checked out of the pool. Release must be
// called exactly once.
type PooledConn interface {
	Querier
	Release()
}

// DBConn is the connection pool the services depend on.
type DBConn interface {
	Querier
	Acquire(ctx context.Context) (PooledConn, error)
}

// UserServiceInterface defines the contract for user store operations.
type UserServiceInterface interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	// Scoped runs fn against a single pooled connection, released when fn returns.
	Scoped(ctx context.Context, fn func(users UserServiceInterface) error) error
}

// PasswordHasher defines the contract for credential hashing.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
}

// RegistrationServiceInterface defines the contract for the signup workflow.
type RegistrationServiceInterface interface {
	Register(ctx context.Context, method string, req models.RegistrationRequest) models.RegistrationOutcome
}
