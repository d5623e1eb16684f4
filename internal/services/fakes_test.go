package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/repeatapi/internal/models"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scanFunc != nil {
		return r.scanFunc(dest...)
	}
	return nil
}

func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		if len(dest) != len(values) {
			return fmt.Errorf("scan: expected %d destinations, got %d", len(values), len(dest))
		}
		for i, v := range values {
			reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
		}
		return nil
	}}
}

type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	AcquireFunc  func(ctx context.Context) (PooledConn, error)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return fakeRow{}
}

func (f *fakeDB) Acquire(ctx context.Context) (PooledConn, error) {
	if f.AcquireFunc != nil {
		return f.AcquireFunc(ctx)
	}
	return &fakeConn{db: f}, nil
}

type fakeConn struct {
	db       *fakeDB
	released int
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return c.db.QueryRow(ctx, sql, args...)
}

func (c *fakeConn) Release() {
	c.released++
}

// memoryUsers is an in-memory user store with a unique email index.
type memoryUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	existsErr error
	createErr error
	scopes    int
	creates   int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: make(map[string]*models.User)}
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memoryUsers) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.byEmail[params.Email]; ok {
		return nil, ErrEmailAlreadyExists
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Name:         params.Name,
		CreatedAt:    time.Now(),
	}
	m.byEmail[params.Email] = user
	return user, nil
}

func (m *memoryUsers) Scoped(ctx context.Context, fn func(users UserServiceInterface) error) error {
	m.mu.Lock()
	m.scopes++
	m.mu.Unlock()
	return fn(m)
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

func (m *memoryUsers) get(email string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email]
}
