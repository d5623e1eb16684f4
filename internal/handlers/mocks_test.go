package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/repeatapi/internal/models"
	"github.com/HammerMeetNail/repeatapi/internal/services"
)

type mockRegistrationService struct {
	RegisterFunc func(ctx context.Context, method string, req models.RegistrationRequest) models.RegistrationOutcome
}

func (m *mockRegistrationService) Register(ctx context.Context, method string, req models.RegistrationRequest) models.RegistrationOutcome {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, method, req)
	}
	return models.OutcomeFailed
}

type mockUserService struct {
	ExistsByEmailFunc func(ctx context.Context, email string) (bool, error)
	CreateFunc        func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
}

func (m *mockUserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &models.User{ID: uuid.New(), Email: params.Email, Name: params.Name}, nil
}

func (m *mockUserService) Scoped(ctx context.Context, fn func(users services.UserServiceInterface) error) error {
	return fn(m)
}
