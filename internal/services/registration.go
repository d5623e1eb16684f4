package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/HammerMeetNail/repeatapi/internal/logging"
	"github.com/HammerMeetNail/repeatapi/internal/models"
)

const minPasswordLength = 6

// RegistrationService runs the signup workflow: validate, check uniqueness,
// hash, insert.
type RegistrationService struct {
	users    UserServiceInterface
	hasher   PasswordHasher
	validate *validator.Validate
}

func NewRegistrationService(users UserServiceInterface, hasher PasswordHasher) *RegistrationService {
	return &RegistrationService{
		users:    users,
		hasher:   hasher,
		validate: validator.New(),
	}
}

// Register validates req and creates the user. Validation failures return
// before the store is touched. The existence check is only a fast path;
// the insert's unique constraint decides races between identical signups.
func (s *RegistrationService) Register(ctx context.Context, method string, req models.RegistrationRequest) models.RegistrationOutcome {
	if method != http.MethodPost {
		return models.OutcomeMethodNotAllowed
	}

	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.Password)
	name := strings.TrimSpace(req.Name)

	if email == "" || password == "" {
		return models.OutcomeMissingCredentials
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return models.OutcomeInvalidEmail
	}
	if len(password) < minPasswordLength {
		return models.OutcomePasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return models.OutcomePasswordTooLong
	}

	logger := logging.FromContext(ctx)

	var user *models.User
	err := s.users.Scoped(ctx, func(users UserServiceInterface) error {
		exists, err := users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailAlreadyExists
		}

		hash, err := s.hasher.HashPassword(password)
		if err != nil {
			return err
		}

		user, err = users.Create(ctx, models.CreateUserParams{
			Email:        email,
			PasswordHash: hash,
			Name:         name,
		})
		return err
	})

	switch {
	case err == nil:
		logger.Info("User registered", logging.Fields{"user_id": user.ID.String()})
		return models.OutcomeRegistered
	case errors.Is(err, ErrEmailAlreadyExists):
		return models.OutcomeEmailTaken
	case errors.Is(err, ErrPasswordTooLong):
		return models.OutcomePasswordTooLong
	default:
		logger.Error("Error registering user", logging.Fields{"error": err.Error()})
		return models.OutcomeFailed
	}
}
