package services

import (
	"context"
	"time"

	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/types"
)

// ProfileInput is a partial profile update. Nil fields are left alone.
type ProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName" validate:"omitempty,max=255"`
}

// UserService implements the user use cases.
type UserService struct {
	users UserStore
	log   *logger.Logger
	now   func() time.Time
}

func NewUserService(users UserStore, log *logger.Logger) *UserService {
	return &UserService{users: users, log: log, now: time.Now}
}

// WithClock replaces the time source used for login stamps.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// GetUserByID returns the user, or a NotFound error when there is none.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "userService - getUserById"
	if id == "" {
		return nil, types.NewValidationError(op, "user id is required")
	}

	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find user", "op", op, "user_id", id, "error", err)
		return nil, err
	}
	if user == nil {
		return nil, types.NewNotFoundError(op, "user not found")
	}
	return user, nil
}

// RegisterOrLoginUserByID creates the user on first login and otherwise
// stamps the login time. Each stamp is strictly later than the last.
func (s *UserService) RegisterOrLoginUserByID(ctx context.Context, id, email string, emailVerified bool) (*models.User, error) {
	const op = "userService - registerOrLoginUserById"
	if id == "" {
		return nil, types.NewValidationError(op, "user id is required")
	}

	existing, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if email == "" {
			return nil, types.NewValidationError(op, "email is required")
		}
		at := s.stamp(nil)
		created, err := s.users.CreateUser(ctx, &models.User{
			ID:            id,
			Email:         email,
			EmailVerified: emailVerified,
			LastLogin:     &at,
		})
		switch {
		case err == nil:
			s.log.Info("Registered user", "user_id", id)
			return created, nil
		case types.IsKind(err, types.KindConflict):
			// a concurrent first login registered the user
			existing, err = s.users.FindUserByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, types.NewInternalError(op, "registered user not found after conflict", nil)
			}
		default:
			s.log.Error("Failed to register user", "op", op, "user_id", id, "error", err)
			return nil, err
		}
	}

	updated, err := s.users.UpdateLastLogin(ctx, id, s.stamp(existing.LastLogin))
	if err != nil {
		s.log.Error("Failed to record login", "op", op, "user_id", id, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, types.NewInternalError(op, "login update returned no user", nil)
	}
	return updated, nil
}

// UpdateProfile changes the user's name fields.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*models.User, error) {
	const op = "userService - updateProfile"
	if id == "" {
		return nil, types.NewValidationError(op, "user id is required")
	}
	if input.FirstName == nil && input.LastName == nil {
		return nil, types.NewValidationError(op, "no profile fields to update")
	}
	if err := models.Validate(input); err != nil {
		return nil, types.NewValidationError(op, models.ValidationMessage(err))
	}

	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.users.UpdateUser(ctx, existing.ID, repositories.UserUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
}

// stamp returns the login time, at microsecond precision so it survives
// the database round trip, moved past prev when the clock has not advanced.
func (s *UserService) stamp(prev *time.Time) time.Time {
	at := s.now().UTC().Truncate(time.Microsecond)
	if prev != nil && !at.After(*prev) {
		at = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return at
}
