package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/localnerve/macroai/internal/models"
	"gorm.io/gorm"
)

// UserUpdate names the profile fields that may change. Nil fields are left
// alone.
type UserUpdate struct {
	Email         *string
	EmailVerified *bool
	FirstName     *string
	LastName      *string
}

// UserRepository persists users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindUserByID returns the user or nil when absent.
func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, r.db, "userRepository - findUserById", "id = ?", id)
}

// FindUserByEmail returns the user or nil when absent. Emails compare case-insensitively.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.db, "userRepository - findUserByEmail", "LOWER(email) = ?", strings.ToLower(email))
}

// CreateUser inserts a user. A duplicate id or email is a conflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return insert(ctx, r.db, "userRepository - createUser", user)
}

// UpdateUser applies the non-nil fields of u and returns the stored row.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, u UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.EmailVerified != nil {
		updates["email_verified"] = *u.EmailVerified
	}
	if u.FirstName != nil {
		updates["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		updates["last_name"] = *u.LastName
	}
	return update[models.User](ctx, r.db, "userRepository - updateUser", id, updates)
}

// UpdateLastLogin stamps the user's last login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) (*models.User, error) {
	return update[models.User](ctx, r.db, "userRepository - updateLastLogin", id, map[string]interface{}{
		"last_login": at,
	})
}
