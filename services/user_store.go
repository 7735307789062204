package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"healthwatch-server/models"
)

// UserStore reads accounts and updates their push destination.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, persistenceError("load user", err)
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, email)
	}
	if err != nil {
		return nil, persistenceError("load user by email", err)
	}
	return &user, nil
}

// Create stores a new account. Registration is not exposed over HTTP; this
// serves seeding and tests.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || user.PasswordHash == "" {
		return fmt.Errorf("%w: user needs an email and a password hash", ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return persistenceError("create user", err)
	}
	return nil
}

// UpdatePushToken registers the device token reminders are pushed to. An
// empty token clears it.
func (s *UserStore) UpdatePushToken(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	var value *string
	if token != "" {
		value = &token
	}

	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("fcm_token", value)
	if res.Error != nil {
		return persistenceError("update push token", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}
