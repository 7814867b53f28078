package users

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Repository persists reporting credentials.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUsername loads the user by its case-insensitive username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*APIUser, error) {
	var user APIUser
	normalized := strings.ToLower(strings.TrimSpace(username))
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", normalized).
		First(&user).
		Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts the user. Used by seeds and tests.
func (r *Repository) Create(ctx context.Context, user *APIUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}
