package coupons

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Repository exposes coupon catalog lookups.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByCode loads an active coupon by its case-insensitive code.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*Coupon, error) {
	var coupon Coupon
	normalized := strings.ToLower(strings.TrimSpace(code))
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = ? AND is_active = ?", normalized, true).
		First(&coupon).
		Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindActiveByCodes resolves several codes at once, keyed by the stored code.
func (r *Repository) FindActiveByCodes(ctx context.Context, codes []string) (map[string]Coupon, error) {
	result := make(map[string]Coupon, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(code)))
	}
	var rows []Coupon
	err := r.db.WithContext(ctx).
		Where("LOWER(code) IN ? AND is_active = ?", normalized, true).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[strings.ToLower(row.Code)] = row
	}
	return result, nil
}

// Create inserts the coupon. Used by seeds and tests.
func (r *Repository) Create(ctx context.Context, coupon *Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}
