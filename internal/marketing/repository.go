package marketing

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists marketing preferences and order metadata.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertPreference records the newsletter choice for the email, replacing any
// earlier answer.
func (r *Repository) UpsertPreference(ctx context.Context, email string, optIn bool, now time.Time) error {
	pref := CustomerPreference{
		Email:           strings.ToLower(strings.TrimSpace(email)),
		NewsletterOptIn: optIn,
		UpdatedAt:       now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"newsletter_opt_in", "updated_at"}),
		}).
		Create(&pref).
		Error
}

// FindPreference loads the stored choice, if any.
func (r *Repository) FindPreference(ctx context.Context, email string) (*CustomerPreference, error) {
	var pref CustomerPreference
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).First(&pref, "email = ?", normalized).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// CreateOrderMeta records the order linkage. Replaying the same order id is a
// no-op so order webhooks can retry safely.
func (r *Repository) CreateOrderMeta(ctx context.Context, meta *OrderMeta) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(meta).
		Error
}

// FindOrderMeta loads the linkage for an order.
func (r *Repository) FindOrderMeta(ctx context.Context, orderID string) (*OrderMeta, error) {
	var meta OrderMeta
	if err := r.db.WithContext(ctx).First(&meta, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &meta, nil
}
