package checkouts

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cartrescue/cartrescue-backend/pkg/pagination"
)

// Repository persists checkout records.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Upsert inserts the record, or refreshes an existing row with the same
// checkout uuid. The created timestamps survive the update; only the contents,
// identity, and updated timestamps move.
func (r *Repository) Upsert(ctx context.Context, record *CheckoutRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "checkout_uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id",
				"user_email",
				"checkout_contents",
				"checkout_updated",
				"checkout_updated_ts",
			}),
		}).
		Create(record).
		Error
}

// FindByUUID loads the record keyed by the recovery token.
func (r *Repository) FindByUUID(ctx context.Context, checkoutUUID string) (*CheckoutRecord, error) {
	var record CheckoutRecord
	err := r.db.WithContext(ctx).
		First(&record, "checkout_uuid = ?", checkoutUUID).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindUUIDByUser returns the newest checkout uuid captured for the user, so a
// returning visitor keeps writing to the same row. The empty string means no
// prior capture exists.
func (r *Repository) FindUUIDByUser(ctx context.Context, userID int64, email string) (string, error) {
	query := r.db.WithContext(ctx).Model(&CheckoutRecord{})
	switch {
	case userID > 0 && email != "":
		query = query.Where("user_id = ? OR user_email = ?", userID, email)
	case userID > 0:
		query = query.Where("user_id = ?", userID)
	case email != "":
		query = query.Where("user_email = ?", email)
	default:
		return "", nil
	}

	var uuids []string
	err := query.
		Order("checkout_updated_ts DESC").
		Limit(1).
		Pluck("checkout_uuid", &uuids).
		Error
	if err != nil {
		return "", err
	}
	if len(uuids) == 0 {
		return "", nil
	}
	return uuids[0], nil
}

// List returns a page of records ordered newest first, optionally bounded by
// an inclusive window over the first-capture timestamp.
func (r *Repository) List(ctx context.Context, params pagination.Params, dateMin, dateMax time.Time) ([]CheckoutRecord, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&CheckoutRecord{})
	if !dateMin.IsZero() {
		query = query.Where("checkout_created_ts >= ?", dateMin.Unix())
	}
	if !dateMax.IsZero() {
		query = query.Where("checkout_created_ts <= ?", dateMax.Unix())
	}

	var records []CheckoutRecord
	err := query.
		Order("checkout_updated_ts DESC").
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&records).
		Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByUUID removes the record keyed by the recovery token. Deleting an
// absent row is not an error.
func (r *Repository) DeleteByUUID(ctx context.Context, checkoutUUID string) error {
	return r.db.WithContext(ctx).
		Where("checkout_uuid = ?", checkoutUUID).
		Delete(&CheckoutRecord{}).
		Error
}

// DeleteExpired removes every record last touched at or before the cutoff and
// reports how many rows went away.
func (r *Repository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("checkout_updated_ts <= ?", cutoff.Unix()).
		Delete(&CheckoutRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
