package checkouts

import (
	"time"
)

// CheckoutRecord is one captured checkout. The row is keyed by an opaque UUID
// handed to the visitor's session; the numeric id exists only for storage.
// Both wall-clock and epoch timestamps are persisted so the reporting API can
// return the former while the expiry sweep compares the latter.
type CheckoutRecord struct {
	CheckoutID        int64     `gorm:"column:checkout_id;primaryKey;autoIncrement"`
	UserID            int64     `gorm:"column:user_id"`
	UserEmail         string    `gorm:"column:user_email"`
	CheckoutContents  Snapshot  `gorm:"column:checkout_contents;type:jsonb"`
	CheckoutUpdated   time.Time `gorm:"column:checkout_updated"`
	CheckoutUpdatedTS int64     `gorm:"column:checkout_updated_ts"`
	CheckoutCreated   time.Time `gorm:"column:checkout_created"`
	CheckoutCreatedTS int64     `gorm:"column:checkout_created_ts"`
	CheckoutUUID      string    `gorm:"column:checkout_uuid;uniqueIndex:idx_checkout_records_uuid"`
}

func (CheckoutRecord) TableName() string {
	return "checkout_records"
}

// IsGuest reports whether the row was captured without an authenticated user.
func (r CheckoutRecord) IsGuest() bool {
	return r.UserID == 0
}
