package marketing

import "time"

// CustomerPreference stores the newsletter choice keyed by email.
type CustomerPreference struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email           string    `gorm:"column:email;uniqueIndex:idx_customer_preferences_email"`
	NewsletterOptIn bool      `gorm:"column:newsletter_opt_in"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (CustomerPreference) TableName() string {
	return "customer_preferences"
}

// OrderMeta links a completed order to the checkout it came from and the
// newsletter choice made at purchase time.
type OrderMeta struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         string    `gorm:"column:order_id;uniqueIndex:idx_order_meta_order_id"`
	CheckoutUUID    string    `gorm:"column:checkout_uuid"`
	NewsletterOptIn bool      `gorm:"column:newsletter_opt_in"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (OrderMeta) TableName() string {
	return "order_meta"
}
