package coupons

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a percentage-off code applied to the cart subtotal.
type Coupon struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Code       string          `gorm:"column:code;uniqueIndex:idx_coupons_code"`
	PercentOff decimal.Decimal `gorm:"column:percent_off;type:numeric(5,2)"`
	IsActive   bool            `gorm:"column:is_active"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}
