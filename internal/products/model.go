package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a minimal catalog row: enough to validate cart additions, price
// line items, and decorate the reporting payload.
type Product struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title      string          `gorm:"column:title"`
	SKU        string          `gorm:"column:sku"`
	Permalink  string          `gorm:"column:permalink"`
	ImageURL   string          `gorm:"column:image_url"`
	PriceCents int64           `gorm:"column:price_cents"`
	TaxRate    decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4)"`
	StockQty   int64           `gorm:"column:stock_qty"`
	IsActive   bool            `gorm:"column:is_active"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Purchasable reports whether the product can be added to a cart in the
// requested quantity.
func (p Product) Purchasable(qty int64) bool {
	return p.IsActive && qty > 0 && p.StockQty >= qty
}
