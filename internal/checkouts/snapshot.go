package checkouts

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SnapshotVersion marks the current contents layout. Older rows remain
// readable; consumers branch on the version when the layout changes.
const SnapshotVersion = 1

// SnapshotItem is one product line frozen at capture time.
type SnapshotItem struct {
	ProductID  int64  `json:"product_id"`
	Title      string `json:"title"`
	Qty        int64  `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

// LineTotalCents returns qty times the frozen unit price.
func (i SnapshotItem) LineTotalCents() int64 {
	return i.Qty * i.PriceCents
}

// SnapshotTotals holds the priced summary at capture time.
type SnapshotTotals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Snapshot is the JSONB payload stored in checkout_contents.
type Snapshot struct {
	Version int            `json:"version"`
	Items   []SnapshotItem `json:"items"`
	Coupons []string       `json:"coupons,omitempty"`
	Totals  SnapshotTotals `json:"totals"`
}

// IsEmpty reports whether the snapshot carries no items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// Value implements driver.Valuer so GORM writes the snapshot as JSON.
func (s Snapshot) Value() (driver.Value, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkout snapshot: %w", err)
	}
	return string(payload), nil
}

// Scan implements sql.Scanner for JSON and JSONB columns.
func (s *Snapshot) Scan(value any) error {
	if value == nil {
		*s = Snapshot{}
		return nil
	}
	var payload []byte
	switch v := value.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return fmt.Errorf("unsupported checkout snapshot type %T", value)
	}
	if len(payload) == 0 {
		*s = Snapshot{}
		return nil
	}
	return json.Unmarshal(payload, s)
}
