package domain

import "time"

// DefaultLowStockThreshold is applied when an item is created without an
// explicit threshold.
const DefaultLowStockThreshold = 5

// Item represents a single stocked product.
type Item struct {
	ID                int64      `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	ItemCode          string     `json:"item_code" db:"item_code"`
	Price             float64    `json:"price" db:"price"`
	StockQuantity     int        `json:"stock_quantity" db:"stock_quantity"`
	LowStockThreshold int        `json:"low_stock_threshold" db:"low_stock_threshold"`
	Category          string     `json:"category,omitempty" db:"category"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether the item is at or below its threshold but not
// yet out of stock.
func (i Item) IsLowStock() bool {
	return i.StockQuantity > 0 && i.StockQuantity <= i.LowStockThreshold
}

// IsOutOfStock reports whether the item has no stock left.
func (i Item) IsOutOfStock() bool {
	return i.StockQuantity == 0
}

// Category groups items for filtering and revenue breakdowns. Items refer
// to a category by name.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
