package domain

import "time"

// PaymentMethod identifies how a sale was paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentMobile     PaymentMethod = "mobile"
)

// Valid reports whether the payment method is one of the supported values.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentMobile:
		return true
	}
	return false
}

// Sale is a committed multi-line sale. Its line items are owned exclusively
// by the sale and are deleted with it.
type Sale struct {
	ID            int64         `json:"id" db:"id"`
	InvoiceNumber string        `json:"invoice_number" db:"invoice_number"`
	SaleDate      time.Time     `json:"sale_date" db:"sale_date"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	CustomerName  string        `json:"customer_name,omitempty" db:"customer_name"`
	Items         []SaleItem    `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// SaleItem is one line of a sale. ItemName is a snapshot taken at sale time
// so the line stays meaningful if the item is later deleted. TotalPrice is
// computed at creation and immutable afterwards.
type SaleItem struct {
	ID         int64   `json:"id" db:"id"`
	SaleID     int64   `json:"sale_id" db:"sale_id"`
	ItemID     int64   `json:"item_id" db:"item_id"`
	ItemName   string  `json:"item_name" db:"item_name"`
	Quantity   int     `json:"quantity" db:"quantity"`
	UnitPrice  float64 `json:"unit_price" db:"unit_price"`
	TotalPrice float64 `json:"total_price" db:"total_price"`
}
