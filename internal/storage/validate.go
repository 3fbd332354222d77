package storage

import "strings"

// Shared payload validation used by every adapter so all backends classify
// bad input identically, before any engine-native work happens.

// ValidateItemInput checks the create-item payload.
func ValidateItemInput(in ItemInput) error {
	var fields []FieldError
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "must not be empty"})
	}
	if strings.TrimSpace(in.ItemCode) == "" {
		fields = append(fields, FieldError{Field: "item_code", Message: "must not be empty"})
	}
	if in.Price < 0 {
		fields = append(fields, FieldError{Field: "price", Message: "must not be negative"})
	}
	if in.StockQuantity < 0 {
		fields = append(fields, FieldError{Field: "stock_quantity", Message: "must not be negative"})
	}
	if in.LowStockThreshold != nil && *in.LowStockThreshold < 0 {
		fields = append(fields, FieldError{Field: "low_stock_threshold", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return NewValidation(fields...)
	}
	return nil
}

// ValidateItemUpdate checks the fields present in a partial update.
func ValidateItemUpdate(upd ItemUpdate) error {
	var fields []FieldError
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "must not be empty"})
	}
	if upd.ItemCode != nil && strings.TrimSpace(*upd.ItemCode) == "" {
		fields = append(fields, FieldError{Field: "item_code", Message: "must not be empty"})
	}
	if upd.Price != nil && *upd.Price < 0 {
		fields = append(fields, FieldError{Field: "price", Message: "must not be negative"})
	}
	if upd.StockQuantity != nil && *upd.StockQuantity < 0 {
		fields = append(fields, FieldError{Field: "stock_quantity", Message: "must not be negative"})
	}
	if upd.LowStockThreshold != nil && *upd.LowStockThreshold < 0 {
		fields = append(fields, FieldError{Field: "low_stock_threshold", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return NewValidation(fields...)
	}
	return nil
}

// ValidateCategoryName checks a category create/rename payload.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidation(FieldError{Field: "name", Message: "must not be empty"})
	}
	return nil
}

// ValidateSaleDraft checks a draft before the atomic commit is attempted.
// Stock availability is not checked here; that happens inside the
// transaction boundary.
func ValidateSaleDraft(d SaleDraft) error {
	var fields []FieldError
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		fields = append(fields, FieldError{Field: "invoice_number", Message: "must not be empty"})
	}
	if !d.PaymentMethod.Valid() {
		fields = append(fields, FieldError{Field: "payment_method", Message: "unknown payment method"})
	}
	if len(d.Lines) == 0 {
		fields = append(fields, FieldError{Field: "items", Message: "at least one line item is required"})
	}
	for _, l := range d.Lines {
		if l.Quantity < 1 {
			fields = append(fields, FieldError{Field: "quantity", Message: "must be at least 1"})
		}
		if l.UnitPrice < 0 {
			fields = append(fields, FieldError{Field: "unit_price", Message: "must not be negative"})
		}
	}
	if len(fields) > 0 {
		return NewValidation(fields...)
	}
	return nil
}

// ValidateStockAdjustment checks one stock mutation request.
func ValidateStockAdjustment(adj StockAdjustment) error {
	var fields []FieldError
	if !adj.Op.Valid() {
		fields = append(fields, FieldError{Field: "op", Message: "must be set, add or subtract"})
	}
	if adj.Quantity < 0 {
		fields = append(fields, FieldError{Field: "quantity", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return NewValidation(fields...)
	}
	return nil
}
