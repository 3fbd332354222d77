package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an expected storage failure. Every adapter maps its
// backend-native failures onto the same kinds so callers can switch on the
// kind without knowing which backend is active.
type Kind int

const (
	// KindInternal is an unexpected backend or connection failure.
	KindInternal Kind = iota
	// KindValidation is a rejected payload: missing/empty required fields
	// or negative numeric fields.
	KindValidation
	// KindConflict is a uniqueness collision: item code, invoice number or
	// category name already in use.
	KindConflict
	// KindNotFound means the operation targeted a nonexistent id.
	KindNotFound
	// KindInsufficientStock means a sale line requested more units than the
	// item has in stock.
	KindInsufficientStock
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	default:
		return "internal_error"
	}
}

// FieldError names one violated field of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StockShortage carries the quantities behind an insufficient-stock
// rejection.
type StockShortage struct {
	ItemID    int64 `json:"item_id"`
	Available int   `json:"available"`
	Requested int   `json:"requested"`
}

// Error is the uniform error shape returned by every adapter for expected
// failure modes. Unexpected backend failures are wrapped as KindInternal so
// nothing below the adapter boundary leaks raw driver errors.
type Error struct {
	Kind     Kind
	Message  string
	Fields   []FieldError
	Shortage *StockShortage
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation builds a validation error from field violations.
func NewValidation(fields ...FieldError) *Error {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return &Error{
		Kind:    KindValidation,
		Message: "validation failed: " + strings.Join(msgs, "; "),
		Fields:  fields,
	}
}

// NewConflict builds a uniqueness-collision error.
func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewNotFound builds a missing-entity error.
func NewNotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// NewInsufficientStock names the item and both quantities, per contract.
func NewInsufficientStock(itemID int64, available, requested int) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for item %d: %d available, %d requested",
			itemID, available, requested),
		Shortage: &StockShortage{ItemID: itemID, Available: available, Requested: requested},
	}
}

// NewInternal wraps an unexpected backend failure.
func NewInternal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "storage backend failure", Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// anything that is not a storage error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a storage error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
