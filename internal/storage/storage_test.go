package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestProperty_PaginationArithmetic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalized requests stay in bounds and total pages cover the total exactly", prop.ForAll(
		func(page, limit, total int) bool {
			req := PageRequest{Page: page, Limit: limit}
			n := req.Normalized()
			if n.Page < 1 || n.Limit < 1 || n.Limit > MaxLimit {
				return false
			}

			p := NewPagination(req, total)
			if p.Limit != n.Limit || p.Page != n.Page || p.Total != total {
				return false
			}
			// TotalPages is the smallest page count whose capacity reaches
			// the total.
			if p.TotalPages*p.Limit < total {
				return false
			}
			if total > 0 && (p.TotalPages-1)*p.Limit >= total {
				return false
			}
			return total != 0 || p.TotalPages == 0
		},
		gen.IntRange(-5, 50),
		gen.IntRange(-5, 500),
		gen.IntRange(0, 1000),
	))

	properties.Property("offset always addresses the first row of the requested page", prop.ForAll(
		func(page, limit int) bool {
			req := PageRequest{Page: page, Limit: limit}
			n := req.Normalized()
			return req.Offset() == (n.Page-1)*n.Limit
		},
		gen.IntRange(-5, 50),
		gen.IntRange(-5, 500),
	))

	properties.TestingRun(t)
}

func TestErrorKinds(t *testing.T) {
	notFound := NewNotFound("item", 42)
	assert.True(t, IsKind(notFound, KindNotFound))
	assert.False(t, IsKind(notFound, KindConflict))
	assert.Contains(t, notFound.Error(), "item")
	assert.Contains(t, notFound.Error(), "42")

	shortage := NewInsufficientStock(7, 2, 5)
	assert.True(t, IsKind(shortage, KindInsufficientStock))
	var se *Error
	assert.True(t, errors.As(shortage, &se))
	assert.Equal(t, int64(7), se.Shortage.ItemID)
	assert.Equal(t, "insufficient stock for item 7: 2 available, 5 requested", se.Message)

	// Wrapping preserves the kind and the cause chain.
	cause := fmt.Errorf("connection reset")
	internal := NewInternal(fmt.Errorf("query failed: %w", cause))
	assert.Equal(t, KindInternal, KindOf(internal))
	assert.True(t, errors.Is(internal, cause))

	// Non-storage errors classify as internal; nil has no kind at all.
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestValidationErrorCollectsFields(t *testing.T) {
	err := ValidateItemInput(ItemInput{Name: " ", ItemCode: "", Price: -1, StockQuantity: -2})
	assert.True(t, IsKind(err, KindValidation))

	var se *Error
	assert.True(t, errors.As(err, &se))
	assert.Len(t, se.Fields, 4)
}

func TestBucketStarts(t *testing.T) {
	// Wednesday afternoon: the week bucket opens on the preceding Monday.
	now := time.Date(2025, time.March, 19, 15, 42, 7, 0, time.UTC)
	day, week, month := BucketStarts(now)
	assert.Equal(t, time.Date(2025, time.March, 19, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), week)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), month)

	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2025, time.March, 23, 8, 0, 0, 0, time.UTC)
	_, week, _ = BucketStarts(sunday)
	assert.Equal(t, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), week)

	// Monday is its own week start.
	monday := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)
	_, week, _ = BucketStarts(monday)
	assert.Equal(t, monday, week)
}
