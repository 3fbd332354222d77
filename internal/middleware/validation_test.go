package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Mirror of the item-create payload shape used by the handlers.
type testItemRequest struct {
	Name     string  `json:"name" validate:"required"`
	ItemCode string  `json:"item_code" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Stock    int     `json:"stock_quantity" validate:"gte=0"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeName bool, includeCode bool) bool {
			reqMap := make(map[string]interface{})

			if includeName {
				reqMap["name"] = "Basmati Rice"
			}
			if includeCode {
				reqMap["item_code"] = "GR-1"
			}
			reqMap["price"] = 12.5
			reqMap["stock_quantity"] = 4

			allFieldsPresent := includeName && includeCode

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/items", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var payload testItemRequest
			err := DecodeAndValidate(req, &payload)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that validation errors are properly formatted
func TestProperty_ValidationErrorsAreFormatted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validation errors include field information", prop.ForAll(
		func(price float64) bool {
			reqMap := map[string]interface{}{
				"name":           "Basmati Rice",
				"item_code":      "GR-1",
				"price":          -price, // Negative price fails gte=0
				"stock_quantity": 4,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/items", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var payload testItemRequest
			err := DecodeAndValidate(req, &payload)

			if err == nil {
				return false
			}

			validationErrors := FormatValidationErrors(err)
			if len(validationErrors) == 0 {
				return false
			}

			for _, ve := range validationErrors {
				if ve.Field == "" || ve.Message == "" {
					return false
				}
			}

			return true
		},
		gen.Float64Range(0.01, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that valid requests pass validation
func TestProperty_ValidRequestsPassValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid requests pass validation", prop.ForAll(
		func(price float64, stock int) bool {
			reqMap := map[string]interface{}{
				"name":           "Basmati Rice",
				"item_code":      "GR-1",
				"price":          price,
				"stock_quantity": stock,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/items", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var payload testItemRequest
			err := DecodeAndValidate(req, &payload)

			return err == nil
		},
		gen.Float64Range(0, 1000),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Malformed JSON never reaches the validator.
func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/items", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	var payload testItemRequest
	if err := DecodeAndValidate(req, &payload); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}
