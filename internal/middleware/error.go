package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stockroom/internal/storage"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithStorageError maps a storage error kind onto its HTTP status:
// validation 400, not found 404, conflict 409, insufficient stock 422,
// everything else 500. The internal cause is logged, never sent to the
// client.
func RespondWithStorageError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var se *storage.Error
	if !errors.As(err, &se) {
		logger.Error("Unclassified error reached the handler boundary", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch se.Kind {
	case storage.KindValidation:
		details := map[string]interface{}{}
		if len(se.Fields) > 0 {
			details["validation_errors"] = se.Fields
		}
		RespondWithErrorDetails(w, http.StatusBadRequest, se.Message, details)
	case storage.KindNotFound:
		RespondWithError(w, http.StatusNotFound, se.Message)
	case storage.KindConflict:
		RespondWithError(w, http.StatusConflict, se.Message)
	case storage.KindInsufficientStock:
		details := map[string]interface{}{}
		if se.Shortage != nil {
			details["shortage"] = se.Shortage
		}
		RespondWithErrorDetails(w, http.StatusUnprocessableEntity, se.Message, details)
	default:
		logger.Error("Storage backend failure", zap.Error(se))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
