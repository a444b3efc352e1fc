package errorhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pointhub/pointhub-api/internal/pkg/logger"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
)

// Internal logs an unexpected failure with the operation name and answers 500.
// Store errors are transient from the caller's point of view: nothing was half-applied.
func Internal(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	logger.FromContext(ctx).Error().
		Err(err).
		Str("request_id", logger.RequestID(ctx)).
		Str("operation", operation).
		Msg("Request failed")

	response.InternalError(w)
}

// Precondition logs a rejected business rule at debug level and answers 409.
func Precondition(ctx context.Context, w http.ResponseWriter, code, message string, err error) {
	logger.FromContext(ctx).Debug().
		Err(err).
		Str("error_code", code).
		Msg("Precondition failed")

	response.Conflict(w, code, message)
}

// Validation logs field errors and answers 422.
func Validation(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Warn().
		RawJSON("validation_errors", errJSON).
		Msg("Validation error")

	response.ValidationError(w, fieldErrors)
}
