package errors

import "net/http"

// ErrorDetail is the inner error object of an API error response.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the JSON body returned for any failed API request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the API body for err. The hint is preferred over the
// raw error message so internals never leak to clients.
func NewErrorResponse(err error) *ErrorResponse {
	message := err.Error()
	if hint := Hint(err); hint != "" {
		message = hint
	}
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Details: ReportableDetails(err),
		},
	}
}

// HTTPStatusFromErr maps a classified error to an HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err), IsIdempotencyConflict(err):
		return http.StatusConflict
	case IsValidation(err), IsCurrencyMismatch(err):
		return http.StatusBadRequest
	case IsInvalidOperation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
