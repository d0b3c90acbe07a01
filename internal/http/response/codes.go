package response

import "net/http"

// HTTP status codes used by the API
const (
	CodeOK              = http.StatusOK
	CodeBadRequest      = http.StatusBadRequest
	CodeNotFound        = http.StatusNotFound
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeInternal        = http.StatusInternalServerError
)

// Error tags carried in the "error" field of failure bodies
const (
	TagValidation  = "VALIDATION_ERROR"
	TagNotFound    = "NOT_FOUND"
	TagStorage     = "STORAGE_ERROR"
	TagInternal    = "INTERNAL_ERROR"
	TagRateLimited = "RATE_LIMITED"
)

// TagForCode default error tag of an HTTP status
func TagForCode(code int) string {
	switch code {
	case CodeBadRequest:
		return TagValidation
	case CodeNotFound:
		return TagNotFound
	case CodeTooManyRequests:
		return TagRateLimited
	default:
		return TagInternal
	}
}
