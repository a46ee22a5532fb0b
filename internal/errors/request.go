package errors

import "net/http"

var (
	ErrOwnerRequired = &Exception{
		Message:    "owner is required",
		StatusCode: http.StatusUnauthorized,
	}
	ErrInvalidJSON = &Exception{
		Message:    "invalid JSON payload",
		StatusCode: http.StatusBadRequest,
	}
	ErrRateLimited = &Exception{
		Message:    "rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}
)
