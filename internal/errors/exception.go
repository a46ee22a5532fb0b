package errors

import (
	"errors"
	"net/http"
)

type Exception struct {
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

// StatusCode maps an engine error to the HTTP status the web layer should answer with.
func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
