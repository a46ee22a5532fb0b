package errors

import "net/http"

// ErrTaskNotFound covers both a missing id and an id owned by someone else.
var ErrTaskNotFound = &Exception{
	Message:    "task not found",
	StatusCode: http.StatusNotFound,
}

// ErrOptimisticLock is returned when the stored version moved on between the
// read and the write of a mutation.
var ErrOptimisticLock = &Exception{
	Message:    "task was modified concurrently, reload and retry",
	StatusCode: http.StatusConflict,
}
