package api

import "net/http"

// Error is the body of the "error" member of a failed response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Router-level error codes.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// NewError builds an error carrying status.
func NewError(status int, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

var (
	ErrRouteNotFound    = NewError(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrMethodNotAllowed = NewError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
)
