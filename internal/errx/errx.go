package errx

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfig marks a missing or malformed setting. Raised before any network call.
	ErrConfig = errors.New("configuration error")
	// ErrUpstream marks a failed call to the price service.
	ErrUpstream = errors.New("price service error")
	// ErrStorage marks a failed read or write of the key/value store.
	ErrStorage = errors.New("storage error")
	// ErrBadRequest marks a malformed message.
	ErrBadRequest = errors.New("bad request")
)

// AppError wraps an underlying error with an HTTP status and a message that is
// safe to show the user.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(err error, status int, message string) *AppError {
	return &AppError{Err: err, Status: status, Message: message}
}

// Config builds a configuration error with a user-facing message.
func Config(message string) error {
	return &AppError{Err: ErrConfig, Status: http.StatusBadRequest, Message: message}
}

// Upstream wraps a price service failure.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: fmt.Errorf("%w: %v", ErrUpstream, err), Status: http.StatusBadGateway, Message: "price service request failed"}
}

// Storage wraps a key/value store failure.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: fmt.Errorf("%w: %v", ErrStorage, err), Status: http.StatusInternalServerError, Message: "storage operation failed"}
}

// Status maps any error to an HTTP status code.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrConfig), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
