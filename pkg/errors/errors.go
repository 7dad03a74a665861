package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single error shape used by the portal. Status carries the HTTP status returned by the
// school API (0 for transport failures) and Message is the human readable text shown to the user.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface. Only Message is returned so it can be shown verbatim.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so callers can use errors.Is(err, ErrUnauthorized).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrNetwork       = New("NETWORK_ERROR", http.StatusBadGateway, "network error")
	ErrHTTP          = New("HTTP_ERROR", http.StatusBadGateway, "request failed")
	ErrUnauthorized  = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden     = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound      = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation    = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrSessionClosed = New("SESSION_CLOSED", http.StatusGone, "session closed")
	ErrNoCredentials = New("NO_CREDENTIALS", http.StatusUnauthorized, "No access token available")
	ErrInternal      = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromStatus builds the error for a non-2xx API response. serverMessage wins when present.
func FromStatus(status int, serverMessage string) *Error {
	msg := serverMessage
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	code := ErrHTTP.Code
	switch status {
	case http.StatusUnauthorized:
		code = ErrUnauthorized.Code
	case http.StatusForbidden:
		code = ErrForbidden.Code
	case http.StatusNotFound:
		code = ErrNotFound.Code
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = ErrValidation.Code
	}
	return New(code, status, msg)
}

// Network wraps a transport failure keeping its native message.
func Network(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, ErrNetwork.Code, 0, err.Error())
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, err.Error())
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// HTTPStatus maps the error onto a status usable by the gateway. Transport failures become 502.
func HTTPStatus(err *Error) int {
	if err == nil {
		return http.StatusOK
	}
	if err.Status < 400 || err.Status > 599 {
		return http.StatusBadGateway
	}
	return err.Status
}
