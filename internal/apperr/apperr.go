// Package apperr defines the error taxonomy shared by the service and HTTP layers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that need to react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindRateLimited
	KindNotFound
	KindGone
	KindUnauthorized
	KindServiceUnavailable
	KindGenerationExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindRateLimited:
		return "RateLimited"
	case KindNotFound:
		return "NotFound"
	case KindGone:
		return "Gone"
	case KindUnauthorized:
		return "Unauthorized"
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	case KindGenerationExhausted:
		return "GenerationExhausted"
	default:
		return "Internal"
	}
}

// Error is a classified error. Details are rendered next to the message in
// HTTP responses (password challenges, maintenance hints).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail returns e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

func RateLimited(message string) *Error { return New(KindRateLimited, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Gone(message string) *Error { return New(KindGone, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func ServiceUnavailable(message string) *Error { return New(KindServiceUnavailable, message) }

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindGone:
		return http.StatusGone
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message safe to show to clients. Internal errors
// never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Kind {
	case KindInternal:
		return "internal server error"
	case KindGenerationExhausted:
		return "failed to generate a unique short code"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

// DetailsOf returns the details attached to the first *Error in err's chain.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
