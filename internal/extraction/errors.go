package extraction

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies extraction errors for HTTP mapping.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindEngineUnavailable ErrorKind = "engine_unavailable"
	KindExtraction        ErrorKind = "extraction_failure"
	KindInternal          ErrorKind = "internal"
)

// Error is an extraction error with a client-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new extraction error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(err error) *Error {
	return NewError(KindInvalidInput, "Invalid base64 PDF data", err)
}

// EngineUnavailable echoes the engine's own message, which names the remediation when known.
func EngineUnavailable(err error) *Error {
	return NewError(KindEngineUnavailable, err.Error(), err)
}

func ExtractionFailed(err error) *Error {
	return NewError(KindExtraction, "Extraction failed: "+err.Error(), err)
}

func Internal(message string, err error) *Error {
	return NewError(KindInternal, message, err)
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

const panicDetail = "Internal server error"

// DetailFor returns the client-facing message for err.
func DetailFor(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return panicDetail
}
