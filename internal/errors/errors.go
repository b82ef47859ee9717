package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the submission error categories
var (
	// ErrValidation is returned when a submission is attempted before the inputs are complete
	ErrValidation = errors.New("validation failed")

	// ErrPackaging is returned when the resume archive cannot be built
	ErrPackaging = errors.New("packaging failed")

	// ErrRequest is returned when the ranking request cannot be constructed
	ErrRequest = errors.New("request construction failed")

	// ErrServer is returned when the ranking service answers with a non-2xx status
	ErrServer = errors.New("ranking service error")

	// ErrNetwork is returned when no response was received from the ranking service
	ErrNetwork = errors.New("ranking service unreachable")

	// ErrProtocol is returned when a 2xx response does not have the expected shape
	ErrProtocol = errors.New("unexpected ranking response")

	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("ranking already in progress")

	// ErrCandidateNotFound is returned when an id does not match any ranked candidate
	ErrCandidateNotFound = errors.New("candidate not found")
)

// ValidationError reports which submission gate failed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PackagingError wraps a failure while writing the resume archive
type PackagingError struct {
	File string
	Err  error
}

func (e *PackagingError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("failed to package '%s': %v", e.File, e.Err)
	}
	return fmt.Sprintf("failed to package resumes: %v", e.Err)
}

func (e *PackagingError) Is(target error) bool {
	return target == ErrPackaging
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

// NewPackagingError creates a new PackagingError
func NewPackagingError(file string, err error) *PackagingError {
	return &PackagingError{File: file, Err: err}
}

// RequestError wraps a failure that happened before the request was sent
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to build ranking request: %v", e.Err)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(err error) *RequestError {
	return &RequestError{Err: err}
}

// ServerError carries the status and body of a rejected ranking request
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("ranking service returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("ranking service returned status %d", e.StatusCode)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// NewServerError creates a new ServerError
func NewServerError(statusCode int, body string) *ServerError {
	return &ServerError{StatusCode: statusCode, Body: body}
}

// NetworkError wraps a transport failure where no response arrived
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("ranking service did not respond in time: %v", e.Err)
	}
	return fmt.Sprintf("could not reach ranking service: %v", e.Err)
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(err error, timeout bool) *NetworkError {
	return &NetworkError{Err: err, Timeout: timeout}
}

// ProtocolError reports a successful status whose body is not a candidate list
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid ranking response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid ranking response: %s", e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError
func NewProtocolError(reason string, err error) *ProtocolError {
	return &ProtocolError{Reason: reason, Err: err}
}

// CandidateNotFoundError reports an unknown candidate id
type CandidateNotFoundError struct {
	ID string
}

func (e *CandidateNotFoundError) Error() string {
	return fmt.Sprintf("candidate with ID '%s' not found", e.ID)
}

func (e *CandidateNotFoundError) Is(target error) bool {
	return target == ErrCandidateNotFound
}

// NewCandidateNotFoundError creates a new CandidateNotFoundError
func NewCandidateNotFoundError(id string) *CandidateNotFoundError {
	return &CandidateNotFoundError{ID: id}
}

// IsRemote reports whether err came from the ranking round trip itself
func IsRemote(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrProtocol)
}

// Category returns a short machine-readable name for the error category
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPackaging):
		return "packaging"
	case errors.Is(err, ErrRequest):
		return "request"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrCandidateNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
