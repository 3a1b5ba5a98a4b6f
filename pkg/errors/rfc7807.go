// Package errors provides the error kinds used across the service and their
// RFC 7807 Problem Details rendering
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	Kind    string `json:"kind" validate:"required"`
	Field   string `json:"field" validate:"required"`
	Message string `json:"message,omitempty" validate:"required"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// StatusCode represents an HTTP status code error
type StatusCode int

// Error implements error
func (status StatusCode) Error() string {
	return http.StatusText(int(status))
}

// Error kinds. A duplicate url is reported as a bad request, not 409.
const (
	KindInvalid      = "ValidationError"
	KindConflict     = "ConflictError"
	KindNotFound     = "NotFoundError"
	KindUnauthorized = "AuthorizationError"
	KindUpload       = "UploadError"
	KindInternal     = "InternalError"
)

var (
	Invalid      = NewWithKind(KindInvalid)
	Conflict     = NewWithKind(KindConflict)
	NotFound     = NewWithKind(KindNotFound)
	Unauthorized = NewWithKind(KindUnauthorized)
	Upload       = NewWithKind(KindUpload)
	Internal     = NewWithKind(KindInternal)
)

// Error is a custom error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicate the error
	Message string `json:"message"`
	// Fields used when there's validation error for a field.
	Fields []FieldError `json:"fields,omitempty"`

	trace []byte
	cause error
}

var _ error = (*Error)(nil)

func New(message string) *Error {
	return &Error{Kind: "Unknown", Message: message}
}

func NewWithKind(kind string) *Error {
	return &Error{Kind: kind}
}

func Wrap(err error) *Error {
	return &Error{cause: err}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] ", e.Kind)
	if e.Message != "" {
		str += e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	if len(e.trace) > 0 {
		str = str + fmt.Sprintf("\n\nTrace: %s", string(e.trace))
	}
	return str
}

// Reason returns a copy of the error with kind set to given value
func (e *Error) Reason(kind string) *Error {
	err := *e
	err.Kind = kind
	return &err
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the cause set
func (e *Error) Wrap(cause error) *Error {
	err := *e
	err.cause = cause
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// Trace sets the error stack trace
func (e *Error) Trace() *Error {
	stack := make([]byte, 2048)
	n := runtime.Stack(stack, false)
	e.trace = stack[:n]
	return e
}

// WithField returns a copy of error with the field appended.
func (e *Error) WithField(kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(append([]FieldError(nil), e.Fields...), NewFieldError(kind, field, message))
	return &newError
}

// Is implements the needed interface for errors.Is
// It checks kind for equality
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// Problem type URIs
const (
	TypeValidationError = "https://api.visitantesonoro.com/problems/validation-error"
	TypeConflict        = "https://api.visitantesonoro.com/problems/conflict"
	TypeUnauthorized    = "https://api.visitantesonoro.com/problems/unauthorized"
	TypeNotFound        = "https://api.visitantesonoro.com/problems/not-found"
	TypeUploadFailed    = "https://api.visitantesonoro.com/problems/upload-failed"
	TypeInternalError   = "https://api.visitantesonoro.com/problems/internal-error"
)

// Problem titles
const (
	TitleValidationError = "Validation Error"
	TitleConflict        = "Conflict"
	TitleUnauthorized    = "Unauthorized"
	TitleNotFound        = "Not Found"
	TitleUploadFailed    = "Upload Failed"
	TitleInternalError   = "Internal Server Error"
)

// ValidationError represents a validation error for RFC 7807
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	TraceID  string            `json:"trace_id,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// AddValidationError adds a single validation error
func (p *ProblemDetails) AddValidationError(field, message, code string) *ProblemDetails {
	p.Errors = append(p.Errors, ValidationError{Field: field, Message: message, Code: code})
	return p
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// NewValidationError creates a validation error problem
func NewValidationError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeValidationError, TitleValidationError, http.StatusBadRequest, detail, instance)
}

// NewUnauthorizedError creates an unauthorized error problem
func NewUnauthorizedError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeUnauthorized, TitleUnauthorized, http.StatusUnauthorized, detail, instance)
}

// NewNotFoundError creates a not found error problem
func NewNotFoundError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeNotFound, TitleNotFound, http.StatusNotFound, detail, instance)
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, detail, instance)
}

// ToProblemDetails converts an Error to RFC 7807 ProblemDetails
func (e *Error) ToProblemDetails(instance string) *ProblemDetails {
	var pd *ProblemDetails
	switch e.Kind {
	case KindInvalid:
		pd = NewValidationError(e.Message, instance)
	case KindConflict:
		pd = NewProblemDetails(TypeConflict, TitleConflict, http.StatusBadRequest, e.Message, instance)
	case KindNotFound:
		pd = NewNotFoundError(e.Message, instance)
	case KindUnauthorized:
		pd = NewUnauthorizedError(e.Message, instance)
	case KindUpload:
		pd = NewProblemDetails(TypeUploadFailed, TitleUploadFailed, http.StatusInternalServerError, e.Message, instance)
	default:
		pd = NewInternalError(e.Message, instance)
	}

	for _, field := range e.Fields {
		pd.AddValidationError(field.Field, field.Message, field.Kind)
	}
	return pd
}
