package domain

import (
	"maps"
	"time"
)

// Category is the coarse reason a call failed. Every failure maps to exactly one.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryServer         Category = "server"
	CategoryClient         Category = "client"
	CategoryTimeout        Category = "timeout"
	CategoryUnknown        Category = "unknown"
)

// Code is an optional fine-grained machine code inside a category.
type Code string

const (
	CodeNone               Code = ""
	CodeConnectionRefused  Code = "CONNECTION_REFUSED"
	CodeNetworkUnavailable Code = "NETWORK_UNAVAILABLE"
	CodeTimeout            Code = "TIMEOUT"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_SERVER_ERROR"
)

// Severity ranks how loudly a failure should be surfaced.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityOf returns the default severity for a category.
func SeverityOf(c Category) Severity {
	switch c {
	case CategoryValidation, CategoryClient:
		return SeverityLow
	case CategoryAuthentication, CategoryAuthorization, CategoryServer:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// ErrorClassification is the normalized description of a failed call.
// Build it with NewClassification; treat it as read-only afterwards.
type ErrorClassification struct {
	Category    Category            `json:"category"`
	Code        Code                `json:"code,omitempty"`
	Severity    Severity            `json:"severity"`
	Message     string              `json:"message"`
	Retryable   bool                `json:"retryable"`
	StatusCode  int                 `json:"status_code,omitempty"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
	RetryAfter  time.Duration       `json:"retry_after,omitempty"`
	Details     map[string]any      `json:"details,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// ClassificationParams carries the inputs for NewClassification.
type ClassificationParams struct {
	Category    Category
	Code        Code
	Message     string
	Retryable   bool
	StatusCode  int
	FieldErrors map[string][]string
	RetryAfter  time.Duration
	Details     map[string]any
}

// DefaultMessage is used whenever a classification would otherwise have no message.
const DefaultMessage = "An unexpected error occurred."

// NewClassification builds an ErrorClassification and enforces its invariants:
// a non-empty message, retryable only for transient categories or RATE_LIMITED,
// and field errors only on validation failures. Maps are copied.
func NewClassification(s ClassificationParams) ErrorClassification {
	c := ErrorClassification{
		Category:   s.Category,
		Code:       s.Code,
		Severity:   SeverityOf(s.Category),
		Message:    s.Message,
		Retryable:  s.Retryable && IsTransient(s.Category, s.Code),
		StatusCode: s.StatusCode,
		RetryAfter: s.RetryAfter,
		Timestamp:  time.Now(),
	}
	if c.Category == "" {
		c.Category = CategoryUnknown
	}
	if c.Message == "" {
		c.Message = DefaultMessage
	}
	if c.Category == CategoryValidation && len(s.FieldErrors) > 0 {
		c.FieldErrors = make(map[string][]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			c.FieldErrors[k] = append([]string(nil), v...)
		}
	}
	if len(s.Details) > 0 {
		c.Details = maps.Clone(s.Details)
	}
	return c
}

// IsTransient reports whether a failure of this kind may succeed on blind re-execution.
func IsTransient(c Category, code Code) bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryServer:
		return true
	}
	return code == CodeRateLimited
}

// ClassifiedError pairs an error with its classification. Its Error text is the
// user-facing message; the original failure stays reachable through Unwrap.
type ClassifiedError struct {
	Classification ErrorClassification
	Err            error
}

func (e *ClassifiedError) Error() string {
	return e.Classification.Message
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}
