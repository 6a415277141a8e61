package usda

import (
	"fmt"
	"net/http"
)

// TransportError covers everything that stops a response from arriving:
// DNS, refused connections, timeouts and context cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("usda: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusKind classifies a non-2xx response for diagnostics.
type StatusKind int

const (
	StatusOther StatusKind = iota
	StatusUnauthorized
	StatusRateLimited
	StatusServerFault
)

func (k StatusKind) String() string {
	switch k {
	case StatusUnauthorized:
		return "unauthorized"
	case StatusRateLimited:
		return "rate-limited"
	case StatusServerFault:
		return "server-fault"
	default:
		return "other"
	}
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string // first bytes of the response body, for logs
}

// Kind maps the status code to a StatusKind.
func (e *StatusError) Kind() StatusKind {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return StatusUnauthorized
	case e.Code == http.StatusTooManyRequests:
		return StatusRateLimited
	case e.Code >= 500:
		return StatusServerFault
	default:
		return StatusOther
	}
}

func (e *StatusError) Error() string {
	switch e.Kind() {
	case StatusUnauthorized:
		return fmt.Sprintf("usda: status %d: invalid API key", e.Code)
	case StatusRateLimited:
		return fmt.Sprintf("usda: status %d: rate limited, too many requests", e.Code)
	case StatusServerFault:
		return fmt.Sprintf("usda: status %d: server error, try again later", e.Code)
	default:
		return fmt.Sprintf("usda: status %d", e.Code)
	}
}

// ParseError means the body did not decode into the expected search shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("usda: parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
