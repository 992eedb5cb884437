package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Transport codes attached to a RequestError.
const (
	TransportAborted           = "ECONNABORTED"
	TransportTimedOut          = "ETIMEDOUT"
	TransportConnectionRefused = "ECONNREFUSED"
	TransportHostNotFound      = "ENOTFOUND"
	TransportNetwork           = "ERR_NETWORK"
)

// RequestError is a call that was sent (or attempted) but never got a response.
type RequestError struct {
	Method string
	URL    string
	Code   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Code, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ResponseError is a call that got a non-success HTTP response.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: http %d", e.Method, e.URL, e.StatusCode)
}

// TransportCode derives a transport code from a raw error returned by net/http.
func TransportCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TransportAborted
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return TransportConnectionRefused
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return TransportTimedOut
		}
		return TransportHostNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimedOut
	}
	return TransportNetwork
}
