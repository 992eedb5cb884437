// Package classifier maps failed network calls to normalized error classifications.
//
// Classify accepts three shapes of failure:
//   - a request that never got a response (*domain.RequestError, or a raw
//     transport error from net/http such as *url.Error)
//   - a structured HTTP response (*domain.ResponseError)
//   - any other error, inspected by message only
//
// Classification is pure: no I/O, no shared state, and it never panics.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

// Classifier turns a raw failure into a classification.
type Classifier func(err error) domain.ErrorClassification

// Classify classifies err. The first matching rule wins.
func Classify(err error) (c domain.ErrorClassification) {
	defer func() {
		if r := recover(); r != nil {
			c = unknown("")
		}
	}()

	if err == nil {
		return unknown("")
	}

	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) {
		code := reqErr.Code
		if code == "" {
			code = domain.TransportCode(reqErr.Err)
		}
		return classifyTransport(code)
	}

	var respErr *domain.ResponseError
	if errors.As(err, &respErr) {
		return classifyResponse(respErr)
	}

	if isTransportError(err) {
		return classifyTransport(domain.TransportCode(err))
	}

	return classifyMessage(err.Error())
}

// isTransportError reports whether err came out of the HTTP transport itself.
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func classifyTransport(code string) domain.ErrorClassification {
	switch code {
	case domain.TransportAborted, domain.TransportTimedOut:
		return domain.NewClassification(domain.ClassificationParams{
			Category:  domain.CategoryTimeout,
			Code:      domain.CodeTimeout,
			Message:   msgTimeout,
			Retryable: true,
		})
	case domain.TransportConnectionRefused:
		return domain.NewClassification(domain.ClassificationParams{
			Category:  domain.CategoryNetwork,
			Code:      domain.CodeConnectionRefused,
			Message:   msgConnectionRefused,
			Retryable: true,
		})
	default:
		return domain.NewClassification(domain.ClassificationParams{
			Category:  domain.CategoryNetwork,
			Code:      domain.CodeNetworkUnavailable,
			Message:   msgNetwork,
			Retryable: true,
		})
	}
}

func classifyResponse(e *domain.ResponseError) domain.ErrorClassification {
	body := parseBody(e.Body)
	detail := body.str("detail")

	p := domain.ClassificationParams{StatusCode: e.StatusCode}

	switch e.StatusCode {
	case http.StatusBadRequest:
		message, fieldErrors := body.validationErrors()
		p.Category = domain.CategoryValidation
		p.Message = orDefault(message, msgInvalidInput)
		p.FieldErrors = fieldErrors

	case http.StatusUnauthorized:
		p.Category = domain.CategoryAuthentication
		p.Message = msgAuthFailed
		if strings.Contains(strings.ToLower(detail), "expired") {
			p.Code = domain.CodeTokenExpired
			p.Message = msgSessionExpire
		}

	case http.StatusForbidden:
		p.Category = domain.CategoryAuthorization
		p.Message = orDefault(detail, msgForbidden)

	case http.StatusNotFound:
		p.Category = domain.CategoryClient
		p.Code = domain.CodeNotFound
		p.Message = orDefault(detail, msgNotFound)

	case http.StatusConflict:
		p.Category = domain.CategoryValidation
		p.Code = domain.CodeConflict
		p.Message = orDefault(detail, msgConflict)
		p.Details = body.asMap()

	case http.StatusTooManyRequests:
		p.Category = domain.CategoryClient
		p.Code = domain.CodeRateLimited
		p.Message = msgRateLimited
		p.Retryable = true
		p.RetryAfter = body.retryAfter()
		if p.RetryAfter == 0 {
			p.RetryAfter = headerRetryAfter(e.Header)
		}

	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		p.Category = domain.CategoryServer
		p.Code = domain.CodeInternal
		p.Message = msgServer
		p.Retryable = true

	default:
		p.Category = domain.CategoryClient
		p.Message = orDefault(detail, fmt.Sprintf(msgHTTPStatus, e.StatusCode))
	}

	// An application code in the body wins, except that a 429 stays RATE_LIMITED
	// so that it remains retryable.
	if code := body.str("code", "error_code"); code != "" && p.Code != domain.CodeRateLimited {
		p.Code = domain.Code(code)
	}

	return domain.NewClassification(p)
}

func headerRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if d := parseRetryAfter(v); d > 0 {
		return d
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func classifyMessage(message string) domain.ErrorClassification {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return classifyTransport(domain.TransportTimedOut)
	case strings.Contains(lower, "network"):
		return classifyTransport(domain.TransportNetwork)
	default:
		return unknown(message)
	}
}

func unknown(message string) domain.ErrorClassification {
	return domain.NewClassification(domain.ClassificationParams{
		Category: domain.CategoryUnknown,
		Message:  orDefault(message, domain.DefaultMessage),
	})
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
