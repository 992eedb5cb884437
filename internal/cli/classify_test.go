package cli

import (
	"errors"
	"testing"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

func resetClassifyFlags() {
	classifyStatus, classifyBody, classifyRetryAfter = 0, "", ""
	classifyTransport, classifyMessage = "", ""
}

func TestFailureFromFlags(t *testing.T) {
	t.Cleanup(resetClassifyFlags)

	resetClassifyFlags()
	classifyStatus = 429
	classifyRetryAfter = "7"
	err, buildErr := failureFromFlags()
	if buildErr != nil {
		t.Fatalf("unexpected error: %v", buildErr)
	}
	var respErr *domain.ResponseError
	if !errors.As(err, &respErr) || respErr.Header.Get("Retry-After") != "7" {
		t.Errorf("expected response error with Retry-After, got %#v", err)
	}

	resetClassifyFlags()
	classifyTransport = domain.TransportTimedOut
	err, _ = failureFromFlags()
	var reqErr *domain.RequestError
	if !errors.As(err, &reqErr) || reqErr.Code != domain.TransportTimedOut {
		t.Errorf("expected request error, got %#v", err)
	}

	resetClassifyFlags()
	if _, buildErr := failureFromFlags(); buildErr == nil {
		t.Error("expected error when no flag is set")
	}
}
