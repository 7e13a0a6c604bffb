package oci

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Configuration errors. These are never transient: retrying without fixing
// the tenant configuration cannot succeed.
var (
	// ErrKeyNotFound is returned when the private key file cannot be read.
	ErrKeyNotFound = errors.New("private key not found")
	// ErrInvalidKey is returned when the key file does not contain a well-formed RSA private key.
	ErrInvalidKey = errors.New("invalid private key")
	// ErrSigningFailed is returned when the cryptographic signing operation itself fails.
	ErrSigningFailed = errors.New("request signing failed")
)

// ErrDecode is wrapped by errors returned when a response body could not be
// parsed as the expected JSON structure.
var ErrDecode = errors.New("malformed response body")

// APIError is a non-2xx response from the provider. The raw body text is
// preserved so that callers can match on provider error codes.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api call failed with status %d: %s", e.StatusCode, e.Body)
}

// TooManyRequests reports whether this error is a rate-limit signal.
// The provider does not reliably use status 429 for throttling, hence the
// body fallback.
func (e *APIError) TooManyRequests() bool {
	return e.StatusCode == http.StatusTooManyRequests || strings.Contains(e.Body, "TooManyRequests")
}

// OutOfCapacity reports whether the provider rejected a creation because the
// availability domain has no free hosts for the requested shape.
func (e *APIError) OutOfCapacity() bool {
	return e.StatusCode == http.StatusInternalServerError && strings.Contains(e.Body, "Out of host capacity")
}

// RateLimitedError is returned when instance creation is blocked by the
// provider's rate limiting, either preemptively (the waiter's cooldown window
// has not elapsed, Err is nil) or reactively (the provider answered with a
// throttle response, Err is the underlying *APIError).
type RateLimitedError struct {
	RetryIn time.Duration
	Err     error
}

func (e *RateLimitedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited by provider: %v", e.Err)
	}
	return fmt.Sprintf("rate limited: retry in %s", e.RetryIn)
}

func (e *RateLimitedError) Unwrap() error {
	return e.Err
}
