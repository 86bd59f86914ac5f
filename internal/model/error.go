package model

import (
	"errors"
	"fmt"
)

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ValidationError reports malformed caller input (zero amount, bad address,
// empty wallet set). Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// KeyDerivationError reports a failed or unsupported key derivation.
type KeyDerivationError struct {
	Method  string
	Message string
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("key derivation (%s) failed: %s", e.Method, e.Message)
}

// CryptoError reports an AEAD failure. The message is deliberately uniform
// for tag-verification failures: callers cannot tell wrong-key from
// tampered-data apart from this error.
type CryptoError struct {
	Message string
}

func (e *CryptoError) Error() string {
	return "crypto: " + e.Message
}

// RateLimitExceededError reports a rejected request due to a full window.
type RateLimitExceededError struct {
	ClientID string
	Category string
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (%s)", e.ClientID, e.Category)
}

// PolicyViolationError reports a transfer rejected by the address policy.
type PolicyViolationError struct {
	Rule    string // "ban", "whitelist", "blacklist", "daily_volume"
	Address string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("transfer rejected by %s policy (address %s)", e.Rule, e.Address)
}

// NetworkError marks a transient transport/RPC failure. This is the only
// error class the submitter retries.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SubmissionError reports a relay or RPC rejection: non-success transport
// status, malformed response, or an explicit JSON-RPC error object.
type SubmissionError struct {
	Message string
}

func (e *SubmissionError) Error() string {
	return "submission failed: " + e.Message
}

// PartialFailureError reports a multi-leg operation where some but not all
// legs completed. Completed work is never discarded: callers read the
// surrounding result record for what did land.
type PartialFailureError struct {
	Completed int
	Total     int
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure: %d/%d legs completed: %v", e.Completed, e.Total, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient network failure that the
// retry policy may re-attempt. Validation, crypto, policy and relay
// rejections are final.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
