package apperrors

import (
	"context"
	"errors"
	"net"
)

// Standardized collaborator errors
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrOrderRejected        = errors.New("order rejected")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrNetwork              = errors.New("network error")
	ErrInvalidSymbol        = errors.New("invalid symbol")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrServerUnavailable    = errors.New("server unavailable")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidOrderParam    = errors.New("invalid order parameter")
	ErrIndicatorUnavailable = errors.New("indicator unavailable")
)

// IsTransient reports whether an error is expected to succeed on retry.
// Network failures, rate limiting, and server-side outages are transient;
// bad credentials, malformed requests, and business rejections are fatal
// and must not consume retry attempts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrInvalidOrderParam) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrOrderRejected) ||
		errors.Is(err, ErrInvalidSymbol) {
		return false
	}
	if errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrServerUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// IsFatal is the complement of IsTransient for non-nil errors.
func IsFatal(err error) bool {
	return err != nil && !IsTransient(err)
}
