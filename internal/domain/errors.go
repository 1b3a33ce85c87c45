package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrExhausted            = errors.New("purchase attempts exhausted")
	ErrPermanentAPI         = errors.New("permanent telegram api error")
	ErrTransientNetwork     = errors.New("transient network error")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrNoRefundableDeposits = errors.New("no refundable deposits")
	ErrConcurrentUpdate     = errors.New("account modified concurrently")
)

// RateLimitedError carries the server-specified wait from a flood-wait
// response. The purchase executor sleeps exactly that long and retries.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
