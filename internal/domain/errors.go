package domain

import "errors"

// Rejection errors are final: the order transitions to REJECTED and is never
// retried automatically.
var (
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrPositionSizeExceeded = errors.New("position size exceeds limit")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrNoSuchPosition       = errors.New("no open position")
)

// ErrQuoteUnavailable is transient: the order stays NEW and is retried on the
// next cycle. Storage I/O failures are wrapped and treated the same way.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Invariant violations indicate a risk-gate bypass or corrupted state. They
// halt automatic trading until inspected.
var (
	ErrUnknownPosition = errors.New("fill references untracked position")
	ErrNegativeCash    = errors.New("cash balance went negative")
)

// ErrCycleInProgress is returned when a cycle is requested while a previous
// one is still running.
var ErrCycleInProgress = errors.New("cycle already in progress")

// ErrTradingHalted is returned when a cycle is requested after an invariant
// violation stopped automatic trading.
var ErrTradingHalted = errors.New("trading halted after invariant violation")

// IsRejection reports whether err belongs to the final rejection family.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientCash) ||
		errors.Is(err, ErrPositionSizeExceeded) ||
		errors.Is(err, ErrInsufficientShares) ||
		errors.Is(err, ErrNoSuchPosition)
}

// IsFatal reports whether err is an invariant violation that must stop
// automatic trading.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnknownPosition) || errors.Is(err, ErrNegativeCash)
}
