package domain

import (
	"errors"
	"fmt"
	"time"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

var (
	// ErrLedgerNotFound is returned when no ledger matches the selector or id.
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrLedgerInactive is returned when the target ledger exists but no
	// longer accepts orders (competition ended, account closed).
	ErrLedgerInactive = errors.New("ledger inactive")

	// ErrInsufficientFunds is returned by the executor when free capital
	// cannot cover a buy. No mutation has happened.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings is returned by the executor when the held
	// quantity cannot cover a sell. No mutation has happened.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPriceUnavailable is returned when no quote exists for the order
	// symbol. Orders fill at the current quote, so nothing can execute.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrLedgerExists is returned when opening a ledger that the owner
	// already has (one Individual ledger per owner, one per competition).
	ErrLedgerExists = errors.New("ledger already exists")
)

// BusyError is returned when the ledger lock could not be acquired
// within the bounded wait. The order had no effect and may be retried.
type BusyError struct {
	LedgerID uint64
	Timeout  time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("ledger %d busy after %s", e.LedgerID, e.Timeout)
}

func (e *BusyError) IsRetriable() bool {
	return true
}

// ValidationError rejects malformed input before any lock or read.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// Throttle rule names, in evaluation order.
const (
	RuleCooldown      = "cooldown"
	RuleFrequency     = "frequency"
	RuleConcentration = "concentration"
	RuleDailyLoss     = "daily_loss"
)

// ThrottleDenied rejects an order before execution; the ledger was
// never touched. Rule names the first admission rule that failed.
type ThrottleDenied struct {
	Rule   string
	Reason string
}

func (e *ThrottleDenied) Error() string {
	return "throttled [" + e.Rule + "]: " + e.Reason
}

func (e *ThrottleDenied) IsRetriable() bool {
	// Throttle windows expire on their own; the caller may retry later.
	return true
}
