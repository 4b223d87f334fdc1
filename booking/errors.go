/*
errors.go - Centralized error types for the booking core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is; structured errors carry context and
  unwrap to the sentinels.

ERROR CATEGORIES:
  1. Resolution errors - referenced record does not exist (NotFound)
  2. Tenancy errors    - record exists but belongs to another account (Forbidden)
  3. Input errors      - malformed fields, unknown enum values
  4. Invariant errors  - no sessions remaining, booking capacity exceeded

TENANCY POLICY:
  Cross-tenant access is uniformly Forbidden, never NotFound. One policy,
  applied everywhere.

SEE ALSO:
  - ledger.go, recorder.go, coordinator.go: producers of these errors
  - api/handlers.go: maps them to HTTP statuses
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced Sale, Client, Service,
	// Staff or Appointment id does not resolve.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when a resolved record belongs to a
	// different account than the caller's.
	ErrForbidden = errors.New("record belongs to another account")

	// ErrInvalidInput is returned for malformed fields and unknown enum
	// values (payment method, appointment status, non-positive amounts).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSessionsRemaining is returned when UseSession is invoked on a
	// sale whose counter is already zero.
	ErrNoSessionsRemaining = errors.New("no sessions remaining")

	// ErrCapacityExceeded is returned when a booking would exceed the
	// remaining sessions for that customer and service.
	ErrCapacityExceeded = errors.New("booking capacity exceeded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which record failed to resolve.
type NotFoundError struct {
	Kind string // "sale", "client", "service", "staff", "appointment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError identifies a cross-tenant access attempt.
type ForbiddenError struct {
	Kind      string
	ID        string
	AccountID string // the caller's account
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s %s does not belong to account %s", e.Kind, e.ID, e.AccountID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NoSessionsError reports a consumption attempt on an exhausted sale.
type NoSessionsError struct {
	SaleID string
}

func (e *NoSessionsError) Error() string {
	return fmt.Sprintf("sale %s has no sessions remaining", e.SaleID)
}

func (e *NoSessionsError) Unwrap() error { return ErrNoSessionsRemaining }

// CapacityError reports how many appointments are already planned against
// how many sessions remain.
type CapacityError struct {
	CustomerName string
	ServiceID    string
	Planned      int
	Remaining    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("customer %q already has %d planned appointments for %d remaining sessions",
		e.CustomerName, e.Planned, e.Remaining)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a violated business rule, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNoSessionsRemaining) ||
		errors.Is(err, ErrCapacityExceeded)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true if the error indicates a cross-tenant access.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
