/*
store.go - Persistence interfaces for the booking core

PURPOSE:
  Defines the interface between the domain logic and the database. The
  store is an explicitly constructed, passed-in handle with a defined
  connect/close lifecycle - never ambient global state.

KEY INTERFACES:
  ReferenceStore:   Read access to Client/Service/Staff/Account records
  SaleStore:        Sales and payments
  SessionStore:     Session records and the atomic consume operation
  AppointmentStore: Appointments
  DashboardStore:   Read-only aggregate queries
  Store:            All of the above on a single handle

ATOMIC CONSUMPTION:
  ConsumeSession performs the session insert and the conditional decrement
  of Sale.RemainingSessions in one transaction. Two concurrent calls on a
  sale with one session left must not both succeed; the loser observes
  ErrNoSessionsRemaining and no session row is written.

CASCADE DELETE:
  DeleteSaleCascade removes payments, sessions and the sale itself in a
  single transaction so a partial failure never leaves orphaned rows.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite; the same SQL applies to PostgreSQL
    with minor dialect changes.
*/
package booking

import (
	"context"
	"time"
)

// =============================================================================
// REFERENCE STORE - External-owned records, read by the core
// =============================================================================

// ReferenceStore reads (and for seeding, writes) tenant reference records.
// Get methods return (nil, nil) when the record does not exist; callers
// translate that into NotFoundError with their own context.
type ReferenceStore interface {
	SaveAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)

	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	// SearchClientsByName returns clients of the account whose first or
	// last name contains the term (substring match).
	SearchClientsByName(ctx context.Context, accountID, term string) ([]Client, error)

	SaveService(ctx context.Context, s Service) error
	GetService(ctx context.Context, id string) (*Service, error)

	SaveStaff(ctx context.Context, s Staff) error
	GetStaff(ctx context.Context, id string) (*Staff, error)
}

// =============================================================================
// SALE STORE - Sales and payments
// =============================================================================

type SaleStore interface {
	SaveSale(ctx context.Context, s Sale) error
	GetSale(ctx context.Context, id string) (*Sale, error)
	// ListSalesByAccount returns the account's sales ordered by sale date
	// descending.
	ListSalesByAccount(ctx context.Context, accountID string) ([]Sale, error)
	ListSalesByClient(ctx context.Context, clientID string) ([]Sale, error)
	// UpdateSale overwrites the mutable columns of an existing sale.
	UpdateSale(ctx context.Context, s Sale) error
	// DeleteSaleCascade deletes the sale's payments and sessions, then the
	// sale, in one transaction.
	DeleteSaleCascade(ctx context.Context, saleID string) error

	SavePayment(ctx context.Context, p Payment) error
	ListPaymentsBySale(ctx context.Context, saleID string) ([]Payment, error)
}

// =============================================================================
// SESSION STORE - Session records and atomic consumption
// =============================================================================

type SessionStore interface {
	// ConsumeSession atomically inserts the session record and decrements
	// the sale's remaining counter, guarded by remaining_sessions > 0.
	// Returns the updated sale. Returns ErrNoSessionsRemaining (and writes
	// nothing) when the guard fails, ErrNotFound when the sale is gone.
	ConsumeSession(ctx context.Context, saleID string, rec SessionRecord) (*Sale, error)

	// ListSessions returns the account's session records (scoped via
	// Sale -> Client), newest first, narrowed by the filter.
	ListSessions(ctx context.Context, accountID string, f SessionFilter) ([]SessionDetail, error)
}

// =============================================================================
// APPOINTMENT STORE
// =============================================================================

type AppointmentStore interface {
	SaveAppointment(ctx context.Context, a Appointment) error
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointmentsByAccount(ctx context.Context, accountID string) ([]Appointment, error)
	// ListAppointmentsBetween returns appointments with a date in [from, to].
	ListAppointmentsBetween(ctx context.Context, accountID string, from, to time.Time) ([]Appointment, error)
	// ListAppointmentsSince returns appointments dated at or after since,
	// with no upper bound.
	ListAppointmentsSince(ctx context.Context, accountID string, since time.Time) ([]Appointment, error)
	// ListUpcomingPlanned returns Planned appointments at or after now,
	// optionally narrowed to an exact customer name and service.
	ListUpcomingPlanned(ctx context.Context, accountID string, now time.Time, customerName, serviceID string) ([]Appointment, error)
}

// =============================================================================
// DASHBOARD STORE - Read-only aggregate queries
// =============================================================================

type DashboardStore interface {
	CountClients(ctx context.Context, accountID string) (int, error)
	CountClientsCreatedSince(ctx context.Context, accountID string, since time.Time) (int, error)
	// ListPaymentsByAccount returns every payment whose sale belongs to
	// the account (joined Sale -> Client).
	ListPaymentsByAccount(ctx context.Context, accountID string) ([]Payment, error)
}

// =============================================================================
// STORE - Full persistence handle
// =============================================================================

// Store is the complete persistence surface used by the core. A single
// concrete handle implements all of it; components depend on the narrow
// interfaces above where possible.
type Store interface {
	ReferenceStore
	SaleStore
	SessionStore
	AppointmentStore
	DashboardStore
}
