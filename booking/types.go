/*
Package booking provides the core sale/session consumption engine.

PURPOSE:
  This package contains the domain types and algorithms for the
  session-and-sale subsystem: purchased service packages ("sales") with a
  finite remaining-session counter, payments applied against them, session
  usage records, and the coordination that ties a completed appointment to
  a package deduction.

KEY CONCEPTS IN THIS FILE (types.go):
  - Sale: a purchased service package with RemainingSessions >= 0
  - Payment: an immutable monetary amount applied toward a Sale
  - SessionRecord: evidence that one unit of a Sale was consumed
  - Appointment: a scheduled visit, distinct from a SessionRecord
  - Client/Service/Staff/Account: tenant-scoped reference records

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money to avoid floating-point errors
  2. Explicit patches: Partial updates are typed structs, never key inspection
  3. Tenancy: Every record is scoped to one account, directly or via its Client

SEE ALSO:
  - errors.go: Error taxonomy
  - ledger.go: Sale and payment operations
  - recorder.go: Atomic session consumption
  - coordinator.go: Appointment-completion orchestration
*/
package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NewID returns a fresh opaque identifier for any entity.
func NewID() string {
	return uuid.NewString()
}

// Principal is the verified caller identity issued by the external auth
// layer. The core trusts it and never re-verifies credentials.
type Principal struct {
	UserID    string
	Role      string
	AccountID string
}

// =============================================================================
// ENUMS
// =============================================================================

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "Cash"
	PaymentCreditCard PaymentMethod = "CreditCard"
	PaymentTransfer   PaymentMethod = "Transfer"
	PaymentOther      PaymentMethod = "Other"
)

// ValidPaymentMethod reports whether m is one of the known methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "Scheduled"
	SessionCompleted SessionStatus = "Completed"
	SessionMissed    SessionStatus = "Missed"
)

type AppointmentStatus string

const (
	AppointmentPlanned   AppointmentStatus = "Planned"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// ValidAppointmentStatus reports whether s is one of the known statuses.
func ValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentPlanned, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// =============================================================================
// REFERENCE RECORDS - Owned by external CRUD, read-only for this core
// =============================================================================

// Account is a tenant (single business).
type Account struct {
	ID           string
	BusinessName string
	CreatedAt    time.Time
}

type Client struct {
	ID        string
	AccountID string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// FullName joins first and last name for display and name matching.
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Service struct {
	ID           string
	AccountID    string
	ServiceName  string
	Price        decimal.Decimal
	SessionCount int
	IsActive     bool
	CreatedAt    time.Time
}

type Staff struct {
	ID        string
	AccountID string
	FullName  string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

// =============================================================================
// SALE - A purchased service package
// =============================================================================

// Sale represents a purchased service package. RemainingSessions is never
// negative; it is decremented only by the SessionRecorder or corrected via
// an explicit administrative patch.
type Sale struct {
	ID                string
	ClientID          string
	ServiceID         string
	SaleDate          time.Time
	RemainingSessions int
	CreatedAt         time.Time
}

// SalePatch is an explicit partial update for administrative corrections.
// Nil fields are left untouched. Bypasses the consumption invariant.
type SalePatch struct {
	SaleDate          *time.Time
	RemainingSessions *int
}

// Apply copies the present fields of the patch onto the sale.
func (p SalePatch) Apply(s *Sale) {
	if p.SaleDate != nil {
		s.SaleDate = *p.SaleDate
	}
	if p.RemainingSessions != nil {
		s.RemainingSessions = *p.RemainingSessions
	}
}

// SaleDetail is a Sale joined with its reference records and payments,
// as returned by read operations for display.
type SaleDetail struct {
	Sale     Sale
	Client   Client
	Service  Service
	Payments []Payment
}

// TotalPaid sums all payment amounts on the sale.
func (d SaleDetail) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}

// RemainingAmount is price minus total paid. May be negative (overpayment
// is recorded, not blocked).
func (d SaleDetail) RemainingAmount() decimal.Decimal {
	return d.Service.Price.Sub(d.TotalPaid())
}

// RemainingSessionsEntry is one row of a client's active-package summary.
type RemainingSessionsEntry struct {
	SaleID            string
	ServiceName       string
	RemainingSessions int
}

// =============================================================================
// PAYMENT - Immutable once created
// =============================================================================

type Payment struct {
	ID          string
	SaleID      string
	AmountPaid  decimal.Decimal
	Method      PaymentMethod
	Notes       string
	PaymentDate time.Time
}

// =============================================================================
// SESSION RECORD - One unit of a Sale's package consumed
// =============================================================================

// SessionRecord is created only when the referenced Sale had
// RemainingSessions > 0 at the moment of consumption. The consumption
// subsystem only ever writes status Completed.
type SessionRecord struct {
	ID          string
	SaleID      string
	StaffID     *string
	SessionDate time.Time
	Status      SessionStatus
	Notes       string
	CreatedAt   time.Time
}

// SessionFilter narrows ListSessions results. Zero values mean "no filter".
type SessionFilter struct {
	From      *time.Time
	To        *time.Time
	StaffID   string
	Status    SessionStatus
	SaleID    string
	ServiceID string
}

// SessionDetail is a SessionRecord joined with its staff, client and
// service for display.
type SessionDetail struct {
	Session SessionRecord
	Staff   *Staff
	Client  Client
	Service Service
}

// =============================================================================
// APPOINTMENT - Scheduled visit, read by the coordinator
// =============================================================================

// Appointment carries an optional explicit ClientID link. CustomerName is
// free text; name matching against clients is a compatibility fallback for
// records created without the link.
type Appointment struct {
	ID              string
	AccountID       string
	ClientID        *string
	CustomerName    string
	ServiceID       string
	StaffID         *string
	AppointmentDate time.Time
	Status          AppointmentStatus
	Notes           string
	CreatedAt       time.Time
}

// AppointmentPatch is an explicit partial update for appointment edits.
type AppointmentPatch struct {
	CustomerName    *string
	ServiceID       *string
	StaffID         *string
	AppointmentDate *time.Time
	Notes           *string
}

// Apply copies the present fields of the patch onto the appointment.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.CustomerName != nil {
		a.CustomerName = *p.CustomerName
	}
	if p.ServiceID != nil {
		a.ServiceID = *p.ServiceID
	}
	if p.StaffID != nil {
		a.StaffID = p.StaffID
	}
	if p.AppointmentDate != nil {
		a.AppointmentDate = *p.AppointmentDate
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}

// FirstNameToken splits a free-text customer name the way the booking flow
// expects: everything before the last space is the first name, the last
// word is the surname. A single word is all first name.
func FirstNameToken(customerName string) string {
	name := strings.TrimSpace(customerName)
	parts := strings.Fields(name)
	if len(parts) <= 1 {
		return name
	}
	return strings.Join(parts[:len(parts)-1], " ")
}
