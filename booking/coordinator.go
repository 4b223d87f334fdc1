/*
coordinator.go - Appointment-completion orchestration

PURPOSE:
  When an owner marks an appointment Completed, the coordinator locates
  the matching active sale for that customer and service and asks the
  SessionRecorder to consume exactly one session. It also guards booking:
  a customer cannot plan more future appointments for a service than
  sessions remain on their packages.

CLIENT RESOLUTION:
  Appointments carry an optional explicit ClientID link; that is the
  target design and is tried first. Legacy and walk-in records fall back
  to matching the first-name token of the free-text customer name against
  client names (substring, first match wins). The fallback can
  misattribute same-named customers and exists only for compatibility.

SOFTENED FAILURE:
  The status change is the primary fact. If session consumption fails
  (for example the race on the last session is lost), the appointment
  stays Completed and the response reports that no session was consumed.
  This is the one place an error is deliberately swallowed.

SEE ALSO:
  - recorder.go: the consumption it delegates to
  - ledger.go: sale lookups
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Coordinator orchestrates appointment lifecycle against the sale ledger
// and session recorder.
type Coordinator struct {
	store    Store
	recorder *SessionRecorder

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewCoordinator(store Store, recorder *SessionRecorder) *Coordinator {
	return &Coordinator{store: store, recorder: recorder, Now: time.Now}
}

// =============================================================================
// INPUTS / RESULTS
// =============================================================================

// CreateAppointmentInput is the already-validated booking request.
type CreateAppointmentInput struct {
	ClientID        *string // explicit link, preferred
	CustomerName    string
	ServiceID       string
	StaffID         *string
	AppointmentDate time.Time
	Notes           string
}

// StatusChangeResult reports a status transition and whether a session
// was consumed as part of it.
type StatusChangeResult struct {
	Appointment Appointment
	SessionUsed bool
	Message     string
}

// =============================================================================
// BOOKING - Capacity check at creation time
// =============================================================================

// CreateAppointment books a Planned appointment. If the customer resolves
// to clients with active packages for the service, the count of already
// planned upcoming appointments must stay below the maximum remaining
// sessions; otherwise the booking is rejected with CapacityExceeded.
// Walk-ins with no matching package book unrestricted.
func (c *Coordinator) CreateAppointment(ctx context.Context, accountID string, in CreateAppointmentInput) (*Appointment, error) {
	service, err := c.store.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if service == nil {
		return nil, &NotFoundError{Kind: "service", ID: in.ServiceID}
	}
	if service.AccountID != accountID {
		return nil, &ForbiddenError{Kind: "service", ID: in.ServiceID, AccountID: accountID}
	}

	if err := c.checkCapacity(ctx, accountID, in); err != nil {
		return nil, err
	}

	// Staff assignment follows the best-effort policy here too: a bad
	// staff reference never blocks the booking.
	staffID := c.recorder.resolveStaff(ctx, accountID, in.StaffID)

	appt := Appointment{
		ID:              NewID(),
		AccountID:       accountID,
		ClientID:        in.ClientID,
		CustomerName:    in.CustomerName,
		ServiceID:       in.ServiceID,
		StaffID:         staffID,
		AppointmentDate: in.AppointmentDate,
		Status:          AppointmentPlanned,
		Notes:           in.Notes,
		CreatedAt:       c.Now(),
	}

	if err := c.store.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	return &appt, nil
}

// checkCapacity rejects a booking when the customer already has as many
// upcoming planned appointments for the service as sessions remain.
func (c *Coordinator) checkCapacity(ctx context.Context, accountID string, in CreateAppointmentInput) error {
	candidates, err := c.resolveCandidates(ctx, accountID, in.ClientID, in.CustomerName)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil // walk-in, unrestricted
	}

	maxRemaining := 0
	for _, client := range candidates {
		sales, err := c.store.ListSalesByClient(ctx, client.ID)
		if err != nil {
			return fmt.Errorf("list client sales: %w", err)
		}
		for _, sale := range sales {
			if sale.ServiceID == in.ServiceID && sale.RemainingSessions > maxRemaining {
				maxRemaining = sale.RemainingSessions
			}
		}
	}
	if maxRemaining == 0 {
		return nil // no active package for this service
	}

	upcoming, err := c.store.ListUpcomingPlanned(ctx, accountID, c.Now(), in.CustomerName, in.ServiceID)
	if err != nil {
		return fmt.Errorf("list upcoming appointments: %w", err)
	}
	if len(upcoming) >= maxRemaining {
		return &CapacityError{
			CustomerName: in.CustomerName,
			ServiceID:    in.ServiceID,
			Planned:      len(upcoming),
			Remaining:    maxRemaining,
		}
	}
	return nil
}

// =============================================================================
// COMPLETION - Status transition with best-effort consumption
// =============================================================================

// UpdateStatus transitions the appointment and, on Completed, attempts to
// consume one session from the first matching active sale. Consumption
// failure softens into a success response; the status change stands.
func (c *Coordinator) UpdateStatus(ctx context.Context, accountID, appointmentID string, status AppointmentStatus) (*StatusChangeResult, error) {
	if !ValidAppointmentStatus(status) {
		return nil, &InvalidInputError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	appt, err := c.resolveAppointment(ctx, accountID, appointmentID)
	if err != nil {
		return nil, err
	}

	appt.Status = status
	if err := c.store.UpdateAppointment(ctx, *appt); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	result := &StatusChangeResult{
		Appointment: *appt,
		Message:     fmt.Sprintf("appointment status updated to %s", status),
	}
	if status != AppointmentCompleted {
		return result, nil
	}

	used, err := c.consumeForAppointment(ctx, accountID, *appt)
	if err != nil {
		// Swallowed on purpose: completion is the primary fact.
		log.Printf("session consumption failed for appointment %s: %v", appt.ID, err)
		result.Message = fmt.Sprintf("appointment status updated to %s, but session consumption failed", status)
		return result, nil
	}
	if used {
		result.SessionUsed = true
		result.Message = fmt.Sprintf("appointment status updated to %s and 1 session consumed", status)
	}
	return result, nil
}

// consumeForAppointment finds the first active sale across candidate
// clients (candidate order, then sale order - first match wins, not best
// match) and consumes one session from it.
func (c *Coordinator) consumeForAppointment(ctx context.Context, accountID string, appt Appointment) (bool, error) {
	candidates, err := c.resolveCandidates(ctx, accountID, appt.ClientID, appt.CustomerName)
	if err != nil {
		return false, err
	}

	for _, client := range candidates {
		sales, err := c.store.ListSalesByClient(ctx, client.ID)
		if err != nil {
			return false, fmt.Errorf("list client sales: %w", err)
		}
		for _, sale := range sales {
			if sale.ServiceID != appt.ServiceID || sale.RemainingSessions <= 0 {
				continue
			}
			_, err := c.recorder.UseSession(ctx, accountID, UseSessionInput{
				SaleID:  sale.ID,
				StaffID: appt.StaffID,
			})
			if err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// resolveCandidates returns the clients an appointment may belong to:
// the explicit link when present, otherwise the name-matching fallback.
func (c *Coordinator) resolveCandidates(ctx context.Context, accountID string, clientID *string, customerName string) ([]Client, error) {
	if clientID != nil && *clientID != "" {
		client, err := c.store.GetClient(ctx, *clientID)
		if err != nil {
			return nil, fmt.Errorf("get client: %w", err)
		}
		if client != nil && client.AccountID == accountID {
			return []Client{*client}, nil
		}
		// Broken link; fall through to name matching.
	}

	first := FirstNameToken(customerName)
	if first == "" {
		return nil, nil
	}
	clients, err := c.store.SearchClientsByName(ctx, accountID, first)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return clients, nil
}

// =============================================================================
// APPOINTMENT READS AND EDITS - Supporting operations
// =============================================================================

// GetAppointment returns a tenant-checked appointment.
func (c *Coordinator) GetAppointment(ctx context.Context, accountID, appointmentID string) (*Appointment, error) {
	return c.resolveAppointment(ctx, accountID, appointmentID)
}

// AppointmentsByAccount lists the account's appointments, date ascending.
func (c *Coordinator) AppointmentsByAccount(ctx context.Context, accountID string) ([]Appointment, error) {
	return c.store.ListAppointmentsByAccount(ctx, accountID)
}

// AppointmentsByDate lists the account's appointments on a calendar day.
func (c *Coordinator) AppointmentsByDate(ctx context.Context, accountID string, day time.Time) ([]Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return c.store.ListAppointmentsBetween(ctx, accountID, start, end)
}

// UpcomingAppointments lists Planned appointments at or after now.
func (c *Coordinator) UpcomingAppointments(ctx context.Context, accountID string) ([]Appointment, error) {
	return c.store.ListUpcomingPlanned(ctx, accountID, c.Now(), "", "")
}

// UpdateAppointment applies an explicit patch to an appointment.
func (c *Coordinator) UpdateAppointment(ctx context.Context, accountID, appointmentID string, patch AppointmentPatch) (*Appointment, error) {
	appt, err := c.resolveAppointment(ctx, accountID, appointmentID)
	if err != nil {
		return nil, err
	}
	patch.Apply(appt)
	if err := c.store.UpdateAppointment(ctx, *appt); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return appt, nil
}

// DeleteAppointment removes an appointment.
func (c *Coordinator) DeleteAppointment(ctx context.Context, accountID, appointmentID string) error {
	if _, err := c.resolveAppointment(ctx, accountID, appointmentID); err != nil {
		return err
	}
	return c.store.DeleteAppointment(ctx, appointmentID)
}

func (c *Coordinator) resolveAppointment(ctx context.Context, accountID, appointmentID string) (*Appointment, error) {
	appt, err := c.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: appointmentID}
	}
	if appt.AccountID != accountID {
		return nil, &ForbiddenError{Kind: "appointment", ID: appointmentID, AccountID: accountID}
	}
	return appt, nil
}
