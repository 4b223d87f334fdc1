/*
recorder.go - Atomic session consumption

PURPOSE:
  The SessionRecorder is the ONLY component allowed to decrement a sale's
  RemainingSessions through normal operation. It creates the session-usage
  record and decrements the counter as one unit.

CRITICAL INVARIANTS:
  1. A session record is created only when the sale had
     RemainingSessions > 0 at the moment of consumption.
  2. Session insert and counter decrement commit together or not at all.
  3. Two concurrent consumptions of a sale with one session left cannot
     both succeed; the counter never goes below zero.

STAFF POLICY:
  Best effort. An unknown staff id, or one belonging to another account,
  is silently dropped and the session is recorded without attribution.
  Session consumption is never blocked by a staff-assignment data problem.

SEE ALSO:
  - store.go: ConsumeSession, the store-level atomic operation
  - coordinator.go: the appointment-completion caller
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultSessionNotes is written when a consumption carries no notes.
const DefaultSessionNotes = "session completed"

// SessionRecorder owns creation of session-usage records and the
// decrement of a sale's remaining count.
type SessionRecorder struct {
	store Store

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewSessionRecorder(store Store) *SessionRecorder {
	return &SessionRecorder{store: store, Now: time.Now}
}

// UseSessionInput is the already-validated request to consume one session.
type UseSessionInput struct {
	SaleID      string
	StaffID     *string    // nil or unresolvable = unattributed
	SessionDate *time.Time // nil = now
	Notes       string     // empty = DefaultSessionNotes
}

// UseSessionResult carries both effects of a successful consumption.
type UseSessionResult struct {
	Sale    Sale
	Session SessionRecord
}

// UseSession consumes exactly one session of the sale's package.
//
// Preconditions: the sale exists and belongs to the caller's account, and
// RemainingSessions > 0. The remaining check is re-verified inside the
// store transaction that performs the decrement, so a concurrent caller
// racing on the last session loses with ErrNoSessionsRemaining and leaves
// no partial state.
func (r *SessionRecorder) UseSession(ctx context.Context, accountID string, in UseSessionInput) (*UseSessionResult, error) {
	sale, err := r.store.GetSale(ctx, in.SaleID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, &NotFoundError{Kind: "sale", ID: in.SaleID}
	}

	client, err := r.store.GetClient(ctx, sale.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil || client.AccountID != accountID {
		return nil, &ForbiddenError{Kind: "sale", ID: in.SaleID, AccountID: accountID}
	}

	// Early exit for the common exhausted case; the store re-checks this
	// inside the transaction.
	if sale.RemainingSessions <= 0 {
		return nil, &NoSessionsError{SaleID: in.SaleID}
	}

	staffID := r.resolveStaff(ctx, accountID, in.StaffID)

	sessionDate := r.Now()
	if in.SessionDate != nil {
		sessionDate = *in.SessionDate
	}
	notes := in.Notes
	if notes == "" {
		notes = DefaultSessionNotes
	}

	rec := SessionRecord{
		ID:          NewID(),
		SaleID:      in.SaleID,
		StaffID:     staffID,
		SessionDate: sessionDate,
		Status:      SessionCompleted,
		Notes:       notes,
		CreatedAt:   r.Now(),
	}

	updated, err := r.store.ConsumeSession(ctx, in.SaleID, rec)
	if err != nil {
		return nil, err
	}
	return &UseSessionResult{Sale: *updated, Session: rec}, nil
}

// ListSessions returns the account's session records narrowed by the
// filter. Read-only; identical store state yields identical results.
func (r *SessionRecorder) ListSessions(ctx context.Context, accountID string, f SessionFilter) ([]SessionDetail, error) {
	sessions, err := r.store.ListSessions(ctx, accountID, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// resolveStaff applies the best-effort staff policy: a missing or
// cross-tenant staff record degrades to nil rather than failing.
func (r *SessionRecorder) resolveStaff(ctx context.Context, accountID string, staffID *string) *string {
	if staffID == nil || *staffID == "" {
		return nil
	}
	staff, err := r.store.GetStaff(ctx, *staffID)
	if err != nil || staff == nil {
		log.Printf("staff %s not found, recording session unattributed", *staffID)
		return nil
	}
	if staff.AccountID != accountID {
		log.Printf("staff %s belongs to another account, recording session unattributed", *staffID)
		return nil
	}
	return staffID
}
