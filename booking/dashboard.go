/*
dashboard.go - Read-only statistics over sales, payments and appointments

PURPOSE:
  Derives owner dashboard numbers by scanning the stores. A consumer, not
  a mutator: no caching, fully recomputed per call, and never double
  counts a payment or appointment.

WINDOWS:
  - Appointment counts: trailing 30 days
  - Revenue: all-time, plus today
  - Monthly breakdown: January through the current month of this year
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard computes read-only statistics for one account.
type Dashboard struct {
	store Store

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewDashboard(store Store) *Dashboard {
	return &Dashboard{store: store, Now: time.Now}
}

// MonthStats is one month's appointment status breakdown.
type MonthStats struct {
	Name      string
	Completed int
	Pending   int
	Cancelled int
}

// Stats is the aggregate dashboard payload.
type Stats struct {
	TotalAppointments     int
	CompletedAppointments int
	CancelledAppointments int
	PendingAppointments   int
	TotalCustomers        int
	NewCustomersToday     int
	TotalRevenue          decimal.Decimal
	TodayRevenue          decimal.Decimal
	MonthlyAppointments   []MonthStats
}

// GetStats recomputes the full dashboard for the account.
func (d *Dashboard) GetStats(ctx context.Context, accountID string) (*Stats, error) {
	now := d.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thirtyDaysAgo := today.AddDate(0, 0, -30)
	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	// The window has a lower bound only: planned future appointments count.
	appointments, err := d.store.ListAppointmentsSince(ctx, accountID, thirtyDaysAgo)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	stats := &Stats{
		TotalAppointments: len(appointments),
		TotalRevenue:      decimal.Zero,
		TodayRevenue:      decimal.Zero,
	}
	for _, a := range appointments {
		switch a.Status {
		case AppointmentCompleted:
			stats.CompletedAppointments++
		case AppointmentCancelled:
			stats.CancelledAppointments++
		case AppointmentPlanned:
			stats.PendingAppointments++
		}
	}

	stats.TotalCustomers, err = d.store.CountClients(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	stats.NewCustomersToday, err = d.store.CountClientsCreatedSince(ctx, accountID, today)
	if err != nil {
		return nil, fmt.Errorf("count new clients: %w", err)
	}

	payments, err := d.store.ListPaymentsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		stats.TotalRevenue = stats.TotalRevenue.Add(p.AmountPaid)
		if !p.PaymentDate.Before(today) {
			stats.TodayRevenue = stats.TodayRevenue.Add(p.AmountPaid)
		}
	}

	stats.MonthlyAppointments, err = d.monthlyBreakdown(ctx, accountID, startOfYear, now)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// monthlyBreakdown counts appointment statuses per month, January through
// the current month.
func (d *Dashboard) monthlyBreakdown(ctx context.Context, accountID string, startOfYear, now time.Time) ([]MonthStats, error) {
	months := []MonthStats{}
	for m := time.January; m <= now.Month(); m++ {
		start := time.Date(startOfYear.Year(), m, 1, 0, 0, 0, 0, startOfYear.Location())
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

		appointments, err := d.store.ListAppointmentsBetween(ctx, accountID, start, end)
		if err != nil {
			return nil, fmt.Errorf("list appointments for %s: %w", m, err)
		}

		ms := MonthStats{Name: start.Format("January")}
		for _, a := range appointments {
			switch a.Status {
			case AppointmentCompleted:
				ms.Completed++
			case AppointmentCancelled:
				ms.Cancelled++
			case AppointmentPlanned:
				ms.Pending++
			}
		}
		months = append(months, ms)
	}
	return months, nil
}
