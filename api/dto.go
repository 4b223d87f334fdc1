/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts travel as decimal strings ("150.50"), never floats.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/huseyingedek/appointment-backend/booking"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateSaleRequest records a package sale.
type CreateSaleRequest struct {
	ClientID          string  `json:"client_id"`
	ServiceID         string  `json:"service_id"`
	RemainingSessions *int    `json:"remaining_sessions,omitempty"`
	SaleDate          *string `json:"sale_date,omitempty"` // RFC3339
}

// UpdateSaleRequest corrects a sale's date or counter.
type UpdateSaleRequest struct {
	SaleDate          *string `json:"sale_date,omitempty"`
	RemainingSessions *int    `json:"remaining_sessions,omitempty"`
}

// CreatePaymentRequest records a payment against a sale.
type CreatePaymentRequest struct {
	AmountPaid    string `json:"amount_paid"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

// UseSessionRequest consumes one session of a sale's package.
type UseSessionRequest struct {
	StaffID     *string `json:"staff_id,omitempty"`
	SessionDate *string `json:"session_date,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// CreateAppointmentRequest books a visit.
type CreateAppointmentRequest struct {
	ClientID        *string `json:"client_id,omitempty"`
	CustomerName    string  `json:"customer_name"`
	ServiceID       string  `json:"service_id"`
	StaffID         *string `json:"staff_id,omitempty"`
	AppointmentDate string  `json:"appointment_date"`
	Notes           string  `json:"notes,omitempty"`
}

// UpdateAppointmentRequest edits appointment fields.
type UpdateAppointmentRequest struct {
	CustomerName    *string `json:"customer_name,omitempty"`
	ServiceID       *string `json:"service_id,omitempty"`
	StaffID         *string `json:"staff_id,omitempty"`
	AppointmentDate *string `json:"appointment_date,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// UpdateStatusRequest transitions an appointment's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID                string        `json:"id"`
	ClientID          string        `json:"client_id"`
	ServiceID         string        `json:"service_id"`
	SaleDate          string        `json:"sale_date"`
	RemainingSessions int           `json:"remaining_sessions"`
	Client            *ClientDTO    `json:"client,omitempty"`
	Service           *ServiceDTO   `json:"service,omitempty"`
	Payments          []PaymentDTO  `json:"payments,omitempty"`
	TotalPaid         string        `json:"total_paid,omitempty"`
	RemainingAmount   string        `json:"remaining_amount,omitempty"`
}

type ClientDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

type ServiceDTO struct {
	ID           string `json:"id"`
	ServiceName  string `json:"service_name"`
	Price        string `json:"price"`
	SessionCount int    `json:"session_count"`
}

type StaffDTO struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

type PaymentDTO struct {
	ID            string `json:"id"`
	SaleID        string `json:"sale_id"`
	AmountPaid    string `json:"amount_paid"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
	PaymentDate   string `json:"payment_date"`
}

// PaymentSummaryDTO is a sale's payments with derived totals.
type PaymentSummaryDTO struct {
	Success         bool         `json:"success"`
	SaleID          string       `json:"sale_id"`
	Payments        []PaymentDTO `json:"payments"`
	TotalPaid       string       `json:"total_paid"`
	RemainingAmount string       `json:"remaining_amount"`
}

type SessionDTO struct {
	ID          string      `json:"id"`
	SaleID      string      `json:"sale_id"`
	SessionDate string      `json:"session_date"`
	Status      string      `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	Staff       *StaffDTO   `json:"staff,omitempty"`
	Client      *ClientDTO  `json:"client,omitempty"`
	Service     *ServiceDTO `json:"service,omitempty"`
}

// UseSessionResponse reports a successful consumption.
type UseSessionResponse struct {
	Success           bool       `json:"success"`
	Message           string     `json:"message"`
	SaleID            string     `json:"sale_id"`
	RemainingSessions int        `json:"remaining_sessions"`
	SessionRecord     SessionDTO `json:"session_record"`
}

// RemainingSessionsDTO is one row of a client's active-package summary.
type RemainingSessionsDTO struct {
	SaleID            string `json:"sale_id"`
	ServiceName       string `json:"service_name"`
	RemainingSessions int    `json:"remaining_sessions"`
}

type AppointmentDTO struct {
	ID              string  `json:"id"`
	ClientID        *string `json:"client_id,omitempty"`
	CustomerName    string  `json:"customer_name"`
	ServiceID       string  `json:"service_id"`
	StaffID         *string `json:"staff_id,omitempty"`
	AppointmentDate string  `json:"appointment_date"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes,omitempty"`
}

// StatusChangeResponse reports a transition and whether a session was
// consumed along with it.
type StatusChangeResponse struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	SessionUsed bool           `json:"session_used"`
	Appointment AppointmentDTO `json:"appointment"`
}

// MonthStatsDTO is one month of the dashboard breakdown.
type MonthStatsDTO struct {
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	Cancelled int    `json:"cancelled"`
}

// StatsDTO is the dashboard payload.
type StatsDTO struct {
	TotalAppointments     int             `json:"total_appointments"`
	CompletedAppointments int             `json:"completed_appointments"`
	CancelledAppointments int             `json:"cancelled_appointments"`
	PendingAppointments   int             `json:"pending_appointments"`
	TotalCustomers        int             `json:"total_customers"`
	NewCustomersToday     int             `json:"new_customers_today"`
	TotalRevenue          string          `json:"total_revenue"`
	TodayRevenue          string          `json:"today_revenue"`
	MonthlyAppointments   []MonthStatsDTO `json:"monthly_appointments"`
}

// ErrorResponse is the standard failure envelope: a success flag and a
// human-readable message, nothing internal.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // dev mode only
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toClientDTO(c booking.Client) *ClientDTO {
	return &ClientDTO{ID: c.ID, FullName: c.FullName(), Phone: c.Phone, Email: c.Email}
}

func toServiceDTO(s booking.Service) *ServiceDTO {
	return &ServiceDTO{
		ID:           s.ID,
		ServiceName:  s.ServiceName,
		Price:        s.Price.String(),
		SessionCount: s.SessionCount,
	}
}

func toPaymentDTO(p booking.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		SaleID:        p.SaleID,
		AmountPaid:    p.AmountPaid.String(),
		PaymentMethod: string(p.Method),
		Notes:         p.Notes,
		PaymentDate:   p.PaymentDate.Format(time.RFC3339),
	}
}

func toPaymentDTOs(payments []booking.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toSaleDTO(s booking.Sale) SaleDTO {
	return SaleDTO{
		ID:                s.ID,
		ClientID:          s.ClientID,
		ServiceID:         s.ServiceID,
		SaleDate:          s.SaleDate.Format(time.RFC3339),
		RemainingSessions: s.RemainingSessions,
	}
}

func toSaleDetailDTO(d booking.SaleDetail) SaleDTO {
	dto := toSaleDTO(d.Sale)
	dto.Client = toClientDTO(d.Client)
	dto.Service = toServiceDTO(d.Service)
	dto.Payments = toPaymentDTOs(d.Payments)
	dto.TotalPaid = d.TotalPaid().String()
	dto.RemainingAmount = d.RemainingAmount().String()
	return dto
}

func toSessionDTO(rec booking.SessionRecord) SessionDTO {
	return SessionDTO{
		ID:          rec.ID,
		SaleID:      rec.SaleID,
		SessionDate: rec.SessionDate.Format(time.RFC3339),
		Status:      string(rec.Status),
		Notes:       rec.Notes,
	}
}

func toSessionDetailDTO(d booking.SessionDetail) SessionDTO {
	dto := toSessionDTO(d.Session)
	dto.Client = toClientDTO(d.Client)
	dto.Service = toServiceDTO(d.Service)
	if d.Staff != nil {
		dto.Staff = &StaffDTO{ID: d.Staff.ID, FullName: d.Staff.FullName, Role: d.Staff.Role}
	}
	return dto
}

func toAppointmentDTO(a booking.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:              a.ID,
		ClientID:        a.ClientID,
		CustomerName:    a.CustomerName,
		ServiceID:       a.ServiceID,
		StaffID:         a.StaffID,
		AppointmentDate: a.AppointmentDate.Format(time.RFC3339),
		Status:          string(a.Status),
		Notes:           a.Notes,
	}
}

func toAppointmentDTOs(appts []booking.Appointment) []AppointmentDTO {
	dtos := make([]AppointmentDTO, len(appts))
	for i, a := range appts {
		dtos[i] = toAppointmentDTO(a)
	}
	return dtos
}

func toStatsDTO(s booking.Stats) StatsDTO {
	months := make([]MonthStatsDTO, len(s.MonthlyAppointments))
	for i, m := range s.MonthlyAppointments {
		months[i] = MonthStatsDTO{Name: m.Name, Completed: m.Completed, Pending: m.Pending, Cancelled: m.Cancelled}
	}
	return StatsDTO{
		TotalAppointments:     s.TotalAppointments,
		CompletedAppointments: s.CompletedAppointments,
		CancelledAppointments: s.CancelledAppointments,
		PendingAppointments:   s.PendingAppointments,
		TotalCustomers:        s.TotalCustomers,
		NewCustomersToday:     s.NewCustomersToday,
		TotalRevenue:          s.TotalRevenue.String(),
		TodayRevenue:          s.TodayRevenue.String(),
		MonthlyAppointments:   months,
	}
}
