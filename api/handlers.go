/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the sale/session core via REST. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Sales:
    POST   /api/sales                      Create sale
    GET    /api/sales                      List account sales
    GET    /api/sales/{id}                 Sale with client/service/payments
    PUT    /api/sales/{id}                 Administrative correction
    DELETE /api/sales/{id}                 Cascade delete
    POST   /api/sales/{id}/payments        Record payment
    GET    /api/sales/{id}/payments        Payments with totals
    POST   /api/sales/{id}/use-session     Consume one session

  Sessions:
    GET    /api/sessions                   Filterable session list

  Clients:
    GET    /api/clients/{id}/sales              Client's sales
    GET    /api/clients/{id}/remaining-sessions Active packages

  Appointments:
    POST   /api/appointments               Book (with capacity check)
    GET    /api/appointments               List (?date=, ?upcoming=true)
    GET    /api/appointments/{id}
    PUT    /api/appointments/{id}
    DELETE /api/appointments/{id}
    PATCH  /api/appointments/{id}/status   Transition; Completed consumes

  Dashboard:
    GET    /api/dashboard                  Aggregate stats

ERROR HANDLING:
  Domain errors map to HTTP statuses uniformly:
  - 400: invalid input, no sessions remaining, capacity exceeded
  - 403: record belongs to another account
  - 404: record not found
  - 500: everything else, as a generic message; details only in dev mode

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huseyingedek/appointment-backend/booking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       booking.Store
	Ledger      *booking.SaleLedger
	Recorder    *booking.SessionRecorder
	Coordinator *booking.Coordinator
	Dashboard   *booking.Dashboard

	// Dev exposes internal error detail in responses.
	Dev bool
}

// NewHandler wires the domain components around one store handle.
func NewHandler(store booking.Store) *Handler {
	recorder := booking.NewSessionRecorder(store)
	return &Handler{
		Store:       store,
		Ledger:      booking.NewSaleLedger(store),
		Recorder:    recorder,
		Coordinator: booking.NewCoordinator(store, recorder),
		Dashboard:   booking.NewDashboard(store),
	}
}

// principal pulls the verified caller identity; the router guarantees it
// is present on every /api route.
func (h *Handler) principal(r *http.Request) booking.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// CreateSale records a package sale.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if req.ClientID == "" || req.ServiceID == "" {
		h.badRequest(w, "client_id and service_id are required")
		return
	}

	in := booking.CreateSaleInput{
		ClientID:          req.ClientID,
		ServiceID:         req.ServiceID,
		RemainingSessions: req.RemainingSessions,
	}
	if req.SaleDate != nil {
		t, err := time.Parse(time.RFC3339, *req.SaleDate)
		if err != nil {
			h.badRequest(w, "invalid sale_date format (use RFC3339)")
			return
		}
		in.SaleDate = &t
	}

	sale, err := h.Ledger.CreateSale(r.Context(), h.principal(r).AccountID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*sale))
}

// ListSales returns the account's sales, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	details, err := h.Ledger.SalesByAccount(r.Context(), h.principal(r).AccountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtos := make([]SaleDTO, len(details))
	for i, d := range details {
		dtos[i] = toSaleDetailDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSale returns one sale with its client, service and payments.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Ledger.GetSaleByID(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDetailDTO(*detail))
}

// UpdateSale applies an administrative correction.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	var req UpdateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	patch := booking.SalePatch{RemainingSessions: req.RemainingSessions}
	if req.SaleDate != nil {
		t, err := time.Parse(time.RFC3339, *req.SaleDate)
		if err != nil {
			h.badRequest(w, "invalid sale_date format (use RFC3339)")
			return
		}
		patch.SaleDate = &t
	}

	sale, err := h.Ledger.UpdateSale(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale))
}

// DeleteSale removes a sale with its payments and sessions.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteSale(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "sale deleted"})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a payment against a sale.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	payment, err := h.Ledger.CreatePayment(r.Context(), h.principal(r).AccountID, booking.CreatePaymentInput{
		SaleID:     chi.URLParam(r, "id"),
		AmountPaid: req.AmountPaid,
		Method:     booking.PaymentMethod(req.PaymentMethod),
		Notes:      req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// GetSalePayments returns the sale's payments with derived totals.
func (h *Handler) GetSalePayments(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.SalePayments(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentSummaryDTO{
		Success:         true,
		SaleID:          summary.SaleID,
		Payments:        toPaymentDTOs(summary.Payments),
		TotalPaid:       summary.TotalPaid,
		RemainingAmount: summary.RemainingAmount,
	})
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// UseSession consumes one session of the sale's package.
func (h *Handler) UseSession(w http.ResponseWriter, r *http.Request) {
	var req UseSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.badRequest(w, "invalid request body")
			return
		}
	}

	in := booking.UseSessionInput{
		SaleID:  chi.URLParam(r, "id"),
		StaffID: req.StaffID,
		Notes:   req.Notes,
	}
	if req.SessionDate != nil {
		t, err := time.Parse(time.RFC3339, *req.SessionDate)
		if err != nil {
			h.badRequest(w, "invalid session_date format (use RFC3339)")
			return
		}
		in.SessionDate = &t
	}

	result, err := h.Recorder.UseSession(r.Context(), h.principal(r).AccountID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UseSessionResponse{
		Success:           true,
		Message:           "session recorded",
		SaleID:            result.Sale.ID,
		RemainingSessions: result.Sale.RemainingSessions,
		SessionRecord:     toSessionDTO(result.Session),
	})
}

// ListSessions returns the account's session records, filterable.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.SessionFilter{
		StaffID:   q.Get("staff_id"),
		Status:    booking.SessionStatus(q.Get("status")),
		SaleID:    q.Get("sale_id"),
		ServiceID: q.Get("service_id"),
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.badRequest(w, "invalid start_date format (use YYYY-MM-DD)")
			return
		}
		filter.From = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.badRequest(w, "invalid end_date format (use YYYY-MM-DD)")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	details, err := h.Recorder.ListSessions(r.Context(), h.principal(r).AccountID, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtos := make([]SessionDTO, len(details))
	for i, d := range details {
		dtos[i] = toSessionDetailDTO(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": dtos})
}

// =============================================================================
// CLIENT-SCOPED HANDLERS
// =============================================================================

// ClientSales returns the client's sales.
func (h *Handler) ClientSales(w http.ResponseWriter, r *http.Request) {
	details, err := h.Ledger.SalesByClient(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtos := make([]SaleDTO, len(details))
	for i, d := range details {
		dtos[i] = toSaleDetailDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClientRemainingSessions returns the client's active packages.
func (h *Handler) ClientRemainingSessions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.RemainingSessionsForClient(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtos := make([]RemainingSessionsDTO, len(entries))
	for i, e := range entries {
		dtos[i] = RemainingSessionsDTO{SaleID: e.SaleID, ServiceName: e.ServiceName, RemainingSessions: e.RemainingSessions}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "remaining_sessions": dtos})
}

// =============================================================================
// APPOINTMENT HANDLERS
// =============================================================================

// CreateAppointment books a visit, enforcing the capacity check.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if req.CustomerName == "" || req.ServiceID == "" {
		h.badRequest(w, "customer_name and service_id are required")
		return
	}
	apptDate, err := time.Parse(time.RFC3339, req.AppointmentDate)
	if err != nil {
		h.badRequest(w, "invalid appointment_date format (use RFC3339)")
		return
	}

	appt, err := h.Coordinator.CreateAppointment(r.Context(), h.principal(r).AccountID, booking.CreateAppointmentInput{
		ClientID:        req.ClientID,
		CustomerName:    req.CustomerName,
		ServiceID:       req.ServiceID,
		StaffID:         req.StaffID,
		AppointmentDate: apptDate,
		Notes:           req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentDTO(*appt))
}

// ListAppointments lists appointments; ?date= narrows to a day,
// ?upcoming=true to planned future visits.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	accountID := h.principal(r).AccountID
	ctx := r.Context()

	var (
		appts []booking.Appointment
		err   error
	)
	switch {
	case r.URL.Query().Get("date") != "":
		day, perr := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if perr != nil {
			h.badRequest(w, "invalid date format (use YYYY-MM-DD)")
			return
		}
		appts, err = h.Coordinator.AppointmentsByDate(ctx, accountID, day)
	case r.URL.Query().Get("upcoming") == "true":
		appts, err = h.Coordinator.UpcomingAppointments(ctx, accountID)
	default:
		appts, err = h.Coordinator.AppointmentsByAccount(ctx, accountID)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTOs(appts))
}

// GetAppointment returns one appointment.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.Coordinator.GetAppointment(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTO(*appt))
}

// UpdateAppointment edits appointment fields.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	patch := booking.AppointmentPatch{
		CustomerName: req.CustomerName,
		ServiceID:    req.ServiceID,
		StaffID:      req.StaffID,
		Notes:        req.Notes,
	}
	if req.AppointmentDate != nil {
		t, err := time.Parse(time.RFC3339, *req.AppointmentDate)
		if err != nil {
			h.badRequest(w, "invalid appointment_date format (use RFC3339)")
			return
		}
		patch.AppointmentDate = &t
	}

	appt, err := h.Coordinator.UpdateAppointment(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTO(*appt))
}

// DeleteAppointment removes an appointment.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.Coordinator.DeleteAppointment(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "appointment deleted"})
}

// UpdateAppointmentStatus transitions the status; Completed triggers
// best-effort session consumption.
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	result, err := h.Coordinator.UpdateStatus(r.Context(), h.principal(r).AccountID, chi.URLParam(r, "id"),
		booking.AppointmentStatus(req.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusChangeResponse{
		Success:     true,
		Message:     result.Message,
		SessionUsed: result.SessionUsed,
		Appointment: toAppointmentDTO(result.Appointment),
	})
}

// =============================================================================
// DASHBOARD HANDLER
// =============================================================================

// GetDashboard returns the aggregate statistics for the account.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.GetStats(r.Context(), h.principal(r).AccountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(*stats))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: message})
}

// respondError maps domain errors to HTTP statuses. Unexpected errors are
// logged with full detail and surfaced as a generic message unless Dev.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case booking.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case booking.IsForbidden(err):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Message: "you do not have access to this record"})
	case booking.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		resp := ErrorResponse{Message: "an unexpected error occurred"}
		if h.Dev {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
