/*
Package sqlite provides a SQLite-backed implementation of the booking
storage interfaces.

PURPOSE:
  Implements booking.Store using SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:     Tenants
  clients:      Customers, scoped to an account
  services:     Service definitions with price and session count
  staff:        Staff members, scoped to an account
  sales:        Purchased packages with the remaining_sessions counter
  payments:     Immutable payments against a sale
  sessions:     Session-usage records
  appointments: Scheduled visits

ATOMIC DECREMENT:
  ConsumeSession wraps the session insert and a conditional
  UPDATE ... SET remaining_sessions = remaining_sessions - 1
  WHERE remaining_sessions > 0 in one transaction and checks the affected
  row count. The counter can never go below zero, and a failed attempt
  writes nothing.

CASCADE DELETE:
  DeleteSaleCascade deletes payments, sessions and the sale inside one
  transaction so partial failure never orphans rows.

CONCURRENCY:
  Uses sync.Mutex around writes. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/booking.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - booking/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/huseyingedek/appointment-backend/booking"
)

// Store implements booking.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		business_name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clients_account ON clients(account_id);
	CREATE INDEX IF NOT EXISTS idx_clients_account_names
		ON clients(account_id, first_name, last_name);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		service_name TEXT NOT NULL,
		price TEXT NOT NULL,
		session_count INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_services_account ON services(account_id);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		full_name TEXT NOT NULL,
		role TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_staff_account ON staff(account_id);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id),
		service_id TEXT NOT NULL REFERENCES services(id),
		sale_date TEXT NOT NULL,
		remaining_sessions INTEGER NOT NULL CHECK (remaining_sessions >= 0),
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_client ON sales(client_id);
	CREATE INDEX IF NOT EXISTS idx_sales_service ON sales(service_id);
	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date DESC);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id),
		amount_paid TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		notes TEXT,
		payment_date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_sale ON payments(sale_id);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id),
		staff_id TEXT REFERENCES staff(id),
		session_date TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_sale ON sessions(sale_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(session_date DESC);

	CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		client_id TEXT REFERENCES clients(id),
		customer_name TEXT NOT NULL,
		service_id TEXT NOT NULL REFERENCES services(id),
		staff_id TEXT REFERENCES staff(id),
		appointment_date TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_appointments_account ON appointments(account_id);
	CREATE INDEX IF NOT EXISTS idx_appointments_account_date
		ON appointments(account_id, appointment_date);
	CREATE INDEX IF NOT EXISTS idx_appointments_customer_service
		ON appointments(account_id, customer_name, service_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset drops all rows. Dev and test helper.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"sessions", "payments", "sales", "appointments", "staff", "services", "clients", "accounts"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// REFERENCE STORE
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a booking.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (id, business_name, created_at)
		VALUES (?, ?, ?)`,
		a.ID, a.BusinessName, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*booking.Account, error) {
	var a booking.Account
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, business_name, created_at FROM accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.BusinessName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) SaveClient(ctx context.Context, c booking.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO clients (id, account_id, first_name, last_name, phone, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.FirstName, c.LastName, c.Phone, c.Email, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*booking.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, first_name, last_name, phone, email, created_at
		FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (s *Store) SearchClientsByName(ctx context.Context, accountID, term string) ([]booking.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, first_name, last_name, phone, email, created_at
		FROM clients
		WHERE account_id = ? AND (instr(first_name, ?) > 0 OR instr(last_name, ?) > 0)
		ORDER BY created_at ASC`,
		accountID, term, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	defer rows.Close()

	var clients []booking.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *Store) SaveService(ctx context.Context, svc booking.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO services (id, account_id, service_name, price, session_count, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		svc.ID, svc.AccountID, svc.ServiceName, svc.Price.String(), svc.SessionCount, svc.IsActive, formatTime(svc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id string) (*booking.Service, error) {
	var svc booking.Service
	var price, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, service_name, price, session_count, is_active, created_at
		FROM services WHERE id = ?`, id,
	).Scan(&svc.ID, &svc.AccountID, &svc.ServiceName, &price, &svc.SessionCount, &svc.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	svc.Price = parseDecimal(price)
	svc.CreatedAt = parseTime(createdAt)
	return &svc, nil
}

func (s *Store) SaveStaff(ctx context.Context, st booking.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO staff (id, account_id, full_name, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID, st.AccountID, st.FullName, st.Role, st.IsActive, formatTime(st.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save staff: %w", err)
	}
	return nil
}

func (s *Store) GetStaff(ctx context.Context, id string) (*booking.Staff, error) {
	var st booking.Staff
	var role sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, full_name, role, is_active, created_at
		FROM staff WHERE id = ?`, id,
	).Scan(&st.ID, &st.AccountID, &st.FullName, &role, &st.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	st.Role = role.String
	st.CreatedAt = parseTime(createdAt)
	return &st, nil
}

// =============================================================================
// SALE STORE
// =============================================================================

func (s *Store) SaveSale(ctx context.Context, sale booking.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, service_id, sale_date, remaining_sessions, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ClientID, sale.ServiceID, formatTime(sale.SaleDate), sale.RemainingSessions, formatTime(sale.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}
	return nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*booking.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, service_id, sale_date, remaining_sessions, created_at
		FROM sales WHERE id = ?`, id)
	return scanSale(row)
}

func (s *Store) ListSalesByAccount(ctx context.Context, accountID string) ([]booking.Sale, error) {
	return s.querySales(ctx, `
		SELECT s.id, s.client_id, s.service_id, s.sale_date, s.remaining_sessions, s.created_at
		FROM sales s
		JOIN clients c ON c.id = s.client_id
		WHERE c.account_id = ?
		ORDER BY s.sale_date DESC`, accountID)
}

func (s *Store) ListSalesByClient(ctx context.Context, clientID string) ([]booking.Sale, error) {
	return s.querySales(ctx, `
		SELECT id, client_id, service_id, sale_date, remaining_sessions, created_at
		FROM sales
		WHERE client_id = ?
		ORDER BY sale_date DESC`, clientID)
}

func (s *Store) UpdateSale(ctx context.Context, sale booking.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE sales SET sale_date = ?, remaining_sessions = ? WHERE id = ?`,
		formatTime(sale.SaleDate), sale.RemainingSessions, sale.ID)
	if err != nil {
		return fmt.Errorf("failed to update sale: %w", err)
	}
	return nil
}

// DeleteSaleCascade deletes the sale's payments and sessions, then the
// sale itself, in one transaction.
func (s *Store) DeleteSaleCascade(ctx context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM payments WHERE sale_id = ?",
		"DELETE FROM sessions WHERE sale_id = ?",
		"DELETE FROM sales WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, saleID); err != nil {
			return fmt.Errorf("failed to cascade delete sale: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) SavePayment(ctx context.Context, p booking.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, sale_id, amount_paid, payment_method, notes, payment_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.SaleID, p.AmountPaid.String(), p.Method, nullString(p.Notes), formatTime(p.PaymentDate))
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) ListPaymentsBySale(ctx context.Context, saleID string) ([]booking.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, amount_paid, payment_method, notes, payment_date
		FROM payments
		WHERE sale_id = ?
		ORDER BY payment_date ASC`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *Store) ListPaymentsByAccount(ctx context.Context, accountID string) ([]booking.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sale_id, p.amount_paid, p.payment_method, p.notes, p.payment_date
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		JOIN clients c ON c.id = s.client_id
		WHERE c.account_id = ?
		ORDER BY p.payment_date ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// =============================================================================
// SESSION STORE - Atomic consumption
// =============================================================================

// ConsumeSession inserts the session record and decrements the sale's
// remaining counter in one transaction. The decrement is guarded by
// remaining_sessions > 0 and verified via the affected row count, so a
// concurrent second consumption of the last session fails cleanly and
// writes nothing.
func (s *Store) ConsumeSession(ctx context.Context, saleID string, rec booking.SessionRecord) (*booking.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales SET remaining_sessions = remaining_sessions - 1
		WHERE id = ? AND remaining_sessions > 0`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Either the sale vanished or the counter was already zero.
		// Nothing has been written; the deferred rollback is a no-op.
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales WHERE id = ?", saleID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check sale: %w", err)
		}
		if exists == 0 {
			return nil, &booking.NotFoundError{Kind: "sale", ID: saleID}
		}
		return nil, &booking.NoSessionsError{SaleID: saleID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, sale_id, staff_id, session_date, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SaleID, nullStringPtr(rec.StaffID), formatTime(rec.SessionDate), rec.Status, nullString(rec.Notes), formatTime(rec.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, client_id, service_id, sale_date, remaining_sessions, created_at
		FROM sales WHERE id = ?`, saleID)
	sale, err := scanSale(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit consumption: %w", err)
	}
	return sale, nil
}

// ListSessions returns the account's sessions (scoped via sale -> client),
// newest first, narrowed by the filter. Staff is joined in the same query:
// the single-connection pool cannot serve a nested query while rows are
// still open.
func (s *Store) ListSessions(ctx context.Context, accountID string, f booking.SessionFilter) ([]booking.SessionDetail, error) {
	query := `
		SELECT se.id, se.sale_id, se.staff_id, se.session_date, se.status, se.notes, se.created_at,
		       c.id, c.account_id, c.first_name, c.last_name, c.phone, c.email, c.created_at,
		       sv.id, sv.account_id, sv.service_name, sv.price, sv.session_count, sv.is_active, sv.created_at,
		       st.id, st.account_id, st.full_name, st.role, st.is_active, st.created_at
		FROM sessions se
		JOIN sales sa ON sa.id = se.sale_id
		JOIN clients c ON c.id = sa.client_id
		JOIN services sv ON sv.id = sa.service_id
		LEFT JOIN staff st ON st.id = se.staff_id
		WHERE c.account_id = ?`
	args := []any{accountID}

	var conds []string
	if f.From != nil {
		conds = append(conds, "se.session_date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "se.session_date <= ?")
		args = append(args, formatTime(*f.To))
	}
	if f.StaffID != "" {
		conds = append(conds, "se.staff_id = ?")
		args = append(args, f.StaffID)
	}
	if f.Status != "" {
		conds = append(conds, "se.status = ?")
		args = append(args, f.Status)
	}
	if f.SaleID != "" {
		conds = append(conds, "se.sale_id = ?")
		args = append(args, f.SaleID)
	}
	if f.ServiceID != "" {
		conds = append(conds, "sa.service_id = ?")
		args = append(args, f.ServiceID)
	}
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY se.session_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var details []booking.SessionDetail
	for rows.Next() {
		var (
			d         booking.SessionDetail
			staffID   sql.NullString
			notes     sql.NullString
			seDate    string
			seCreated string
			cPhone    sql.NullString
			cEmail    sql.NullString
			cCreated  string
			svPrice   string
			svCreated string
			stID      sql.NullString
			stAccount sql.NullString
			stName    sql.NullString
			stRole    sql.NullString
			stActive  sql.NullBool
			stCreated sql.NullString
		)
		err := rows.Scan(
			&d.Session.ID, &d.Session.SaleID, &staffID, &seDate, &d.Session.Status, &notes, &seCreated,
			&d.Client.ID, &d.Client.AccountID, &d.Client.FirstName, &d.Client.LastName, &cPhone, &cEmail, &cCreated,
			&d.Service.ID, &d.Service.AccountID, &d.Service.ServiceName, &svPrice, &d.Service.SessionCount, &d.Service.IsActive, &svCreated,
			&stID, &stAccount, &stName, &stRole, &stActive, &stCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		d.Session.SessionDate = parseTime(seDate)
		d.Session.CreatedAt = parseTime(seCreated)
		d.Session.Notes = notes.String
		d.Client.Phone = cPhone.String
		d.Client.Email = cEmail.String
		d.Client.CreatedAt = parseTime(cCreated)
		d.Service.Price = parseDecimal(svPrice)
		d.Service.CreatedAt = parseTime(svCreated)
		if staffID.Valid {
			id := staffID.String
			d.Session.StaffID = &id
		}
		if stID.Valid {
			d.Staff = &booking.Staff{
				ID:        stID.String,
				AccountID: stAccount.String,
				FullName:  stName.String,
				Role:      stRole.String,
				IsActive:  stActive.Bool,
				CreatedAt: parseTime(stCreated.String),
			}
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// =============================================================================
// APPOINTMENT STORE
// =============================================================================

func (s *Store) SaveAppointment(ctx context.Context, a booking.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, account_id, client_id, customer_name, service_id, staff_id, appointment_date, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AccountID, nullStringPtr(a.ClientID), a.CustomerName, a.ServiceID, nullStringPtr(a.StaffID),
		formatTime(a.AppointmentDate), a.Status, nullString(a.Notes), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*booking.Appointment, error) {
	row := s.db.QueryRowContext(ctx, appointmentColumns+" WHERE id = ?", id)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, a booking.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE appointments
		SET client_id = ?, customer_name = ?, service_id = ?, staff_id = ?, appointment_date = ?, status = ?, notes = ?
		WHERE id = ?`,
		nullStringPtr(a.ClientID), a.CustomerName, a.ServiceID, nullStringPtr(a.StaffID),
		formatTime(a.AppointmentDate), a.Status, nullString(a.Notes), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (s *Store) ListAppointmentsByAccount(ctx context.Context, accountID string) ([]booking.Appointment, error) {
	return s.queryAppointments(ctx,
		appointmentColumns+" WHERE account_id = ? ORDER BY appointment_date ASC", accountID)
}

func (s *Store) ListAppointmentsBetween(ctx context.Context, accountID string, from, to time.Time) ([]booking.Appointment, error) {
	return s.queryAppointments(ctx,
		appointmentColumns+` WHERE account_id = ? AND appointment_date >= ? AND appointment_date <= ?
		ORDER BY appointment_date ASC`,
		accountID, formatTime(from), formatTime(to))
}

func (s *Store) ListAppointmentsSince(ctx context.Context, accountID string, since time.Time) ([]booking.Appointment, error) {
	return s.queryAppointments(ctx,
		appointmentColumns+` WHERE account_id = ? AND appointment_date >= ?
		ORDER BY appointment_date ASC`,
		accountID, formatTime(since))
}

func (s *Store) ListUpcomingPlanned(ctx context.Context, accountID string, now time.Time, customerName, serviceID string) ([]booking.Appointment, error) {
	query := appointmentColumns + " WHERE account_id = ? AND appointment_date >= ? AND status = ?"
	args := []any{accountID, formatTime(now), booking.AppointmentPlanned}
	if customerName != "" {
		query += " AND customer_name = ?"
		args = append(args, customerName)
	}
	if serviceID != "" {
		query += " AND service_id = ?"
		args = append(args, serviceID)
	}
	query += " ORDER BY appointment_date ASC"
	return s.queryAppointments(ctx, query, args...)
}

// =============================================================================
// DASHBOARD STORE
// =============================================================================

func (s *Store) CountClients(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clients WHERE account_id = ?", accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}

func (s *Store) CountClientsCreatedSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clients WHERE account_id = ? AND created_at >= ?",
		accountID, formatTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count new clients: %w", err)
	}
	return count, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

const appointmentColumns = `
	SELECT id, account_id, client_id, customer_name, service_id, staff_id, appointment_date, status, notes, created_at
	FROM appointments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*booking.Client, error) {
	var c booking.Client
	var phone, email sql.NullString
	var createdAt string
	err := row.Scan(&c.ID, &c.AccountID, &c.FirstName, &c.LastName, &phone, &email, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	c.Phone = phone.String
	c.Email = email.String
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func scanSale(row rowScanner) (*booking.Sale, error) {
	var sale booking.Sale
	var saleDate, createdAt string
	err := row.Scan(&sale.ID, &sale.ClientID, &sale.ServiceID, &saleDate, &sale.RemainingSessions, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale: %w", err)
	}
	sale.SaleDate = parseTime(saleDate)
	sale.CreatedAt = parseTime(createdAt)
	return &sale, nil
}

func scanAppointment(row rowScanner) (*booking.Appointment, error) {
	var a booking.Appointment
	var clientID, staffID, notes sql.NullString
	var apptDate, createdAt string
	err := row.Scan(&a.ID, &a.AccountID, &clientID, &a.CustomerName, &a.ServiceID, &staffID,
		&apptDate, &a.Status, &notes, &createdAt)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := clientID.String
		a.ClientID = &id
	}
	if staffID.Valid {
		id := staffID.String
		a.StaffID = &id
	}
	a.Notes = notes.String
	a.AppointmentDate = parseTime(apptDate)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]booking.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []booking.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

func (s *Store) queryAppointments(ctx context.Context, query string, args ...any) ([]booking.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []booking.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

func collectPayments(rows *sql.Rows) ([]booking.Payment, error) {
	var payments []booking.Payment
	for rows.Next() {
		var p booking.Payment
		var amount, paymentDate string
		var notes sql.NullString
		if err := rows.Scan(&p.ID, &p.SaleID, &amount, &p.Method, &notes, &paymentDate); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.AmountPaid = parseDecimal(amount)
		p.Notes = notes.String
		p.PaymentDate = parseTime(paymentDate)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// formatTime stores UTC RFC3339 at second precision: fixed width, so the
// string comparisons in range queries order correctly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
