/*
ledger.go - Sale ledger: sales, payments, remaining-session summaries

PURPOSE:
  Owner-facing operations over sales and their payments. The ledger
  resolves and tenant-checks every referenced record before touching it,
  so a caller from account A can never read or mutate a sale whose client
  belongs to account B.

INVARIANTS:
  1. RemainingSessions initializes from the service's SessionCount unless
     explicitly overridden at creation; never negative.
  2. Payments are immutable once created; only a sale delete removes them,
     and then only inside the cascade transaction.
  3. remainingAmount = price - sum(payments) is always derived, never
     stored. Over- and underpayment are recorded, not blocked.

TENANCY:
  Sales carry no account column; scope is transitive via the client.
  Cross-tenant resolution is uniformly Forbidden.

SEE ALSO:
  - recorder.go: the only component that decrements RemainingSessions
  - store.go: persistence interfaces
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SaleLedger owns creation of sale records, their payments, and the
// remaining-session summaries derived from them.
type SaleLedger struct {
	store Store

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewSaleLedger(store Store) *SaleLedger {
	return &SaleLedger{store: store, Now: time.Now}
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateSaleInput is the already-validated request to record a package sale.
type CreateSaleInput struct {
	ClientID          string
	ServiceID         string
	RemainingSessions *int       // nil = default to the service's session count
	SaleDate          *time.Time // nil = now
}

// CreatePaymentInput records a partial or full payment against a sale.
type CreatePaymentInput struct {
	SaleID      string
	AmountPaid  string // decimal string; validated here
	Method      PaymentMethod
	Notes       string
	PaymentDate *time.Time // nil = now
}

// PaymentSummary is a sale's payment list with derived totals.
type PaymentSummary struct {
	SaleID          string
	Payments        []Payment
	TotalPaid       string
	RemainingAmount string
}

// =============================================================================
// SALE OPERATIONS
// =============================================================================

// CreateSale records a purchased service package for a client of the
// caller's account. RemainingSessions defaults to the service's session
// count when not overridden.
func (l *SaleLedger) CreateSale(ctx context.Context, accountID string, in CreateSaleInput) (*Sale, error) {
	client, err := l.resolveClient(ctx, accountID, in.ClientID)
	if err != nil {
		return nil, err
	}

	service, err := l.resolveService(ctx, accountID, in.ServiceID)
	if err != nil {
		return nil, err
	}

	remaining := service.SessionCount
	if in.RemainingSessions != nil {
		remaining = *in.RemainingSessions
	}
	if remaining < 0 {
		return nil, &InvalidInputError{Field: "remainingSessions", Message: "must not be negative"}
	}

	saleDate := l.Now()
	if in.SaleDate != nil {
		saleDate = *in.SaleDate
	}

	sale := Sale{
		ID:                NewID(),
		ClientID:          client.ID,
		ServiceID:         service.ID,
		SaleDate:          saleDate,
		RemainingSessions: remaining,
		CreatedAt:         l.Now(),
	}

	if err := l.store.SaveSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("save sale: %w", err)
	}
	return &sale, nil
}

// GetSaleByID returns the sale with its client, service and payments.
func (l *SaleLedger) GetSaleByID(ctx context.Context, accountID, saleID string) (*SaleDetail, error) {
	sale, _, err := l.resolveSale(ctx, accountID, saleID)
	if err != nil {
		return nil, err
	}
	return l.detail(ctx, accountID, *sale)
}

// SalesByAccount returns all sales of the account, newest sale date first.
func (l *SaleLedger) SalesByAccount(ctx context.Context, accountID string) ([]SaleDetail, error) {
	sales, err := l.store.ListSalesByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return l.details(ctx, accountID, sales)
}

// SalesByClient returns the client's sales, tenant-checked.
func (l *SaleLedger) SalesByClient(ctx context.Context, accountID, clientID string) ([]SaleDetail, error) {
	if _, err := l.resolveClient(ctx, accountID, clientID); err != nil {
		return nil, err
	}
	sales, err := l.store.ListSalesByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client sales: %w", err)
	}
	return l.details(ctx, accountID, sales)
}

// UpdateSale applies an administrative correction to the sale date or the
// remaining counter. This bypasses the consumption invariant on purpose
// but still refuses a negative counter.
func (l *SaleLedger) UpdateSale(ctx context.Context, accountID, saleID string, patch SalePatch) (*Sale, error) {
	sale, _, err := l.resolveSale(ctx, accountID, saleID)
	if err != nil {
		return nil, err
	}
	if patch.RemainingSessions != nil && *patch.RemainingSessions < 0 {
		return nil, &InvalidInputError{Field: "remainingSessions", Message: "must not be negative"}
	}

	patch.Apply(sale)
	if err := l.store.UpdateSale(ctx, *sale); err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}
	return sale, nil
}

// DeleteSale removes the sale with its payments and sessions in one
// transaction. Partial failure leaves no orphaned rows.
func (l *SaleLedger) DeleteSale(ctx context.Context, accountID, saleID string) error {
	if _, _, err := l.resolveSale(ctx, accountID, saleID); err != nil {
		return err
	}
	if err := l.store.DeleteSaleCascade(ctx, saleID); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

// =============================================================================
// PAYMENT OPERATIONS
// =============================================================================

// CreatePayment records a payment against a sale. Defensive check: the
// amount must parse and be positive even though the calling layer already
// validated it.
func (l *SaleLedger) CreatePayment(ctx context.Context, accountID string, in CreatePaymentInput) (*Payment, error) {
	if !ValidPaymentMethod(in.Method) {
		return nil, &InvalidInputError{Field: "paymentMethod", Message: fmt.Sprintf("unknown method %q", in.Method)}
	}

	amount, err := parsePositiveAmount(in.AmountPaid)
	if err != nil {
		return nil, err
	}

	if _, _, err := l.resolveSale(ctx, accountID, in.SaleID); err != nil {
		return nil, err
	}

	paymentDate := l.Now()
	if in.PaymentDate != nil {
		paymentDate = *in.PaymentDate
	}

	payment := Payment{
		ID:          NewID(),
		SaleID:      in.SaleID,
		AmountPaid:  amount,
		Method:      in.Method,
		Notes:       in.Notes,
		PaymentDate: paymentDate,
	}

	if err := l.store.SavePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	return &payment, nil
}

// SalePayments returns the sale's payments with the derived totals.
func (l *SaleLedger) SalePayments(ctx context.Context, accountID, saleID string) (*PaymentSummary, error) {
	detail, err := l.GetSaleByID(ctx, accountID, saleID)
	if err != nil {
		return nil, err
	}
	return &PaymentSummary{
		SaleID:          saleID,
		Payments:        detail.Payments,
		TotalPaid:       detail.TotalPaid().String(),
		RemainingAmount: detail.RemainingAmount().String(),
	}, nil
}

// RemainingSessionsForClient lists the client's sales that still have
// sessions left, with the service name for display.
func (l *SaleLedger) RemainingSessionsForClient(ctx context.Context, accountID, clientID string) ([]RemainingSessionsEntry, error) {
	if _, err := l.resolveClient(ctx, accountID, clientID); err != nil {
		return nil, err
	}
	sales, err := l.store.ListSalesByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client sales: %w", err)
	}

	entries := []RemainingSessionsEntry{}
	for _, sale := range sales {
		if sale.RemainingSessions <= 0 {
			continue
		}
		service, err := l.store.GetService(ctx, sale.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("get service: %w", err)
		}
		name := ""
		if service != nil {
			name = service.ServiceName
		}
		entries = append(entries, RemainingSessionsEntry{
			SaleID:            sale.ID,
			ServiceName:       name,
			RemainingSessions: sale.RemainingSessions,
		})
	}
	return entries, nil
}

// parsePositiveAmount parses a decimal string and rejects zero and
// negative values.
func parsePositiveAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InvalidInputError{Field: "amountPaid", Message: "not a valid decimal"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &InvalidInputError{Field: "amountPaid", Message: "must be greater than zero"}
	}
	return amount, nil
}

// =============================================================================
// RESOLUTION HELPERS
// =============================================================================

func (l *SaleLedger) resolveClient(ctx context.Context, accountID, clientID string) (*Client, error) {
	client, err := l.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &NotFoundError{Kind: "client", ID: clientID}
	}
	if client.AccountID != accountID {
		return nil, &ForbiddenError{Kind: "client", ID: clientID, AccountID: accountID}
	}
	return client, nil
}

func (l *SaleLedger) resolveService(ctx context.Context, accountID, serviceID string) (*Service, error) {
	service, err := l.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if service == nil {
		return nil, &NotFoundError{Kind: "service", ID: serviceID}
	}
	if service.AccountID != accountID {
		return nil, &ForbiddenError{Kind: "service", ID: serviceID, AccountID: accountID}
	}
	return service, nil
}

// resolveSale fetches the sale and tenant-checks it through its client.
func (l *SaleLedger) resolveSale(ctx context.Context, accountID, saleID string) (*Sale, *Client, error) {
	sale, err := l.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, nil, &NotFoundError{Kind: "sale", ID: saleID}
	}
	client, err := l.resolveClient(ctx, accountID, sale.ClientID)
	if err != nil {
		return nil, nil, err
	}
	return sale, client, nil
}

func (l *SaleLedger) detail(ctx context.Context, accountID string, sale Sale) (*SaleDetail, error) {
	client, err := l.resolveClient(ctx, accountID, sale.ClientID)
	if err != nil {
		return nil, err
	}
	service, err := l.store.GetService(ctx, sale.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if service == nil {
		return nil, &NotFoundError{Kind: "service", ID: sale.ServiceID}
	}
	payments, err := l.store.ListPaymentsBySale(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &SaleDetail{Sale: sale, Client: *client, Service: *service, Payments: payments}, nil
}

func (l *SaleLedger) details(ctx context.Context, accountID string, sales []Sale) ([]SaleDetail, error) {
	out := make([]SaleDetail, 0, len(sales))
	for _, sale := range sales {
		d, err := l.detail(ctx, accountID, sale)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}
