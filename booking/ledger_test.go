package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyingedek/appointment-backend/booking"
	"github.com/huseyingedek/appointment-backend/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================
// Fixtures here are shared by recorder_test.go, coordinator_test.go and
// dashboard_test.go.

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// testClock is a fixed deterministic clock for components with a Now field.
func testClock() time.Time {
	return time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
}

type fixtures struct {
	store   *sqlite.Store
	account booking.Account
	client  booking.Client
	service booking.Service
	staff   booking.Staff
}

// seedBase creates one account with a client, a five-session service priced
// at 300, and a staff member.
func seedBase(t *testing.T) fixtures {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)

	f := fixtures{
		store: store,
		account: booking.Account{
			ID: "acct-1", BusinessName: "Studio One",
			CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		client: booking.Client{
			ID: "client-1", AccountID: "acct-1",
			FirstName: "Ayşe", LastName: "Yılmaz",
			Phone:     "+90 555 000 0001",
			CreatedAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
		},
		service: booking.Service{
			ID: "svc-1", AccountID: "acct-1",
			ServiceName: "Laser Package", Price: decimal.RequireFromString("300"),
			SessionCount: 5, IsActive: true,
			CreatedAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
		},
		staff: booking.Staff{
			ID: "staff-1", AccountID: "acct-1",
			FullName: "Derya Aksoy", Role: "Therapist", IsActive: true,
			CreatedAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, store.SaveAccount(ctx, f.account))
	require.NoError(t, store.SaveClient(ctx, f.client))
	require.NoError(t, store.SaveService(ctx, f.service))
	require.NoError(t, store.SaveStaff(ctx, f.staff))
	return f
}

// seedOtherAccount adds a second tenant with its own client and service.
func seedOtherAccount(t *testing.T, f fixtures) (booking.Client, booking.Service) {
	t.Helper()
	ctx := context.Background()

	account := booking.Account{ID: "acct-2", BusinessName: "Studio Two", CreatedAt: testClock()}
	client := booking.Client{
		ID: "client-2", AccountID: "acct-2",
		FirstName: "Mehmet", LastName: "Demir", CreatedAt: testClock(),
	}
	service := booking.Service{
		ID: "svc-2", AccountID: "acct-2",
		ServiceName: "Massage Package", Price: decimal.RequireFromString("150"),
		SessionCount: 3, IsActive: true, CreatedAt: testClock(),
	}

	require.NoError(t, f.store.SaveAccount(ctx, account))
	require.NoError(t, f.store.SaveClient(ctx, client))
	require.NoError(t, f.store.SaveService(ctx, service))
	return client, service
}

func newLedger(f fixtures) *booking.SaleLedger {
	ledger := booking.NewSaleLedger(f.store)
	ledger.Now = testClock
	return ledger
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

// =============================================================================
// SALE CREATION TESTS
// =============================================================================

func TestCreateSale_DefaultsToServiceSessionCount(t *testing.T) {
	// GIVEN: A service defined with 5 sessions per package
	// WHEN: Creating a sale without an explicit session count
	// THEN: The sale starts with 5 remaining sessions

	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID:  f.client.ID,
		ServiceID: f.service.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, sale.RemainingSessions)
	assert.Equal(t, testClock(), sale.SaleDate.UTC())

	stored, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 5, stored.RemainingSessions)
}

func TestCreateSale_ExplicitOverrideWins(t *testing.T) {
	// GIVEN: A 5-session service
	// WHEN: Creating a sale with an explicit count of 8 (promo deal)
	// THEN: The explicit count wins over the service default

	f := seedBase(t)
	ledger := newLedger(f)

	sale, err := ledger.CreateSale(context.Background(), f.account.ID, booking.CreateSaleInput{
		ClientID:          f.client.ID,
		ServiceID:         f.service.ID,
		RemainingSessions: intPtr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, sale.RemainingSessions)
}

func TestCreateSale_NegativeCount_Rejected(t *testing.T) {
	f := seedBase(t)
	ledger := newLedger(f)

	_, err := ledger.CreateSale(context.Background(), f.account.ID, booking.CreateSaleInput{
		ClientID:          f.client.ID,
		ServiceID:         f.service.ID,
		RemainingSessions: intPtr(-1),
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

func TestCreateSale_UnknownClient_NotFound(t *testing.T) {
	f := seedBase(t)
	ledger := newLedger(f)

	_, err := ledger.CreateSale(context.Background(), f.account.ID, booking.CreateSaleInput{
		ClientID:  "no-such-client",
		ServiceID: f.service.ID,
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreateSale_ClientFromOtherAccount_Forbidden(t *testing.T) {
	// GIVEN: A client that belongs to another tenant
	// WHEN: Account 1 tries to record a sale for it
	// THEN: Forbidden, never NotFound

	f := seedBase(t)
	otherClient, _ := seedOtherAccount(t, f)
	ledger := newLedger(f)

	_, err := ledger.CreateSale(context.Background(), f.account.ID, booking.CreateSaleInput{
		ClientID:  otherClient.ID,
		ServiceID: f.service.ID,
	})
	assert.ErrorIs(t, err, booking.ErrForbidden)
	assert.NotErrorIs(t, err, booking.ErrNotFound)
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestPayments_TotalsReconcile(t *testing.T) {
	// GIVEN: A 300-priced sale with payments of 150 and 100
	// WHEN: Reading the payment summary
	// THEN: totalPaid = 250, remainingAmount = 50, derived not stored

	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)

	_, err = ledger.CreatePayment(ctx, f.account.ID, booking.CreatePaymentInput{
		SaleID: sale.ID, AmountPaid: "150", Method: booking.PaymentCash,
	})
	require.NoError(t, err)
	_, err = ledger.CreatePayment(ctx, f.account.ID, booking.CreatePaymentInput{
		SaleID: sale.ID, AmountPaid: "100", Method: booking.PaymentCreditCard,
	})
	require.NoError(t, err)

	summary, err := ledger.SalePayments(ctx, f.account.ID, sale.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Payments, 2)
	assert.Equal(t, "250", summary.TotalPaid)
	assert.Equal(t, "50", summary.RemainingAmount)
}

func TestCreatePayment_Overpayment_Recorded(t *testing.T) {
	// Overpayment is recorded, not blocked; remaining goes negative.

	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)

	_, err = ledger.CreatePayment(ctx, f.account.ID, booking.CreatePaymentInput{
		SaleID: sale.ID, AmountPaid: "350.50", Method: booking.PaymentTransfer,
	})
	require.NoError(t, err)

	summary, err := ledger.SalePayments(ctx, f.account.ID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "350.5", summary.TotalPaid)
	assert.Equal(t, "-50.5", summary.RemainingAmount)
}

func TestCreatePayment_InvalidAmount_Rejected(t *testing.T) {
	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)

	for _, amount := range []string{"0", "-10", "abc", ""} {
		_, err := ledger.CreatePayment(ctx, f.account.ID, booking.CreatePaymentInput{
			SaleID: sale.ID, AmountPaid: amount, Method: booking.PaymentCash,
		})
		assert.ErrorIs(t, err, booking.ErrInvalidInput, "amount %q should be rejected", amount)
	}
}

func TestCreatePayment_UnknownMethod_Rejected(t *testing.T) {
	f := seedBase(t)
	ledger := newLedger(f)

	_, err := ledger.CreatePayment(context.Background(), f.account.ID, booking.CreatePaymentInput{
		SaleID: "whatever", AmountPaid: "10", Method: "Bitcoin",
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

// =============================================================================
// UPDATE AND DELETE TESTS
// =============================================================================

func TestUpdateSale_PatchOnlyTouchesPresentFields(t *testing.T) {
	// GIVEN: A sale with 5 remaining sessions
	// WHEN: Patching only the remaining counter
	// THEN: The counter changes, the sale date does not

	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)

	updated, err := ledger.UpdateSale(ctx, f.account.ID, sale.ID, booking.SalePatch{
		RemainingSessions: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.RemainingSessions)
	assert.Equal(t, sale.SaleDate.UTC(), updated.SaleDate.UTC())
}

func TestUpdateSale_NegativeCounter_Rejected(t *testing.T) {
	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)

	_, err = ledger.UpdateSale(ctx, f.account.ID, sale.ID, booking.SalePatch{
		RemainingSessions: intPtr(-3),
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

func TestDeleteSale_CascadeRemovesPaymentsAndSessions(t *testing.T) {
	// GIVEN: A sale with a payment and a consumed session
	// WHEN: Deleting the sale
	// THEN: The payment and session rows go with it, atomically

	f := seedBase(t)
	ledger := newLedger(f)
	recorder := booking.NewSessionRecorder(f.store)
	recorder.Now = testClock
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)
	_, err = ledger.CreatePayment(ctx, f.account.ID, booking.CreatePaymentInput{
		SaleID: sale.ID, AmountPaid: "100", Method: booking.PaymentCash,
	})
	require.NoError(t, err)
	_, err = recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
	require.NoError(t, err)

	require.NoError(t, ledger.DeleteSale(ctx, f.account.ID, sale.ID))

	gone, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	payments, err := f.store.ListPaymentsBySale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	sessions, err := f.store.ListSessions(ctx, f.account.ID, booking.SessionFilter{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

// =============================================================================
// TENANCY AND SUMMARY TESTS
// =============================================================================

func TestGetSale_CrossTenant_Forbidden(t *testing.T) {
	// GIVEN: A sale whose client belongs to account 2
	// WHEN: Account 1 reads, updates or deletes it
	// THEN: Forbidden on every path

	f := seedBase(t)
	otherClient, otherService := seedOtherAccount(t, f)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, "acct-2", booking.CreateSaleInput{
		ClientID: otherClient.ID, ServiceID: otherService.ID,
	})
	require.NoError(t, err)

	_, err = ledger.GetSaleByID(ctx, f.account.ID, sale.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = ledger.UpdateSale(ctx, f.account.ID, sale.ID, booking.SalePatch{RemainingSessions: intPtr(1)})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	err = ledger.DeleteSale(ctx, f.account.ID, sale.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	var forbidden *booking.ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Equal(t, f.account.ID, forbidden.AccountID)
}

func TestSalesByAccount_ScopedAndOrdered(t *testing.T) {
	// Sales of other tenants never leak into the account listing.

	f := seedBase(t)
	otherClient, otherService := seedOtherAccount(t, f)
	ledger := newLedger(f)
	ctx := context.Background()

	older := testClock().AddDate(0, -1, 0)
	_, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID, SaleDate: &older,
	})
	require.NoError(t, err)
	newest, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID,
	})
	require.NoError(t, err)
	_, err = ledger.CreateSale(ctx, "acct-2", booking.CreateSaleInput{
		ClientID: otherClient.ID, ServiceID: otherService.ID,
	})
	require.NoError(t, err)

	details, err := ledger.SalesByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, newest.ID, details[0].Sale.ID, "newest sale date first")
	for _, d := range details {
		assert.Equal(t, f.account.ID, d.Client.AccountID)
	}
}

func TestRemainingSessionsForClient_OnlyActivePackages(t *testing.T) {
	// GIVEN: One exhausted sale and one with sessions left
	// WHEN: Listing the client's remaining sessions
	// THEN: Only the active package appears, with its service name

	f := seedBase(t)
	ledger := newLedger(f)
	ctx := context.Background()

	_, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID, RemainingSessions: intPtr(0),
	})
	require.NoError(t, err)
	active, err := ledger.CreateSale(ctx, f.account.ID, booking.CreateSaleInput{
		ClientID: f.client.ID, ServiceID: f.service.ID, RemainingSessions: intPtr(3),
	})
	require.NoError(t, err)

	entries, err := ledger.RemainingSessionsForClient(ctx, f.account.ID, f.client.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, active.ID, entries[0].SaleID)
	assert.Equal(t, "Laser Package", entries[0].ServiceName)
	assert.Equal(t, 3, entries[0].RemainingSessions)
}
