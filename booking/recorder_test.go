package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyingedek/appointment-backend/booking"
)

// =============================================================================
// TEST SETUP
// =============================================================================
// Fixtures shared with ledger_test.go.

func newRecorder(f fixtures) *booking.SessionRecorder {
	recorder := booking.NewSessionRecorder(f.store)
	recorder.Now = testClock
	return recorder
}

func createSale(t *testing.T, f fixtures, remaining int) *booking.Sale {
	t.Helper()
	ledger := newLedger(f)
	sale, err := ledger.CreateSale(context.Background(), f.account.ID, booking.CreateSaleInput{
		ClientID:          f.client.ID,
		ServiceID:         f.service.ID,
		RemainingSessions: intPtr(remaining),
	})
	require.NoError(t, err)
	return sale
}

// =============================================================================
// CONSUMPTION TESTS
// =============================================================================

func TestUseSession_DecrementsUntilExhausted(t *testing.T) {
	// GIVEN: A sale with 5 remaining sessions
	// WHEN: Consuming five times, then a sixth
	// THEN: The counter walks 4, 3, 2, 1, 0 and the sixth attempt fails
	//       with no session record written

	f := seedBase(t)
	recorder := newRecorder(f)
	ctx := context.Background()
	sale := createSale(t, f, 5)

	for want := 4; want >= 0; want-- {
		result, err := recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
		require.NoError(t, err)
		assert.Equal(t, want, result.Sale.RemainingSessions)
		assert.Equal(t, booking.SessionCompleted, result.Session.Status)
	}

	_, err := recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
	assert.ErrorIs(t, err, booking.ErrNoSessionsRemaining)

	sessions, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Len(t, sessions, 5, "failed attempt must not write a session record")
}

func TestUseSession_DefaultNotesAndDate(t *testing.T) {
	// Empty notes default; nil date defaults to the clock.

	f := seedBase(t)
	recorder := newRecorder(f)
	sale := createSale(t, f, 1)

	result, err := recorder.UseSession(context.Background(), f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Equal(t, booking.DefaultSessionNotes, result.Session.Notes)
	assert.Equal(t, testClock(), result.Session.SessionDate)
}

func TestUseSession_ExplicitNotesAndDate(t *testing.T) {
	f := seedBase(t)
	recorder := newRecorder(f)
	sale := createSale(t, f, 1)

	when := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)
	result, err := recorder.UseSession(context.Background(), f.account.ID, booking.UseSessionInput{
		SaleID:      sale.ID,
		SessionDate: &when,
		Notes:       "area: legs",
	})
	require.NoError(t, err)
	assert.Equal(t, "area: legs", result.Session.Notes)
	assert.Equal(t, when, result.Session.SessionDate)
}

func TestUseSession_UnknownSale_NotFound(t *testing.T) {
	f := seedBase(t)
	recorder := newRecorder(f)

	_, err := recorder.UseSession(context.Background(), f.account.ID, booking.UseSessionInput{SaleID: "no-such-sale"})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestUseSession_CrossTenant_Forbidden(t *testing.T) {
	// GIVEN: A sale of account 2 with sessions left
	// WHEN: Account 1 tries to consume it
	// THEN: Forbidden, and the counter is untouched

	f := seedBase(t)
	otherClient, otherService := seedOtherAccount(t, f)
	recorder := newRecorder(f)
	ledger := newLedger(f)
	ctx := context.Background()

	sale, err := ledger.CreateSale(ctx, "acct-2", booking.CreateSaleInput{
		ClientID: otherClient.ID, ServiceID: otherService.ID,
	})
	require.NoError(t, err)

	_, err = recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	stored, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.RemainingSessions, stored.RemainingSessions)
}

// =============================================================================
// STAFF POLICY TESTS
// =============================================================================

func TestUseSession_KnownStaff_Attributed(t *testing.T) {
	f := seedBase(t)
	recorder := newRecorder(f)
	sale := createSale(t, f, 2)

	result, err := recorder.UseSession(context.Background(), f.account.ID, booking.UseSessionInput{
		SaleID:  sale.ID,
		StaffID: strPtr(f.staff.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Session.StaffID)
	assert.Equal(t, f.staff.ID, *result.Session.StaffID)
}

func TestUseSession_UnknownStaff_RecordedUnattributed(t *testing.T) {
	// GIVEN: A staff id that does not exist
	// WHEN: Consuming a session with it
	// THEN: The session is recorded without attribution; consumption is
	//       never blocked by a staff data problem

	f := seedBase(t)
	recorder := newRecorder(f)
	sale := createSale(t, f, 2)

	result, err := recorder.UseSession(context.Background(), f.account.ID, booking.UseSessionInput{
		SaleID:  sale.ID,
		StaffID: strPtr("no-such-staff"),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Session.StaffID)
	assert.Equal(t, 1, result.Sale.RemainingSessions)
}

func TestUseSession_CrossTenantStaff_RecordedUnattributed(t *testing.T) {
	f := seedBase(t)
	recorder := newRecorder(f)
	ctx := context.Background()
	sale := createSale(t, f, 2)

	seedOtherAccount(t, f)
	otherStaff := booking.Staff{ID: "staff-2", AccountID: "acct-2", FullName: "Elif Kaya", IsActive: true, CreatedAt: testClock()}
	require.NoError(t, f.store.SaveStaff(ctx, otherStaff))

	result, err := recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{
		SaleID:  sale.ID,
		StaffID: strPtr(otherStaff.ID),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Session.StaffID)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestUseSession_ConcurrentLastSession_OnlyOneSucceeds(t *testing.T) {
	// GIVEN: A sale with exactly one session left
	// WHEN: Two goroutines consume concurrently
	// THEN: Exactly one succeeds, the counter ends at zero, and exactly one
	//       session record exists

	f := seedBase(t)
	recorder := newRecorder(f)
	ctx := context.Background()
	sale := createSale(t, f, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: sale.ID})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, booking.ErrNoSessionsRemaining)
		}
	}
	assert.Equal(t, 1, successes)

	stored, err := f.store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RemainingSessions)

	sessions, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

// =============================================================================
// LISTING AND FILTER TESTS
// =============================================================================

func TestListSessions_Filters(t *testing.T) {
	// GIVEN: Three sessions: attributed March 10, unattributed March 12,
	//        attributed March 20
	// WHEN: Filtering by staff and by date range
	// THEN: Only matching sessions return, newest first

	f := seedBase(t)
	recorder := newRecorder(f)
	ctx := context.Background()
	sale := createSale(t, f, 5)

	dates := []struct {
		day   int
		staff *string
	}{
		{10, strPtr(f.staff.ID)},
		{12, nil},
		{20, strPtr(f.staff.ID)},
	}
	for _, d := range dates {
		when := time.Date(2026, time.March, d.day, 9, 0, 0, 0, time.UTC)
		_, err := recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{
			SaleID: sale.ID, StaffID: d.staff, SessionDate: &when,
		})
		require.NoError(t, err)
	}

	all, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	attributed := 0
	for _, d := range all {
		if d.Staff != nil {
			attributed++
			assert.Equal(t, f.staff.FullName, d.Staff.FullName)
		}
	}
	assert.Equal(t, 2, attributed)

	byStaff, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{StaffID: f.staff.ID})
	require.NoError(t, err)
	require.Len(t, byStaff, 2)
	assert.Equal(t, 20, byStaff[0].Session.SessionDate.Day(), "newest first")
	require.NotNil(t, byStaff[0].Staff)
	assert.Equal(t, f.staff.FullName, byStaff[0].Staff.FullName)

	from := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	inRange, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, 12, inRange[0].Session.SessionDate.Day())
	assert.Nil(t, inRange[0].Staff)
}

func TestListSessions_ScopedToAccount(t *testing.T) {
	// Sessions of another tenant never leak.

	f := seedBase(t)
	otherClient, otherService := seedOtherAccount(t, f)
	recorder := newRecorder(f)
	ledger := newLedger(f)
	ctx := context.Background()

	mine := createSale(t, f, 1)
	_, err := recorder.UseSession(ctx, f.account.ID, booking.UseSessionInput{SaleID: mine.ID})
	require.NoError(t, err)

	theirs, err := ledger.CreateSale(ctx, "acct-2", booking.CreateSaleInput{
		ClientID: otherClient.ID, ServiceID: otherService.ID,
	})
	require.NoError(t, err)
	_, err = recorder.UseSession(ctx, "acct-2", booking.UseSessionInput{SaleID: theirs.ID})
	require.NoError(t, err)

	sessions, err := recorder.ListSessions(ctx, f.account.ID, booking.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, mine.ID, sessions[0].Session.SaleID)
}
