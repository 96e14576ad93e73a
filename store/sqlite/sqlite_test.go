package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAccount(id string) billing.Account {
	return billing.Account{
		ID:           id,
		Name:         "Test Tenant",
		ResidentType: billing.ResidentTenant,
		Lease: billing.Lease{
			StartDate:        billing.NewDate(2025, time.January, 1),
			Rent:             billing.NewMoney(20_000),
			PaymentStatus:    billing.StatusPending,
			LastBilledPeriod: billing.MonthOf(2025, time.January),
		},
		DueBalance:      billing.NewMoney(20_000),
		AccountBalance:  billing.ZeroMoney(),
		SecurityDeposit: billing.NewMoney(10_000),
		PropertyID:      "prop-1",
		UnitName:        "A1",
	}
}

// =============================================================================
// ROUNDTRIP TESTS
// =============================================================================

func TestStore_AccountRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := testAccount("t-1")
	require.NoError(t, store.SaveAccount(ctx, original))

	loaded, err := store.Account(ctx, "t-1")
	require.NoError(t, err)

	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.ResidentType, loaded.ResidentType)
	assert.True(t, loaded.DueBalance.Equal(original.DueBalance))
	assert.True(t, loaded.SecurityDeposit.Equal(original.SecurityDeposit))
	assert.Equal(t, original.Lease.StartDate, loaded.Lease.StartDate)
	assert.Equal(t, original.Lease.LastBilledPeriod, loaded.Lease.LastBilledPeriod)
	assert.Equal(t, billing.StatusPending, loaded.Lease.PaymentStatus)
}

func TestStore_AccountNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Account(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, billing.IsNotFound(err))
}

func TestStore_UnitRoundtripAndLookups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	unit := billing.Unit{
		Name:             "A1",
		PropertyID:       "prop-1",
		RentAmount:       billing.NewMoney(50_000),
		ServiceCharge:    billing.NewMoney(3_500),
		HandoverDate:     billing.NewDate(2025, time.January, 15),
		HandoverStatus:   billing.HandedOver,
		ManagementStatus: billing.ManagedRentedForClients,
		LandlordID:       "ll-1",
	}
	require.NoError(t, store.SaveUnit(ctx, unit))

	loaded, err := store.Unit(ctx, "prop-1", "A1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.ServiceCharge.Equal(unit.ServiceCharge))
	assert.Equal(t, unit.HandoverDate, loaded.HandoverDate)

	missing, err := store.Unit(ctx, "prop-1", "Z9")
	require.NoError(t, err)
	assert.Nil(t, missing, "missing unit is nil, not an error")

	byLandlord, err := store.UnitsByLandlord(ctx, "ll-1")
	require.NoError(t, err)
	require.Len(t, byLandlord, 1)
	assert.Equal(t, "A1", byLandlord[0].Name)
}

func TestStore_PaymentsChronologicalAndDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("t-1")))

	// Insert out of order.
	dates := []billing.Date{
		billing.NewDate(2025, time.March, 5),
		billing.NewDate(2025, time.January, 5),
		billing.NewDate(2025, time.February, 5),
	}
	for i, d := range dates {
		require.NoError(t, store.AddPayment(ctx, billing.Payment{
			ID: []string{"p-a", "p-b", "p-c"}[i], TenantID: "t-1",
			Amount: billing.NewMoney(20_000), Date: d, Type: billing.TypeRent,
			RentForMonth: d.Month(), Status: "Confirmed",
		}))
	}

	history, err := store.PaymentHistory(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Date.Before(history[i-1].Date))
	}
	assert.Equal(t, billing.MonthOf(2025, time.January), history[0].RentForMonth)

	err = store.AddPayment(ctx, billing.Payment{
		ID: "p-a", TenantID: "t-1",
		Amount: billing.NewMoney(1), Date: dates[0], Type: billing.TypeRent,
	})
	assert.ErrorIs(t, err, billing.ErrDuplicatePayment)
}

func TestStore_WaterReadingLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("t-1")))

	reading := billing.WaterMeterReading{
		ID: "w-1", TenantID: "t-1",
		Amount: billing.NewMoney(1_500),
		Date:   billing.NewDate(2025, time.January, 15),
		Status: billing.WaterPending,
	}
	require.NoError(t, store.AddWaterReading(ctx, reading))

	reading.Status = billing.WaterPaid
	require.NoError(t, store.SaveWaterReading(ctx, reading))

	readings, err := store.WaterReadings(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, billing.WaterPaid, readings[0].Status)
	assert.True(t, readings[0].Amount.Equal(billing.NewMoney(1_500)))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithAccountTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("t-1")))

	boom := errors.New("boom")
	err := store.WithAccountTx(ctx, "t-1", func(repo billing.Repository) error {
		account, err := repo.Account(ctx, "t-1")
		if err != nil {
			return err
		}
		account.DueBalance = billing.ZeroMoney()
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}
		if err := repo.AddPayment(ctx, billing.Payment{
			ID: "p-1", TenantID: "t-1",
			Amount: billing.NewMoney(20_000),
			Date:   billing.NewDate(2025, time.January, 5),
			Type:   billing.TypeRent,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	account, err := store.Account(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, account.DueBalance.Equal(billing.NewMoney(20_000)))

	history, err := store.PaymentHistory(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_WithAccountTx_Commits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("t-1")))

	err := store.WithAccountTx(ctx, "t-1", func(repo billing.Repository) error {
		account, err := repo.Account(ctx, "t-1")
		if err != nil {
			return err
		}
		account.DueBalance = billing.ZeroMoney()
		account.Lease.PaymentStatus = billing.StatusPaid
		return repo.SaveAccount(ctx, account)
	})
	require.NoError(t, err)

	account, err := store.Account(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, account.DueBalance.IsZero())
	assert.Equal(t, billing.StatusPaid, account.Lease.PaymentStatus)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestStore_QueryViews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	archived := testAccount("t-2")
	archived.Archived = true
	archived.UnitName = "A2"
	require.NoError(t, store.SaveAccount(ctx, testAccount("t-1")))
	require.NoError(t, store.SaveAccount(ctx, archived))

	accounts, err := store.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1, "archived accounts are excluded")
	assert.Equal(t, "t-1", accounts[0].ID)

	occupant, err := store.AccountForUnit(ctx, "prop-1", "A1")
	require.NoError(t, err)
	require.NotNil(t, occupant)
	assert.Equal(t, "t-1", occupant.ID)

	vacant, err := store.AccountForUnit(ctx, "prop-1", "A2")
	require.NoError(t, err)
	assert.Nil(t, vacant)
}

// =============================================================================
// ENGINE-OVER-SQLITE SMOKE TEST
// =============================================================================

func TestStore_EngineEndToEnd(t *testing.T) {
	// GIVEN: An engine backed by the sqlite store
	// WHEN: Recording a payment and reconstructing the ledger
	// THEN: Balances and history agree across the store boundary

	store := newTestStore(t)
	ctx := context.Background()

	// Initial due covers the first month's rent plus the security deposit.
	seeded := testAccount("t-1")
	seeded.DueBalance = billing.NewMoney(30_000)
	require.NoError(t, store.SaveAccount(ctx, seeded))
	require.NoError(t, store.SaveUnit(ctx, billing.Unit{
		Name: "A1", PropertyID: "prop-1", RentAmount: billing.NewMoney(20_000),
	}))

	today := billing.NewDate(2025, time.January, 10)
	engine := billing.NewEngine(store, nil).WithClock(func() billing.Date { return today })

	_, account, err := engine.RecordPayment(ctx, "t-1", billing.PaymentRequest{
		Amount:       billing.NewMoney(55_000), // 25,000 over
		Type:         billing.TypeRent,
		Date:         today,
		RentForMonth: billing.MonthOf(2025, time.January),
	})
	require.NoError(t, err)
	assert.True(t, account.DueBalance.IsZero())
	assert.True(t, account.AccountBalance.Equal(billing.NewMoney(25_000)))

	result, err := engine.Statement(ctx, "t-1", today, billing.LedgerOptions{IncludeRent: true})
	require.NoError(t, err)
	assert.True(t, result.AccountBalance.Equal(billing.NewMoney(25_000)))
	assert.NoError(t, engine.VerifyAccount(ctx, "t-1", today))
}
