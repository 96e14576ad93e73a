package commission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/commission"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func money(v int64) billing.Money { return billing.NewMoney(v) }

// managedUnit is a Rented-for-Clients unit at 50,000 rent and 3,500
// service charge, handed over in January 2025.
func managedUnit() billing.Unit {
	return billing.Unit{
		Name:             "A1",
		PropertyID:       "prop-1",
		RentAmount:       money(50_000),
		ServiceCharge:    money(3_500),
		HandoverDate:     billing.NewDate(2025, time.January, 15),
		HandoverStatus:   billing.HandedOver,
		ManagementStatus: billing.ManagedRentedForClients,
		LandlordID:       "ll-1",
	}
}

func tenantFrom(y int, m time.Month) billing.Account {
	return billing.Account{
		ID:           "t-1",
		ResidentType: billing.ResidentTenant,
		Lease: billing.Lease{
			StartDate: billing.NewDate(y, m, 1),
			Rent:      money(50_000),
		},
	}
}

func rentFor(amount int64, forMonth billing.Month) billing.Payment {
	return billing.Payment{
		ID:           "p-1",
		TenantID:     "t-1",
		Amount:       money(amount),
		Date:         forMonth.Start(),
		Type:         billing.TypeRent,
		RentForMonth: forMonth,
	}
}

// =============================================================================
// BREAKDOWN TESTS
// =============================================================================

func TestBreakDown_InitialLetting_FlatFiftyPercent(t *testing.T) {
	// GIVEN: First month of a lease starting within 3 months of handover
	// WHEN: Breaking down the 50,000 first rent payment
	// THEN: Flat 25,000 fee, no service-charge deduction

	unit := managedUnit()
	tenant := tenantFrom(2025, time.March)
	payment := rentFor(50_000, billing.MonthOf(2025, time.March))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ManagementFee.Equal(money(25_000)), "fee %s", b.ManagementFee)
	assert.True(t, b.ServiceChargeDeduction.IsZero())
	assert.True(t, b.NetToLandlord.Equal(money(25_000)))
}

func TestBreakDown_StandardMonth_FivePercent(t *testing.T) {
	// GIVEN: A regular month (not the first of the lease)
	// THEN: 5% fee and the full service-charge deduction

	unit := managedUnit()
	tenant := tenantFrom(2025, time.March)
	payment := rentFor(50_000, billing.MonthOf(2025, time.April))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ManagementFee.Equal(money(2_500)))
	assert.True(t, b.ServiceChargeDeduction.Equal(money(3_500)))
	assert.True(t, b.NetToLandlord.Equal(money(44_000)))
}

func TestBreakDown_OutsideLettingWindow_StandardFee(t *testing.T) {
	// GIVEN: A lease starting more than 3 months after handover
	// THEN: The first month is charged at the standard 5%

	unit := managedUnit()
	tenant := tenantFrom(2025, time.June) // 5 months after January handover
	payment := rentFor(50_000, billing.MonthOf(2025, time.June))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ManagementFee.Equal(money(2_500)))
	assert.True(t, b.ServiceChargeDeduction.Equal(money(3_500)))
}

func TestBreakDown_ClientManaged_NeverInitialLetting(t *testing.T) {
	unit := managedUnit()
	unit.ManagementStatus = billing.ManagedClientManaged
	tenant := tenantFrom(2025, time.February)
	payment := rentFor(50_000, billing.MonthOf(2025, time.February))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ManagementFee.Equal(money(2_500)))
}

func TestBreakDown_HandoverMonth_WaivesServiceCharge(t *testing.T) {
	// GIVEN: A payment attributed to the unit's handover month
	// THEN: The service-charge deduction is waived

	unit := managedUnit()
	tenant := tenantFrom(2024, time.June) // long-standing lease; not initial letting
	payment := rentFor(50_000, billing.MonthOf(2025, time.January))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ServiceChargeDeduction.IsZero())
	assert.True(t, b.ManagementFee.Equal(money(2_500)))
	assert.True(t, b.NetToLandlord.Equal(money(47_500)))
}

func TestBreakDown_PartialPayment_ProRatesFee(t *testing.T) {
	// GIVEN: A half-rent payment in a regular month
	// THEN: The fee pro-rates to 2.5% of the standard rent

	unit := managedUnit()
	tenant := tenantFrom(2024, time.June)
	payment := rentFor(25_000, billing.MonthOf(2025, time.May))

	b := commission.BreakDown(payment, unit, tenant)

	assert.True(t, b.ManagementFee.Equal(money(1_250)), "fee %s", b.ManagementFee)
	assert.True(t, b.Gross.Equal(money(25_000)))
}

func TestBreakDown_RoundsToWholeUnits(t *testing.T) {
	unit := managedUnit()
	unit.RentAmount = money(33_333)
	tenant := tenantFrom(2024, time.June)
	payment := rentFor(33_333, billing.MonthOf(2025, time.May))

	b := commission.BreakDown(payment, unit, tenant)

	// 5% of 33,333 = 1,666.65, rounded to 1,667.
	assert.True(t, b.ManagementFee.Equal(money(1_667)), "fee %s", b.ManagementFee)
}

// =============================================================================
// STATEMENT TESTS
// =============================================================================

func TestBuildStatement_LumpSum_UnrollsPerMonth(t *testing.T) {
	// GIVEN: One 100,000 payment at 50,000 rent
	// WHEN: Building the statement
	// THEN: Two rows, one per covered month, months advancing

	unit := managedUnit()
	tenant := tenantFrom(2024, time.June)
	payments := []billing.Payment{rentFor(100_000, billing.MonthOf(2025, time.April))}

	st := commission.BuildStatement(tenant, unit, payments)

	require.Len(t, st.Rows, 2)
	assert.Equal(t, billing.MonthOf(2025, time.April), st.Rows[0].ForMonth)
	assert.Equal(t, billing.MonthOf(2025, time.May), st.Rows[1].ForMonth)
	assert.True(t, st.TotalGross.Equal(money(100_000)))
	assert.True(t, st.TotalFees.Equal(money(5_000)))
	assert.True(t, st.TotalServiceCharge.Equal(money(7_000)))
	assert.True(t, st.TotalNet.Equal(money(88_000)))
}

func TestBuildStatement_TrailingRemainder_PartialRow(t *testing.T) {
	// GIVEN: 70,000 paid at 50,000 rent
	// THEN: One full-month row plus a pro-rated 20,000 row

	unit := managedUnit()
	tenant := tenantFrom(2024, time.June)
	payments := []billing.Payment{rentFor(70_000, billing.MonthOf(2025, time.April))}

	st := commission.BuildStatement(tenant, unit, payments)

	require.Len(t, st.Rows, 2)
	assert.True(t, st.Rows[0].Gross.Equal(money(50_000)))
	assert.True(t, st.Rows[1].Gross.Equal(money(20_000)))
	assert.Equal(t, billing.MonthOf(2025, time.May), st.Rows[1].ForMonth)

	// Partial row fee: 5% * (20,000/50,000) * 50,000 = 1,000.
	assert.True(t, st.Rows[1].ManagementFee.Equal(money(1_000)))
}

func TestBuildStatement_IgnoresNonRentPayments(t *testing.T) {
	unit := managedUnit()
	tenant := tenantFrom(2024, time.June)
	payments := []billing.Payment{
		{ID: "p-w", TenantID: "t-1", Amount: money(1_500), Type: billing.TypeWater,
			Date: billing.NewDate(2025, time.April, 2)},
		{ID: "p-d", TenantID: "t-1", Amount: money(10_000), Type: billing.TypeDeposit,
			Date: billing.NewDate(2025, time.April, 2)},
	}

	st := commission.BuildStatement(tenant, unit, payments)

	assert.Empty(t, st.Rows)
	assert.True(t, st.TotalGross.IsZero())
}

func TestBuildStatement_InitialLettingFirstMonthOnly(t *testing.T) {
	// GIVEN: A lump covering the initial-letting month and the next
	// THEN: Only the first unrolled month carries the flat 50% fee

	unit := managedUnit()
	tenant := tenantFrom(2025, time.February)
	payments := []billing.Payment{rentFor(100_000, billing.MonthOf(2025, time.February))}

	st := commission.BuildStatement(tenant, unit, payments)

	require.Len(t, st.Rows, 2)
	assert.True(t, st.Rows[0].ManagementFee.Equal(money(25_000)))
	assert.True(t, st.Rows[0].ServiceChargeDeduction.IsZero())
	assert.True(t, st.Rows[1].ManagementFee.Equal(money(2_500)))
	assert.True(t, st.Rows[1].ServiceChargeDeduction.Equal(money(3_500)))
}
