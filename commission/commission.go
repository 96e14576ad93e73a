/*
Package commission decomposes rent payments into the landlord's share.

PURPOSE:
  For every rent payment the back office needs three numbers: what the
  management company keeps (management fee), what is withheld for the
  service-charge account, and what is paid out to the landlord. This
  package computes that split and rolls it up into landlord statements.

RULES:
  Service charge:  deducted at the unit's standard rate, waived entirely
                   for the unit's handover month.
  Management fee:  5% of the unit's standard rent, pro-rated by
                   amount/rent for partial or lump payments.
  Initial letting: a "Rented for Clients" unit whose first leased month
                   falls within 3 months of handover pays a flat 50% fee
                   on that first month's payment, with no service-charge
                   deduction.

  All money values are rounded to whole units.

PURITY:
  BreakDown has no knowledge of running balances. The statement generator
  unrolls lump sums into one synthetic per-month payment per iteration and
  invokes BreakDown once per (payment, month) pair.
*/
package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/billing"
)

var (
	standardFeeRate       = decimal.NewFromFloat(0.05)
	initialLettingFeeRate = decimal.NewFromFloat(0.5)
)

// initialLettingWindowMonths bounds how long after handover a first
// tenancy still counts as an initial letting.
const initialLettingWindowMonths = 3

// =============================================================================
// TRANSACTION BREAKDOWN
// =============================================================================

// Breakdown is the decomposition of a single rent payment.
type Breakdown struct {
	ForMonth               billing.Month
	Gross                  billing.Money
	ServiceChargeDeduction billing.Money
	ManagementFee          billing.Money
	NetToLandlord          billing.Money
}

// BreakDown splits one rent payment into landlord-net, management fee and
// service-charge portions. Pure function.
func BreakDown(payment billing.Payment, unit billing.Unit, tenant billing.Account) Breakdown {
	gross := payment.Amount.Round()

	serviceCharge := unit.ServiceCharge
	if !unit.HandoverDate.IsZero() && payment.RentForMonth.Equal(unit.HandoverDate.Month()) {
		// Handover month: service charge waived.
		serviceCharge = billing.ZeroMoney()
	}

	var fee billing.Money
	if isInitialLetting(payment, unit, tenant) {
		fee = unit.RentAmount.Mul(initialLettingFeeRate)
		serviceCharge = billing.ZeroMoney()
	} else {
		fee = unit.RentAmount.Mul(standardFeeRate).Mul(prorataRatio(payment.Amount, unit.RentAmount))
	}

	fee = fee.Round()
	serviceCharge = serviceCharge.Round()

	return Breakdown{
		ForMonth:               payment.RentForMonth,
		Gross:                  gross,
		ServiceChargeDeduction: serviceCharge,
		ManagementFee:          fee,
		NetToLandlord:          gross.Sub(serviceCharge).Sub(fee),
	}
}

// isInitialLetting checks the flat-fee exception: a Rented-for-Clients
// unit, paid for the tenant's first leased month, with that month within
// the letting window after handover.
func isInitialLetting(payment billing.Payment, unit billing.Unit, tenant billing.Account) bool {
	if unit.ManagementStatus != billing.ManagedRentedForClients {
		return false
	}
	if unit.HandoverDate.IsZero() || tenant.Lease.StartDate.IsZero() {
		return false
	}
	firstMonth := tenant.Lease.StartDate.Month()
	if !payment.RentForMonth.Equal(firstMonth) {
		return false
	}
	elapsed := unit.HandoverDate.Month().MonthsUntil(firstMonth)
	return elapsed >= 0 && elapsed <= initialLettingWindowMonths
}

// prorataRatio scales the standard fee for partial and lump payments.
func prorataRatio(amount, rent billing.Money) decimal.Decimal {
	if rent.IsZero() {
		return decimal.Zero
	}
	return amount.Value.Div(rent.Value)
}
