/*
reconcile.go - Monthly billing reconciliation

PURPOSE:
  Advances an account's last-billed period forward to a target date,
  accruing one monthly charge per calendar month. This is the only code
  that moves LastBilledPeriod, and it is idempotent: re-running within the
  same month never changes DueBalance or LastBilledPeriod.

BILLING ANCHOR:
  Tenants accrue from the lease start month. Homeowners accrue from the
  first month after the handover waiver window:
    - handed over on day <= 10 of month M: accrual starts M+1 (M waived)
    - handed over after day 10:            accrual starts M+2 (M, M+1 waived)

  When LastBilledPeriod is empty, it is initialized to anchor-1 so the
  anchor month itself is the first month accrued. Accounts are created
  with the first month's charges already in the initial due and
  LastBilledPeriod pre-set to that month, so reconciliation never
  double-bills lease-start charges.

CREDIT OFFSET:
  Any existing AccountBalance is applied against the newly accrued total
  before it is added to DueBalance.

SEE ALSO:
  - ledger.go: Reconstruction uses the same anchor rules
  - apply.go: Payment application after accrual
*/
package billing

// ReconcileResult reports what a reconciliation run did.
type ReconcileResult struct {
	MonthsAccrued int
	ChargeAccrued Money

	// Mutated is false when the run was status-only (already billed
	// through the evaluation month, or monthly charge is zero).
	Mutated bool
}

// BillingAnchor returns the first month in which charges accrue for the
// account, and whether an anchor could be determined at all.
//
// Tenants anchor on the lease start month. Homeowners anchor on the
// handover waiver rule; a homeowner unit with no handover date has no
// anchor and accrues nothing.
func BillingAnchor(account Account, unit *Unit) (Month, bool) {
	switch account.ResidentType {
	case ResidentHomeowner:
		if unit == nil || unit.HandoverDate.IsZero() {
			return Month{}, false
		}
		return ServiceChargeStart(unit.HandoverDate), true
	default:
		if account.Lease.StartDate.IsZero() {
			return Month{}, false
		}
		return account.Lease.StartDate.Month(), true
	}
}

// ServiceChargeStart derives the first billable month from the handover
// date: day <= 10 waives the handover month only; after the 10th the next
// month is waived too.
func ServiceChargeStart(handover Date) Month {
	if handover.DayOfMonth() <= 10 {
		return handover.Month().Next()
	}
	return handover.Month().AddMonths(2)
}

// InWaiverWindow reports whether month falls inside the unit's handover
// waiver window (no service charge billed).
func InWaiverWindow(unit Unit, month Month) bool {
	if unit.HandoverDate.IsZero() {
		return false
	}
	return month.Before(ServiceChargeStart(unit.HandoverDate))
}

// Reconcile advances the account's billing to the month containing asOf,
// accruing one monthly charge per month advanced. Pure function: returns
// the updated account and a result describing the run.
//
// Idempotence is the core correctness property: a second call with the
// same evaluation date performs a status-only recompute and changes
// nothing else.
func Reconcile(account Account, unit *Unit, asOf Date) (Account, ReconcileResult) {
	charge := account.MonthlyCharge(unit)
	target := asOf.Month()

	lastBilled := account.Lease.LastBilledPeriod
	if lastBilled.IsZero() {
		anchor, ok := BillingAnchor(account, unit)
		if !ok {
			account.Lease.PaymentStatus = StatusFor(account.DueBalance, asOf)
			return account, ReconcileResult{}
		}
		lastBilled = anchor.Previous()
	}

	if charge.IsZero() || !lastBilled.Before(target) {
		// Already billed through the evaluation month, or nothing to
		// bill. Status recompute only; LastBilledPeriod untouched.
		account.Lease.PaymentStatus = StatusFor(account.DueBalance, asOf)
		return account, ReconcileResult{}
	}

	accrued := ZeroMoney()
	months := 0
	for period := lastBilled.Next(); period.BeforeOrEqual(target); period = period.Next() {
		accrued = accrued.Add(charge)
		lastBilled = period
		months++
	}

	// Existing credit offsets the new accrual before it hits the due side.
	net := account.DueBalance.Sub(account.AccountBalance).Add(accrued)
	account.DueBalance = net.ClampZero()
	account.AccountBalance = net.Neg().ClampZero()
	account.Lease.LastBilledPeriod = lastBilled
	account.Lease.PaymentStatus = StatusFor(account.DueBalance, asOf)

	return account, ReconcileResult{
		MonthsAccrued: months,
		ChargeAccrued: accrued,
		Mutated:       true,
	}
}
