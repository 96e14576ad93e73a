/*
ledger.go - Full ledger reconstruction

PURPOSE:
  Replays an account's complete charge/payment history into an ordered,
  balance-annotated timeline. This is the authoritative function: it is
  used both to render a statement and to repair a drifted live account.
  Fed the same payment history, it must reproduce exactly the numbers the
  incremental path (reconcile + apply) would have produced.

LINE SYNTHESIS:
  - One charge line per month between the billing anchor and the as-of
    month. An owner holding several units gets one consolidated line per
    month.
  - One line per deposit (security/water) at lease start.
  - One line per historical payment; positive adjustments appear on the
    charge side, negative adjustments on the payment side.
  - One charge line per water meter reading when water is included.

ORDERING:
  Chronological. When two lines share the exact same date, charges sort
  before payments.

BALANCE SCAN:
  A forward scan accumulates balance += charge - payment per line.
  Final DueBalance = max(0, balance); AccountBalance = max(0, -balance).

REPAIR:
  Repair copies the reconstruction outputs back onto the account. It is an
  explicit, operator-triggered operation; CheckDrift detects when it is
  needed.
*/
package billing

import (
	"fmt"
	"sort"
)

// LedgerOptions selects which charge categories enter the reconstruction.
type LedgerOptions struct {
	IncludeRent          bool
	IncludeServiceCharge bool
	IncludeWater         bool
}

// AllCategories includes every charge category.
func AllCategories() LedgerOptions {
	return LedgerOptions{IncludeRent: true, IncludeServiceCharge: true, IncludeWater: true}
}

// LedgerResult is the reconstructed timeline with its final balances.
type LedgerResult struct {
	Entries        []LedgerEntry
	DueBalance     Money
	AccountBalance Money

	// LastBilledPeriod is the last month a charge line was synthesized
	// for; zero when no months were billable.
	LastBilledPeriod Month
}

// ledgerLine is an unscanned entry; charge and payment are mutually
// exclusive.
type ledgerLine struct {
	date        Date
	description string
	charge      Money
	payment     Money
	forMonth    Month
}

// BuildLedger reconstructs the account's financial history up to asOf.
// Pure function over the supplied snapshots; the repository is never
// touched.
//
// units carries every unit attributable to the account (one for a tenant,
// possibly several for a multi-unit homeowner).
func BuildLedger(account Account, units []Unit, payments []Payment, readings []WaterMeterReading, asOf Date, opts LedgerOptions) LedgerResult {
	var lines []ledgerLine
	lastBilled := Month{}

	// Monthly charge lines from the billing anchor through the as-of month.
	switch account.ResidentType {
	case ResidentTenant:
		if opts.IncludeRent && !account.Lease.StartDate.IsZero() && !account.Lease.Rent.IsZero() {
			anchor := account.Lease.StartDate.Month()
			for _, m := range MonthsBetween(anchor, asOf.Month()) {
				lines = append(lines, ledgerLine{
					date:        chargeDate(m, account.Lease.StartDate),
					description: fmt.Sprintf("Rent for %s", m),
					charge:      account.Lease.Rent,
					forMonth:    m,
				})
				lastBilled = m
			}
		}
	case ResidentHomeowner:
		if opts.IncludeServiceCharge {
			lines, lastBilled = appendServiceChargeLines(lines, units, asOf)
		}
	}

	// One-time deposit lines at lease start.
	if opts.IncludeRent && !account.Lease.StartDate.IsZero() {
		if account.SecurityDeposit.IsPositive() {
			lines = append(lines, ledgerLine{
				date:        account.Lease.StartDate,
				description: "Security deposit",
				charge:      account.SecurityDeposit,
			})
		}
		if account.WaterDeposit.IsPositive() {
			lines = append(lines, ledgerLine{
				date:        account.Lease.StartDate,
				description: "Water deposit",
				charge:      account.WaterDeposit,
			})
		}
	}

	// Water bills enter the timeline only when requested; the live
	// balances keep them siloed.
	if opts.IncludeWater {
		for _, r := range readings {
			if r.Amount.IsZero() {
				continue
			}
			lines = append(lines, ledgerLine{
				date:        r.Date,
				description: "Water bill",
				charge:      r.Amount,
			})
		}
	}

	// Historical payments.
	for _, p := range payments {
		if p.Type == TypeWater && !opts.IncludeWater {
			continue
		}
		lines = append(lines, paymentLine(p))
	}

	// Chronological merge; charges sort before payments on date ties.
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].date.Equal(lines[j].date) {
			return lines[i].date.Before(lines[j].date)
		}
		return lines[i].charge.IsPositive() && !lines[j].charge.IsPositive()
	})

	// Forward balance scan.
	entries := make([]LedgerEntry, 0, len(lines))
	balance := ZeroMoney()
	for _, l := range lines {
		balance = balance.Add(l.charge).Sub(l.payment)
		entries = append(entries, LedgerEntry{
			Date:        l.date,
			Description: l.description,
			Charge:      l.charge,
			Payment:     l.payment,
			Balance:     balance,
			ForMonth:    l.forMonth,
		})
	}

	return LedgerResult{
		Entries:          entries,
		DueBalance:       balance.ClampZero(),
		AccountBalance:   balance.Neg().ClampZero(),
		LastBilledPeriod: lastBilled,
	}
}

// chargeDate places a monthly charge on the 1st, except the anchor month
// which is charged on the lease start day so it sorts after any same-month
// history that precedes move-in.
func chargeDate(m Month, leaseStart Date) Date {
	if m.Equal(leaseStart.Month()) {
		return leaseStart
	}
	return m.Start()
}

// appendServiceChargeLines emits one consolidated service-charge line per
// month across all handed-over units, honoring each unit's waiver window.
func appendServiceChargeLines(lines []ledgerLine, units []Unit, asOf Date) ([]ledgerLine, Month) {
	// Earliest billable month across the owner's units.
	var first Month
	for _, u := range units {
		if u.HandoverDate.IsZero() || u.ServiceCharge.IsZero() {
			continue
		}
		start := ServiceChargeStart(u.HandoverDate)
		if first.IsZero() || start.Before(first) {
			first = start
		}
	}
	if first.IsZero() {
		return lines, Month{}
	}

	lastBilled := Month{}
	for _, m := range MonthsBetween(first, asOf.Month()) {
		total := ZeroMoney()
		for _, u := range units {
			if u.HandoverDate.IsZero() || InWaiverWindow(u, m) {
				continue
			}
			total = total.Add(u.ServiceCharge)
		}
		if total.IsZero() {
			continue
		}
		lines = append(lines, ledgerLine{
			date:        m.Start(),
			description: fmt.Sprintf("Service charge for %s", m),
			charge:      total,
			forMonth:    m,
		})
		lastBilled = m
	}
	return lines, lastBilled
}

// paymentLine maps a historical payment onto the timeline. Positive
// adjustments are debits and land on the charge side.
func paymentLine(p Payment) ledgerLine {
	if p.Type == TypeAdjustment {
		if p.Amount.IsNegative() {
			return ledgerLine{date: p.Date, description: "Adjustment (credit)", payment: p.Amount.Abs(), forMonth: p.RentForMonth}
		}
		return ledgerLine{date: p.Date, description: "Adjustment (debit)", charge: p.Amount, forMonth: p.RentForMonth}
	}

	desc := fmt.Sprintf("%s payment", p.Type)
	if !p.RentForMonth.IsZero() {
		desc = fmt.Sprintf("%s payment for %s", p.Type, p.RentForMonth)
	}
	return ledgerLine{date: p.Date, description: desc, payment: p.Amount, forMonth: p.RentForMonth}
}

// =============================================================================
// DRIFT DETECTION AND REPAIR
// =============================================================================

// driftTolerance absorbs whole-unit rounding between the incremental and
// reconstructed paths.
var driftTolerance = NewMoney(1)

// CheckDrift compares the stored balances against a reconstruction and
// returns an InconsistentStateError when they disagree beyond the rounding
// tolerance.
func CheckDrift(account Account, result LedgerResult) error {
	dueDelta := account.DueBalance.Sub(result.DueBalance).Abs()
	creditDelta := account.AccountBalance.Sub(result.AccountBalance).Abs()
	if dueDelta.GreaterThan(driftTolerance) || creditDelta.GreaterThan(driftTolerance) {
		return &InconsistentStateError{
			AccountID:           account.ID,
			StoredDue:           account.DueBalance,
			ReconstructedDue:    result.DueBalance,
			StoredCredit:        account.AccountBalance,
			ReconstructedCredit: result.AccountBalance,
		}
	}
	return nil
}

// Repair overwrites the live balances with the reconstruction outputs.
// This is the truth-repair path: explicit, audited, operator-triggered.
func Repair(account Account, result LedgerResult, asOf Date) Account {
	account.DueBalance = result.DueBalance
	account.AccountBalance = result.AccountBalance
	if !result.LastBilledPeriod.IsZero() {
		account.Lease.LastBilledPeriod = result.LastBilledPeriod
	}
	account.Lease.PaymentStatus = StatusFor(account.DueBalance, asOf)
	return account
}
