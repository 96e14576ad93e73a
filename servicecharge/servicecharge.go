/*
Package servicecharge reports per-period service-charge account status.

PURPOSE:
  Answers, for a selected month, "has this unit's service charge been
  paid?" across every client-managed or managed-but-vacant unit, grouped
  by owner. Also accumulates the arrears a vacant, handed-over,
  client-managed unit has built up since its first billable month.

STATUS RULE (per unit, per month):
  N/A      the month falls inside the unit's handover waiver window, or
           the charge is zero
  Paid     a ServiceCharge payment exists attributed to that month
  Pending  otherwise

ARREARS WALK:
  For vacant handed-over client-managed units, every month from the first
  billable month through the report month is visited; each month's charge
  is marked paid by depleting a running total of the account's historical
  service-charge payments oldest-first, and unanswered months sum into
  arrears.

GROUPING:
  A group's status is Pending if any unit is Pending, N/A only if every
  unit is N/A, else Paid.
*/
package servicecharge

import (
	"sort"

	"github.com/warp/rent-ledger/billing"
)

// PeriodStatus is the tri-state answer for one unit-month.
type PeriodStatus string

const (
	Paid          PeriodStatus = "Paid"
	Pending       PeriodStatus = "Pending"
	NotApplicable PeriodStatus = "N/A"
)

// =============================================================================
// PER-UNIT STATUS
// =============================================================================

// UnitReport is one row of the service-charge report.
type UnitReport struct {
	Unit    billing.Unit
	OwnerID string
	Month   billing.Month
	Status  PeriodStatus
	Charge  billing.Money

	// Arrears accumulated by a vacant handed-over unit since its first
	// billable month. Zero for occupied units.
	Arrears billing.Money

	// UnpaidMonths lists the months the arrears walk left unanswered.
	UnpaidMonths []billing.Month
}

// StatusFor computes the Paid/Pending/N-A status of one unit for one month
// from the owner's payment history.
func StatusFor(unit billing.Unit, payments []billing.Payment, month billing.Month) PeriodStatus {
	if unit.ServiceCharge.IsZero() || unit.HandoverDate.IsZero() || billing.InWaiverWindow(unit, month) {
		return NotApplicable
	}
	if month.Before(billing.ServiceChargeStart(unit.HandoverDate)) {
		return NotApplicable
	}
	for _, p := range payments {
		if p.Type == billing.TypeServiceCharge && p.RentForMonth.Equal(month) {
			return Paid
		}
	}
	return Pending
}

// VacantArrears walks every month from the unit's first billable month
// through the report month, summing the service charge per unanswered
// month. Months are settled by depleting the account's historical
// service-charge payment total oldest-first.
func VacantArrears(unit billing.Unit, payments []billing.Payment, reportMonth billing.Month) (billing.Money, []billing.Month) {
	arrears := billing.ZeroMoney()
	if unit.ServiceCharge.IsZero() || unit.HandoverDate.IsZero() {
		return arrears, nil
	}

	available := billing.ZeroMoney()
	for _, p := range payments {
		if p.Type == billing.TypeServiceCharge {
			available = available.Add(p.Amount)
		}
	}

	var unpaid []billing.Month
	first := billing.ServiceChargeStart(unit.HandoverDate)
	for _, m := range billing.MonthsBetween(first, reportMonth) {
		if available.GreaterOrEqual(unit.ServiceCharge) {
			available = available.Sub(unit.ServiceCharge)
			continue
		}
		arrears = arrears.Add(unit.ServiceCharge)
		unpaid = append(unpaid, m)
	}
	return arrears, unpaid
}

// =============================================================================
// REPORT BUILDER
// =============================================================================

// UnitInput couples a unit with its occupancy and owner payment history.
type UnitInput struct {
	Unit     billing.Unit
	OwnerID  string
	Occupied bool

	// Payments is the history of the account the unit's service charge is
	// billed to (the self-managing owner, or the owner's vacant-unit
	// account).
	Payments []billing.Payment
}

// Reportable filters to the units the report covers: client-managed
// units, and any managed unit standing vacant.
func Reportable(in UnitInput) bool {
	if in.Unit.ManagementStatus == billing.ManagedClientManaged {
		return true
	}
	return !in.Occupied
}

// BuildReport computes one row per reportable unit for the report month.
func BuildReport(inputs []UnitInput, month billing.Month) []UnitReport {
	var rows []UnitReport
	for _, in := range inputs {
		if !Reportable(in) {
			continue
		}
		row := UnitReport{
			Unit:    in.Unit,
			OwnerID: in.OwnerID,
			Month:   month,
			Status:  StatusFor(in.Unit, in.Payments, month),
			Charge:  in.Unit.ServiceCharge,
			Arrears: billing.ZeroMoney(),
		}
		if !in.Occupied && in.Unit.HandoverStatus == billing.HandedOver &&
			in.Unit.ManagementStatus == billing.ManagedClientManaged {
			row.Arrears, row.UnpaidMonths = VacantArrears(in.Unit, in.Payments, month)
		}
		rows = append(rows, row)
	}
	return rows
}

// =============================================================================
// OWNER GROUPING
// =============================================================================

// OwnerGroup rolls up one owner's units.
type OwnerGroup struct {
	OwnerID      string
	Units        []UnitReport
	Status       PeriodStatus
	TotalCharge  billing.Money
	TotalArrears billing.Money
}

// GroupByOwner groups report rows by owner. Group status: Pending if any
// unit is Pending, N/A only if every unit is N/A, else Paid.
func GroupByOwner(rows []UnitReport) []OwnerGroup {
	byOwner := make(map[string]*OwnerGroup)
	var order []string
	for _, row := range rows {
		group, ok := byOwner[row.OwnerID]
		if !ok {
			group = &OwnerGroup{
				OwnerID:      row.OwnerID,
				TotalCharge:  billing.ZeroMoney(),
				TotalArrears: billing.ZeroMoney(),
			}
			byOwner[row.OwnerID] = group
			order = append(order, row.OwnerID)
		}
		group.Units = append(group.Units, row)
		group.TotalArrears = group.TotalArrears.Add(row.Arrears)
		if row.Status != NotApplicable {
			group.TotalCharge = group.TotalCharge.Add(row.Charge)
		}
	}

	sort.Strings(order)
	groups := make([]OwnerGroup, 0, len(order))
	for _, ownerID := range order {
		group := byOwner[ownerID]
		group.Status = groupStatus(group.Units)
		groups = append(groups, *group)
	}
	return groups
}

func groupStatus(units []UnitReport) PeriodStatus {
	allNA := true
	for _, u := range units {
		switch u.Status {
		case Pending:
			return Pending
		case Paid:
			allNA = false
		}
	}
	if allNA {
		return NotApplicable
	}
	return Paid
}
