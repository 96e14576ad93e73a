/*
Package arrears derives rent-only arrears from live account balances.

PURPOSE:
  Read-only analytics over account snapshots. DueBalance mixes rent,
  service charge and deposits, but never water: water bills live in their
  own silo. For display, however, a tenant's "rent-only" arrears subtracts
  any pending water amounts that have leaked into reporting totals, so the
  arrears list shows what is genuinely owed on the tenancy.

  Nothing here mutates stored balances; these are pure transforms that may
  run against a stale snapshot.

OUTPUTS:
  TenantsInArrears:  every account with positive rent-only arrears,
                     largest first.
  LandlordBreakdown: per-unit exposure for one landlord - occupant arrears
                     for rented units, standalone service-charge liability
                     for vacant handed-over units.
*/
package arrears

import (
	"sort"

	"github.com/warp/rent-ledger/billing"
)

// =============================================================================
// TENANT ARREARS
// =============================================================================

// TenantArrears is one row of the arrears report.
type TenantArrears struct {
	Account billing.Account

	// RentArrears is DueBalance minus the tenant's pending water bills,
	// clamped at zero. Display-only; the stored DueBalance is untouched.
	RentArrears billing.Money

	PendingWater billing.Money
}

// RentOnlyArrears un-silos water for display: pending water bills are
// subtracted from the due balance so the report shows tenancy debt only.
func RentOnlyArrears(account billing.Account, readings []billing.WaterMeterReading) (arrears, pendingWater billing.Money) {
	pendingWater = billing.ZeroMoney()
	for _, r := range readings {
		if r.TenantID == account.ID && r.Status == billing.WaterPending {
			pendingWater = pendingWater.Add(r.Amount)
		}
	}
	return account.DueBalance.Sub(pendingWater).ClampZero(), pendingWater
}

// TenantsInArrears returns every account with positive rent-only arrears,
// sorted descending by amount.
func TenantsInArrears(accounts []billing.Account, readings []billing.WaterMeterReading) []TenantArrears {
	var result []TenantArrears
	for _, account := range accounts {
		if account.Archived {
			continue
		}
		amount, water := RentOnlyArrears(account, readings)
		if !amount.IsPositive() {
			continue
		}
		result = append(result, TenantArrears{
			Account:      account,
			RentArrears:  amount,
			PendingWater: water,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RentArrears.GreaterThan(result[j].RentArrears)
	})
	return result
}

// =============================================================================
// LANDLORD EXPOSURE
// =============================================================================

// UnitExposure is one unit's contribution to a landlord's deductions.
type UnitExposure struct {
	Unit billing.Unit

	// Occupant is nil for vacant units.
	Occupant *billing.Account

	// TenantArrears is the occupant's rent-only arrears (occupied units).
	TenantArrears billing.Money

	// VacantServiceCharge is the unit's standalone service-charge
	// liability (vacant, handed-over units).
	VacantServiceCharge billing.Money
}

// LandlordBreakdown sums a landlord's exposure across their units.
type LandlordBreakdown struct {
	LandlordID      string
	Units           []UnitExposure
	TotalDeductions billing.Money
}

// BreakdownForLandlord reports, per owned unit, either the occupant's
// rent-only arrears or - for a vacant, handed-over unit - the service
// charge the landlord carries themselves.
func BreakdownForLandlord(landlordID string, units []billing.Unit, occupants map[string]*billing.Account, readings []billing.WaterMeterReading) LandlordBreakdown {
	breakdown := LandlordBreakdown{
		LandlordID:      landlordID,
		TotalDeductions: billing.ZeroMoney(),
	}

	for _, unit := range units {
		exposure := UnitExposure{
			Unit:                unit,
			TenantArrears:       billing.ZeroMoney(),
			VacantServiceCharge: billing.ZeroMoney(),
		}

		if occupant := occupants[unit.Name]; occupant != nil {
			exposure.Occupant = occupant
			exposure.TenantArrears, _ = RentOnlyArrears(*occupant, readings)
			breakdown.TotalDeductions = breakdown.TotalDeductions.Add(exposure.TenantArrears)
		} else if unit.HandoverStatus == billing.HandedOver {
			exposure.VacantServiceCharge = unit.ServiceCharge
			breakdown.TotalDeductions = breakdown.TotalDeductions.Add(unit.ServiceCharge)
		}

		breakdown.Units = append(breakdown.Units, exposure)
	}
	return breakdown
}
