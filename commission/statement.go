package commission

import (
	"github.com/warp/rent-ledger/billing"
)

// =============================================================================
// LANDLORD STATEMENT - Per-month breakdown rows from the payment history
// =============================================================================

// StatementRow is one (payment, month) breakdown.
type StatementRow struct {
	PaymentID   string
	PaymentDate billing.Date
	Breakdown
}

// Statement is the landlord's payout view for one unit.
type Statement struct {
	LandlordID string
	UnitName   string
	Rows       []StatementRow

	TotalGross         billing.Money
	TotalServiceCharge billing.Money
	TotalFees          billing.Money
	TotalNet           billing.Money
}

// BuildStatement unrolls the tenant's rent payments into per-month
// breakdown rows. A lump-sum payment spanning several months becomes one
// synthetic full-rent payment per covered month; a trailing remainder (or
// a payment smaller than one month's rent) becomes a partial row pro-rated
// by the usual fee rule.
func BuildStatement(tenant billing.Account, unit billing.Unit, payments []billing.Payment) Statement {
	st := Statement{
		LandlordID:         unit.LandlordID,
		UnitName:           unit.Name,
		TotalGross:         billing.ZeroMoney(),
		TotalServiceCharge: billing.ZeroMoney(),
		TotalFees:          billing.ZeroMoney(),
		TotalNet:           billing.ZeroMoney(),
	}

	for _, p := range payments {
		if p.Type != billing.TypeRent {
			continue
		}
		for _, row := range unroll(p, unit, tenant) {
			st.Rows = append(st.Rows, row)
			st.TotalGross = st.TotalGross.Add(row.Gross)
			st.TotalServiceCharge = st.TotalServiceCharge.Add(row.ServiceChargeDeduction)
			st.TotalFees = st.TotalFees.Add(row.ManagementFee)
			st.TotalNet = st.TotalNet.Add(row.NetToLandlord)
		}
	}
	return st
}

// unroll splits one rent payment into synthetic per-month payments while
// the remaining amount covers a full month's rent, then a partial row for
// any remainder.
func unroll(p billing.Payment, unit billing.Unit, tenant billing.Account) []StatementRow {
	rent := unit.RentAmount
	if rent.IsZero() || p.Amount.LessThan(rent) {
		// Zero-rent unit or partial payment: single row, no unrolling.
		return []StatementRow{{
			PaymentID:   p.ID,
			PaymentDate: p.Date,
			Breakdown:   BreakDown(p, unit, tenant),
		}}
	}

	var rows []StatementRow
	remaining := p.Amount
	month := p.RentForMonth
	for remaining.GreaterOrEqual(rent) {
		synthetic := p
		synthetic.Amount = rent
		synthetic.RentForMonth = month
		rows = append(rows, StatementRow{
			PaymentID:   p.ID,
			PaymentDate: p.Date,
			Breakdown:   BreakDown(synthetic, unit, tenant),
		})
		remaining = remaining.Sub(rent)
		month = month.Next()
	}

	if remaining.IsPositive() {
		synthetic := p
		synthetic.Amount = remaining
		synthetic.RentForMonth = month
		rows = append(rows, StatementRow{
			PaymentID:   p.ID,
			PaymentDate: p.Date,
			Breakdown:   BreakDown(synthetic, unit, tenant),
		})
	}
	return rows
}
