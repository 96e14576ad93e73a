/*
Package billing provides the core rent-ledger engine.

PURPOSE:
  This package contains the types and algorithms that decide, for every
  resident account, how much is currently owed, how incoming money is
  applied, and how the full financial history is reconstructed. It is a
  library of pure transforms over in-memory snapshots; all I/O lives behind
  the Repository interface.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal money value (no floating point, ever)
  - Account: The live billing state of a tenant or homeowner
  - Payment: An immutable record of money received (or adjusted)
  - WaterMeterReading: Water liabilities, tracked in their own silo
  - LedgerEntry: A derived statement line, never persisted as truth

DESIGN PRINCIPLES:
  1. Purity: balance math is a pure fold; persistence is the caller's job
  2. Precision: decimal.Decimal for all money, whole-unit rounding at edges
  3. Closed enums: payment types and statuses are typed constants, matched
     exhaustively by every consumer
  4. Reconstruction: the payment history can always rebuild the account

SEE ALSO:
  - month.go: Month and Date calendar primitives
  - apply.go: Payment application
  - reconcile.go: Monthly accrual
  - ledger.go: Full history reconstruction
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal money value
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func NewMoneyFromFloat(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                     { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool    { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) Round() Money                   { return Money{Value: m.Value.Round(0)} }
func (m Money) String() string                 { return m.Value.String() }

// ClampZero returns the value floored at zero. Balances never go negative;
// the excess always moves to the complementary side.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// =============================================================================
// CLOSED ENUMS
// =============================================================================

// ResidentType discriminates tenants (billed rent) from homeowners
// (billed unit service charge).
type ResidentType string

const (
	ResidentTenant    ResidentType = "Tenant"
	ResidentHomeowner ResidentType = "Homeowner"
)

// PaymentStatus is the account-level standing recomputed on every mutation.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "Paid"
	StatusPending PaymentStatus = "Pending"
	StatusOverdue PaymentStatus = "Overdue"
)

// PaymentType is a closed set. Amount is signed only for TypeAdjustment;
// every other type is strictly positive.
type PaymentType string

const (
	TypeRent          PaymentType = "Rent"
	TypeDeposit       PaymentType = "Deposit"
	TypeServiceCharge PaymentType = "ServiceCharge"
	TypeWater         PaymentType = "Water"
	TypeAdjustment    PaymentType = "Adjustment"
	TypeOther         PaymentType = "Other"
)

// HandoverStatus tracks whether a homeowner unit has been handed over.
// Service charge only accrues after handover (with a waiver window).
type HandoverStatus string

const (
	HandoverPending HandoverStatus = "Pending Hand Over"
	HandedOver      HandoverStatus = "Handed Over"
)

// ManagementStatus of a unit. Drives the commission rules and which units
// appear in the service-charge reports.
type ManagementStatus string

const (
	ManagedRentedForClients ManagementStatus = "Rented for Clients"
	ManagedClientManaged    ManagementStatus = "Client Managed"
)

// WaterReadingStatus for the siloed water ledger.
type WaterReadingStatus string

const (
	WaterPending WaterReadingStatus = "Pending"
	WaterPaid    WaterReadingStatus = "Paid"
)

// =============================================================================
// ACCOUNT - Live billing state for a tenant or homeowner
// =============================================================================

// Lease carries the recurring billing terms of an account.
type Lease struct {
	StartDate     Date
	Rent          Money
	ServiceCharge Money
	PaymentStatus PaymentStatus

	// LastBilledPeriod is the most recent month already accrued into
	// DueBalance. Zero value means never billed; reconciliation then
	// derives it from the billing anchor.
	LastBilledPeriod Month

	LastPaymentDate Date
}

// Account is the incrementally-maintained billing state. DueBalance and
// AccountBalance are complementary: at any settled instant at most one of
// them is non-zero.
type Account struct {
	ID           string
	Name         string
	ResidentType ResidentType
	Lease        Lease

	// DueBalance is unpaid rent/service-charge plus deposits. Never negative.
	DueBalance Money

	// AccountBalance is overpayment credit. Never negative.
	AccountBalance Money

	SecurityDeposit Money
	WaterDeposit    Money

	PropertyID string
	UnitName   string

	// Archived marks a moved-out account (soft delete).
	Archived bool
}

// MonthlyCharge is the amount accrued per billed month: rent for tenants,
// the unit's service charge for homeowners.
func (a Account) MonthlyCharge(unit *Unit) Money {
	switch a.ResidentType {
	case ResidentHomeowner:
		if unit == nil {
			return ZeroMoney()
		}
		return unit.ServiceCharge
	default:
		return a.Lease.Rent
	}
}

// =============================================================================
// UNIT
// =============================================================================

type Unit struct {
	Name             string
	PropertyID       string
	RentAmount       Money
	ServiceCharge    Money
	HandoverDate     Date // homeowner units only; zero if not handed over
	HandoverStatus   HandoverStatus
	ManagementStatus ManagementStatus
	Ownership        string
	LandlordID       string
}

// =============================================================================
// PAYMENT - Immutable record of money received
// =============================================================================

type Payment struct {
	ID       string
	TenantID string

	// Amount is signed only for TypeAdjustment (positive = debit,
	// negative = credit); strictly positive for every other type.
	Amount Money

	Date Date
	Type PaymentType

	// RentForMonth is the month the money is attributed to, independent
	// of the date it was received.
	RentForMonth Month

	Status string
}

// =============================================================================
// WATER METER READING - Siloed water liability
// =============================================================================

// WaterMeterReading is a water bill. Water liabilities never enter
// DueBalance/AccountBalance; they are tracked and settled independently.
type WaterMeterReading struct {
	ID       string
	TenantID string
	Amount   Money
	Date     Date
	Status   WaterReadingStatus
}

// =============================================================================
// LEDGER ENTRY - Derived statement line
// =============================================================================

// LedgerEntry is one line of a reconstructed statement. It is produced
// fresh on every reconstruction and is never persisted as truth.
type LedgerEntry struct {
	Date        Date
	Description string
	Charge      Money
	Payment     Money
	Balance     Money // running balance after this line
	ForMonth    Month
}

// =============================================================================
// SHARED STATUS RULE
// =============================================================================

// StatusFor applies the day-of-month rule shared by validation, payment
// application and reconciliation: nothing due means Paid; otherwise the
// account is Pending through the 5th and Overdue after.
func StatusFor(due Money, evaluatedAt Date) PaymentStatus {
	if !due.IsPositive() {
		return StatusPaid
	}
	if evaluatedAt.DayOfMonth() <= 5 {
		return StatusPending
	}
	return StatusOverdue
}

// maxPaymentAmount bounds a single payment or adjustment.
var maxPaymentAmount = NewMoney(1_000_000)

// Clock returns the current date; injectable for tests.
type Clock func() Date

func SystemClock() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}
