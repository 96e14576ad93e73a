package billing

import "fmt"

// =============================================================================
// PAYMENT VALIDATION - Guards before any state mutation
// =============================================================================

// ValidatePayment checks amount and date constraints for a payment before
// it is applied. It has no side effects: a failed validation means nothing
// was applied anywhere.
//
// Rules:
//   - Non-adjustments: amount > 0 and <= 1,000,000
//   - Adjustments: amount non-zero, |amount| <= 1,000,000
//     (positive = debit, increases due; negative = credit)
//   - Date not in the future, and not before the lease start
func ValidatePayment(account Account, ptype PaymentType, amount Money, date Date, today Date) error {
	switch ptype {
	case TypeAdjustment:
		if amount.IsZero() {
			return &ValidationError{Reason: "adjustment amount must be non-zero"}
		}
		if amount.Abs().GreaterThan(maxPaymentAmount) {
			return &ValidationError{Reason: fmt.Sprintf("adjustment amount %s exceeds the %s limit", amount, maxPaymentAmount)}
		}
	case TypeRent, TypeDeposit, TypeServiceCharge, TypeWater, TypeOther:
		if !amount.IsPositive() {
			return &ValidationError{Reason: "payment amount must be greater than zero"}
		}
		if amount.GreaterThan(maxPaymentAmount) {
			return &ValidationError{Reason: fmt.Sprintf("payment amount %s exceeds the %s limit", amount, maxPaymentAmount)}
		}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown payment type %q", ptype)}
	}

	if date.After(today) {
		return &ValidationError{Reason: fmt.Sprintf("payment date %s is in the future", date)}
	}
	if !account.Lease.StartDate.IsZero() && date.Before(account.Lease.StartDate) {
		return &ValidationError{Reason: fmt.Sprintf("payment date %s precedes the lease start %s", date, account.Lease.StartDate)}
	}
	return nil
}
