/*
apply.go - Payment application

PURPOSE:
  Applies one already-validated payment to an account's balances. This is
  a pure fold: applying a batch of payments is a reduction over the inputs,
  trivially testable per step and safe to run inside a transaction retry.

BALANCE MODEL:
  DueBalance and AccountBalance are two sides of one net position:

    net = DueBalance - AccountBalance

  Every application works on the net position and splits it back, which
  keeps the complementarity invariant (never both positive) by
  construction.

APPLICATION RULES:
  Adjustment:  net += amount  (positive = debit, negative = credit)
  All others:  amount + existing credit offsets due first; leftover
               becomes credit.

  Both reduce to net -= effective credit, so the split at the end is the
  single place balances are materialized.

SEE ALSO:
  - validate.go: Runs before this; apply assumes valid input
  - reconcile.go: Accrues charges before payments are applied
*/
package billing

// PaymentInput is one validated payment to apply.
type PaymentInput struct {
	Amount Money
	Type   PaymentType
	Date   Date
}

// ApplyPayment applies a single validated payment and returns the updated
// account. Pure function; no I/O.
func ApplyPayment(account Account, p PaymentInput) Account {
	net := account.DueBalance.Sub(account.AccountBalance)

	if p.Type == TypeAdjustment {
		net = net.Add(p.Amount)
	} else {
		net = net.Sub(p.Amount)
		account.Lease.LastPaymentDate = p.Date
	}

	account.DueBalance = net.ClampZero()
	account.AccountBalance = net.Neg().ClampZero()
	account.Lease.PaymentStatus = StatusFor(account.DueBalance, p.Date)
	return account
}

// ApplyPayments folds a batch of validated payments over the account in
// order. Used inside the per-account transaction so concurrent batches
// serialize.
func ApplyPayments(account Account, payments []PaymentInput) Account {
	for _, p := range payments {
		account = ApplyPayment(account, p)
	}
	return account
}
