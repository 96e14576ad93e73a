/*
engine.go - Orchestration of validate -> reconcile -> apply -> persist

PURPOSE:
  The Engine is the host-facing entry point. It wires the pure transforms
  (validate.go, reconcile.go, apply.go, ledger.go) to the Repository and
  runs every mutation of one account inside that account's transaction.

FLOW (RecordPayment):
  1. Fetch account (missing account aborts the whole batch)
  2. Validate amount and date (no partial effect on failure)
  3. Reconcile billing up to today (accrue any unbilled months)
  4. Apply the payment to the balances
  5. Persist the account update and the payment record atomically
  6. Publish a payment-recorded event (best effort, after commit)

WATER SILO:
  Water payments never touch DueBalance/AccountBalance. They settle
  pending water meter readings oldest-first and are recorded in the
  payment history for reconstruction.

SEE ALSO:
  - repository.go: Atomicity contract
  - ledger.go: Statement and repair paths
*/
package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// EventPublisher receives a notification after a payment commits.
// Implementations live outside the engine (events/kafka); a nil publisher
// disables publishing.
type EventPublisher interface {
	PaymentRecorded(ctx context.Context, payment Payment) error
}

// Engine applies payments and reconciliations against a Repository.
type Engine struct {
	repo      Repository
	publisher EventPublisher
	now       Clock
}

// NewEngine creates an engine. publisher may be nil.
func NewEngine(repo Repository, publisher EventPublisher) *Engine {
	return &Engine{repo: repo, publisher: publisher, now: SystemClock}
}

// WithClock overrides the engine clock (tests).
func (e *Engine) WithClock(clock Clock) *Engine {
	e.now = clock
	return e
}

// PaymentRequest is one payment submission.
type PaymentRequest struct {
	Amount       Money
	Type         PaymentType
	Date         Date
	RentForMonth Month
}

// RecordPayment validates, reconciles and applies one payment atomically.
// Returns the persisted payment record and the updated account.
func (e *Engine) RecordPayment(ctx context.Context, accountID string, req PaymentRequest) (Payment, Account, error) {
	payments, accounts, err := e.RecordPayments(ctx, accountID, []PaymentRequest{req})
	if err != nil {
		return Payment{}, Account{}, err
	}
	return payments[0], accounts, nil
}

// RecordPayments applies a batch of payments to one account as a single
// transaction: either every payment lands or none does. The application
// is a pure fold, so the second payment always sees the first's updated
// balances.
func (e *Engine) RecordPayments(ctx context.Context, accountID string, reqs []PaymentRequest) ([]Payment, Account, error) {
	if len(reqs) == 0 {
		return nil, Account{}, &ValidationError{Reason: "no payments submitted"}
	}

	today := e.now()
	var recorded []Payment
	var updated Account

	err := e.repo.WithAccountTx(ctx, accountID, func(repo Repository) error {
		account, err := repo.Account(ctx, accountID)
		if err != nil {
			return err
		}

		// Validate the whole batch before any effect.
		for _, req := range reqs {
			if err := ValidatePayment(account, req.Type, req.Amount, req.Date, today); err != nil {
				return err
			}
		}

		unit, err := repo.Unit(ctx, account.PropertyID, account.UnitName)
		if err != nil {
			return err
		}

		// Accrue any unbilled months before money is applied.
		account, _ = Reconcile(account, unit, today)

		for _, req := range reqs {
			payment := Payment{
				ID:           uuid.NewString(),
				TenantID:     accountID,
				Amount:       req.Amount,
				Date:         req.Date,
				Type:         req.Type,
				RentForMonth: req.RentForMonth,
				Status:       "Confirmed",
			}

			if req.Type == TypeWater {
				// Siloed: settle readings, leave balances alone.
				if err := e.settleWater(ctx, repo, accountID, req.Amount); err != nil {
					return err
				}
			} else {
				account = ApplyPayment(account, PaymentInput{Amount: req.Amount, Type: req.Type, Date: req.Date})
			}

			if err := repo.AddPayment(ctx, payment); err != nil {
				return err
			}
			recorded = append(recorded, payment)
		}

		updated = account
		return repo.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, Account{}, err
	}

	// Post-commit notification. Event loss is tolerable; the ledger is
	// the source of truth, so a failed publish never fails the payment.
	if e.publisher != nil {
		for _, p := range recorded {
			_ = e.publisher.PaymentRecorded(ctx, p)
		}
	}
	return recorded, updated, nil
}

// settleWater marks pending water readings paid oldest-first until the
// payment is exhausted.
func (e *Engine) settleWater(ctx context.Context, repo Repository, accountID string, amount Money) error {
	readings, err := repo.WaterReadings(ctx, accountID)
	if err != nil {
		return err
	}
	remaining := amount
	for _, r := range readings {
		if r.Status != WaterPending || !remaining.GreaterOrEqual(r.Amount) {
			continue
		}
		remaining = remaining.Sub(r.Amount)
		r.Status = WaterPaid
		if err := repo.SaveWaterReading(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileAccount advances the account's billing to asOf inside its
// transaction. Idempotent within a month.
func (e *Engine) ReconcileAccount(ctx context.Context, accountID string, asOf Date) (Account, ReconcileResult, error) {
	var (
		updated Account
		result  ReconcileResult
	)
	err := e.repo.WithAccountTx(ctx, accountID, func(repo Repository) error {
		account, err := repo.Account(ctx, accountID)
		if err != nil {
			return err
		}
		unit, err := repo.Unit(ctx, account.PropertyID, account.UnitName)
		if err != nil {
			return err
		}
		updated, result = Reconcile(account, unit, asOf)
		return repo.SaveAccount(ctx, updated)
	})
	if err != nil {
		return Account{}, ReconcileResult{}, err
	}
	return updated, result, nil
}

// Statement reconstructs the account's ledger for display. Read-only; may
// run against a stale snapshot.
func (e *Engine) Statement(ctx context.Context, accountID string, asOf Date, opts LedgerOptions) (LedgerResult, error) {
	account, units, payments, readings, err := e.history(ctx, accountID)
	if err != nil {
		return LedgerResult{}, err
	}
	return BuildLedger(account, units, payments, readings, asOf, opts), nil
}

// VerifyAccount checks the live balances against a reconstruction and
// returns an InconsistentStateError on drift.
func (e *Engine) VerifyAccount(ctx context.Context, accountID string, asOf Date) error {
	account, units, payments, readings, err := e.history(ctx, accountID)
	if err != nil {
		return err
	}
	result := BuildLedger(account, units, payments, readings, asOf, liveCategories(account))
	return CheckDrift(account, result)
}

// RepairAccount overwrites the live balances with the reconstruction.
// Operator-triggered; never runs automatically.
func (e *Engine) RepairAccount(ctx context.Context, accountID string, asOf Date) (Account, error) {
	var repaired Account
	err := e.repo.WithAccountTx(ctx, accountID, func(repo Repository) error {
		account, units, payments, readings, err := e.historyWith(ctx, repo, accountID)
		if err != nil {
			return err
		}
		result := BuildLedger(account, units, payments, readings, asOf, liveCategories(account))
		repaired = Repair(account, result, asOf)
		return repo.SaveAccount(ctx, repaired)
	})
	if err != nil {
		return Account{}, err
	}
	return repaired, nil
}

// liveCategories selects the charge categories that feed the live
// balances: rent for tenants, service charge for homeowners. Water stays
// siloed out.
func liveCategories(account Account) LedgerOptions {
	if account.ResidentType == ResidentHomeowner {
		return LedgerOptions{IncludeServiceCharge: true}
	}
	return LedgerOptions{IncludeRent: true}
}

func (e *Engine) history(ctx context.Context, accountID string) (Account, []Unit, []Payment, []WaterMeterReading, error) {
	return e.historyWith(ctx, e.repo, accountID)
}

func (e *Engine) historyWith(ctx context.Context, repo Repository, accountID string) (Account, []Unit, []Payment, []WaterMeterReading, error) {
	account, err := repo.Account(ctx, accountID)
	if err != nil {
		return Account{}, nil, nil, nil, err
	}

	units, err := e.unitsFor(ctx, repo, account)
	if err != nil {
		return Account{}, nil, nil, nil, err
	}

	payments, err := repo.PaymentHistory(ctx, accountID)
	if err != nil {
		return Account{}, nil, nil, nil, fmt.Errorf("loading payment history: %w", err)
	}
	readings, err := repo.WaterReadings(ctx, accountID)
	if err != nil {
		return Account{}, nil, nil, nil, fmt.Errorf("loading water readings: %w", err)
	}
	return account, units, payments, readings, nil
}

// ownerUnitSource is the narrow query needed for multi-unit homeowner
// consolidation. Stores that can't serve it fall back to the single
// leased unit.
type ownerUnitSource interface {
	UnitsByLandlord(ctx context.Context, landlordID string) ([]Unit, error)
}

// unitsFor resolves every unit attributable to the account: the leased
// unit for a tenant, all owned units for a homeowner when the repository
// supports owner queries.
func (e *Engine) unitsFor(ctx context.Context, repo Repository, account Account) ([]Unit, error) {
	if account.ResidentType == ResidentHomeowner {
		if qr, ok := repo.(ownerUnitSource); ok {
			return qr.UnitsByLandlord(ctx, account.ID)
		}
	}
	unit, err := repo.Unit(ctx, account.PropertyID, account.UnitName)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, nil
	}
	return []Unit{*unit}, nil
}
