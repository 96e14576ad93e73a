/*
repository.go - Persistence interface for accounts, units and payments

PURPOSE:
  Defines the boundary between the billing engine and the document store.
  The engine consumes snapshots and produces field updates; the host
  supplies the Repository and persists atomically.

ATOMICITY:
  Applying a batch of payments to one account must execute as a single
  read-modify-write transaction keyed by account id: two concurrent
  submissions against the same account serialize, or money is lost or
  double-applied. WithAccountTx provides that contract. Operations against
  different accounts are independent and may run in parallel.

PAYMENTS ARE APPEND-ONLY:
  Payments are never updated or deleted; corrections are recorded as
  Adjustment payments. The full history must always be able to rebuild
  the account.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - billing/store: in-memory store for tests and dev
*/
package billing

import "context"

// Repository is the key-addressable document store the engine reads from
// and writes to.
type Repository interface {
	// Account fetches the live billing state. Returns a NotFoundError
	// when the id is unknown.
	Account(ctx context.Context, id string) (Account, error)

	// Unit resolves a unit by property and name. Returns nil (no error)
	// when the unit is missing: billing degrades to status-only for
	// homeowners without a resolvable unit.
	Unit(ctx context.Context, propertyID, name string) (*Unit, error)

	// PaymentHistory returns every payment for the account,
	// chronologically.
	PaymentHistory(ctx context.Context, accountID string) ([]Payment, error)

	// WaterReadings returns the account's water bills, chronologically.
	WaterReadings(ctx context.Context, accountID string) ([]WaterMeterReading, error)

	// SaveWaterReading persists a reading's status change. Water lives in
	// its own silo; this never touches account balances.
	SaveWaterReading(ctx context.Context, reading WaterMeterReading) error

	// SaveAccount persists the account's mutated billing fields.
	SaveAccount(ctx context.Context, account Account) error

	// AddPayment appends a payment record. Fails with ErrDuplicatePayment
	// on id collision.
	AddPayment(ctx context.Context, payment Payment) error

	// WithAccountTx executes fn as one atomic read-modify-write
	// transaction serialized per account id. If fn returns an error the
	// transaction rolls back and nothing is persisted.
	WithAccountTx(ctx context.Context, accountID string, fn func(Repository) error) error
}

// QueryRepository extends Repository with the scans the read-only
// analytics (arrears, service-charge reports) are built from.
type QueryRepository interface {
	Repository

	// Accounts returns every non-archived account.
	Accounts(ctx context.Context) ([]Account, error)

	// Units returns every unit.
	Units(ctx context.Context) ([]Unit, error)

	// UnitsByLandlord returns the units owned by a landlord.
	UnitsByLandlord(ctx context.Context, landlordID string) ([]Unit, error)

	// AccountForUnit returns the occupant account of a unit, or nil when
	// the unit is vacant.
	AccountForUnit(ctx context.Context, propertyID, unitName string) (*Account, error)
}
