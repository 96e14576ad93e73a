/*
Package sqlite provides a SQLite-backed implementation of the billing
repository.

PURPOSE:
  Implements billing.Repository and billing.QueryRepository over
  database/sql. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  accounts:       Live billing state per tenant/homeowner
  units:          Unit records (rent, service charge, handover)
  payments:       Append-only payment history
  water_readings: Siloed water bills

APPEND-ONLY PAYMENTS:
  The payments table never sees UPDATE or DELETE. Corrections are recorded
  as Adjustment payments, so the history can always rebuild the account.

CONCURRENCY:
  WithAccountTx runs fn inside a database transaction guarded by a store
  mutex, which serializes concurrent batches against the same account (and,
  with SQLite's single writer, everything else). WAL mode keeps readers
  unblocked.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := billing.NewEngine(store, nil)

SEE ALSO:
  - billing/repository.go: Interface definitions and atomicity contract
  - billing/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-ledger/billing"
)

// Store implements the billing repository over SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		resident_type TEXT NOT NULL,
		lease_start TEXT NOT NULL DEFAULT '',
		rent TEXT NOT NULL DEFAULT '0',
		service_charge TEXT NOT NULL DEFAULT '0',
		payment_status TEXT NOT NULL DEFAULT 'Pending',
		last_billed_period TEXT NOT NULL DEFAULT '',
		last_payment_date TEXT NOT NULL DEFAULT '',
		due_balance TEXT NOT NULL DEFAULT '0',
		account_balance TEXT NOT NULL DEFAULT '0',
		security_deposit TEXT NOT NULL DEFAULT '0',
		water_deposit TEXT NOT NULL DEFAULT '0',
		property_id TEXT NOT NULL DEFAULT '',
		unit_name TEXT NOT NULL DEFAULT '',
		archived INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_unit
		ON accounts(property_id, unit_name);

	CREATE TABLE IF NOT EXISTS units (
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		rent_amount TEXT NOT NULL DEFAULT '0',
		service_charge TEXT NOT NULL DEFAULT '0',
		handover_date TEXT NOT NULL DEFAULT '',
		handover_status TEXT NOT NULL DEFAULT '',
		management_status TEXT NOT NULL DEFAULT '',
		ownership TEXT NOT NULL DEFAULT '',
		landlord_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (property_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_units_landlord
		ON units(landlord_id);

	-- Append-only: no UPDATE or DELETE, ever. Corrections are
	-- Adjustment payments.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		rent_for_month TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant_date
		ON payments(tenant_id, date);

	CREATE TABLE IF NOT EXISTS water_readings (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending'
	);

	CREATE INDEX IF NOT EXISTS idx_water_tenant
		ON water_readings(tenant_id, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx so the same queries serve both the
// plain store and the transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store) Account(ctx context.Context, id string) (billing.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) Unit(ctx context.Context, propertyID, name string) (*billing.Unit, error) {
	return getUnit(ctx, s.db, propertyID, name)
}

func (s *Store) PaymentHistory(ctx context.Context, accountID string) ([]billing.Payment, error) {
	return listPayments(ctx, s.db, accountID)
}

func (s *Store) WaterReadings(ctx context.Context, accountID string) ([]billing.WaterMeterReading, error) {
	return listWaterReadings(ctx, s.db, accountID)
}

func (s *Store) SaveWaterReading(ctx context.Context, reading billing.WaterMeterReading) error {
	return saveWaterReading(ctx, s.db, reading)
}

func (s *Store) SaveAccount(ctx context.Context, account billing.Account) error {
	return saveAccount(ctx, s.db, account)
}

func (s *Store) AddPayment(ctx context.Context, payment billing.Payment) error {
	return addPayment(ctx, s.db, payment)
}

// SaveUnit upserts a unit record (bulk loads, admin edits).
func (s *Store) SaveUnit(ctx context.Context, unit billing.Unit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (property_id, name, rent_amount, service_charge,
			handover_date, handover_status, management_status, ownership, landlord_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, name) DO UPDATE SET
			rent_amount = excluded.rent_amount,
			service_charge = excluded.service_charge,
			handover_date = excluded.handover_date,
			handover_status = excluded.handover_status,
			management_status = excluded.management_status,
			ownership = excluded.ownership,
			landlord_id = excluded.landlord_id`,
		unit.PropertyID, unit.Name, unit.RentAmount.String(), unit.ServiceCharge.String(),
		dateString(unit.HandoverDate), string(unit.HandoverStatus),
		string(unit.ManagementStatus), unit.Ownership, unit.LandlordID)
	return err
}

// AddWaterReading inserts a new water bill.
func (s *Store) AddWaterReading(ctx context.Context, reading billing.WaterMeterReading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO water_readings (id, tenant_id, amount, date, status)
		VALUES (?, ?, ?, ?, ?)`,
		reading.ID, reading.TenantID, reading.Amount.String(),
		dateString(reading.Date), string(reading.Status))
	return err
}

// WithAccountTx runs fn inside one database transaction. The store mutex
// serializes concurrent batches so the second submission always sees the
// first's committed balances.
func (s *Store) WithAccountTx(ctx context.Context, accountID string, fn func(billing.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txStore is the Repository view inside WithAccountTx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Account(ctx context.Context, id string) (billing.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func (t *txStore) Unit(ctx context.Context, propertyID, name string) (*billing.Unit, error) {
	return getUnit(ctx, t.tx, propertyID, name)
}

func (t *txStore) PaymentHistory(ctx context.Context, accountID string) ([]billing.Payment, error) {
	return listPayments(ctx, t.tx, accountID)
}

func (t *txStore) WaterReadings(ctx context.Context, accountID string) ([]billing.WaterMeterReading, error) {
	return listWaterReadings(ctx, t.tx, accountID)
}

func (t *txStore) SaveWaterReading(ctx context.Context, reading billing.WaterMeterReading) error {
	return saveWaterReading(ctx, t.tx, reading)
}

func (t *txStore) SaveAccount(ctx context.Context, account billing.Account) error {
	return saveAccount(ctx, t.tx, account)
}

func (t *txStore) AddPayment(ctx context.Context, payment billing.Payment) error {
	return addPayment(ctx, t.tx, payment)
}

func (t *txStore) WithAccountTx(ctx context.Context, accountID string, fn func(billing.Repository) error) error {
	// Already inside the transaction; run directly.
	return fn(t)
}

// =============================================================================
// QUERY REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store) Accounts(ctx context.Context) ([]billing.Account, error) {
	rows, err := s.db.QueryContext(ctx, accountColumns+` FROM accounts WHERE archived = 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *Store) Units(ctx context.Context) ([]billing.Unit, error) {
	rows, err := s.db.QueryContext(ctx, unitColumns+` FROM units ORDER BY property_id, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

func (s *Store) UnitsByLandlord(ctx context.Context, landlordID string) ([]billing.Unit, error) {
	rows, err := s.db.QueryContext(ctx, unitColumns+` FROM units WHERE landlord_id = ? ORDER BY name`, landlordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

func (s *Store) AccountForUnit(ctx context.Context, propertyID, unitName string) (*billing.Account, error) {
	row := s.db.QueryRowContext(ctx,
		accountColumns+` FROM accounts WHERE property_id = ? AND unit_name = ? AND archived = 0`,
		propertyID, unitName)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Compile-time interface checks.
var (
	_ billing.Repository      = (*Store)(nil)
	_ billing.QueryRepository = (*Store)(nil)
	_ billing.Repository      = (*txStore)(nil)
)

// =============================================================================
// SHARED QUERIES
// =============================================================================

const accountColumns = `SELECT id, name, resident_type, lease_start, rent,
	service_charge, payment_status, last_billed_period, last_payment_date,
	due_balance, account_balance, security_deposit, water_deposit,
	property_id, unit_name, archived`

const unitColumns = `SELECT property_id, name, rent_amount, service_charge,
	handover_date, handover_status, management_status, ownership, landlord_id`

func getAccount(ctx context.Context, db dbtx, id string) (billing.Account, error) {
	row := db.QueryRowContext(ctx, accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.Account{}, &billing.NotFoundError{Kind: "account", ID: id}
		}
		return billing.Account{}, err
	}
	return account, nil
}

func getUnit(ctx context.Context, db dbtx, propertyID, name string) (*billing.Unit, error) {
	row := db.QueryRowContext(ctx,
		unitColumns+` FROM units WHERE property_id = ? AND name = ?`, propertyID, name)

	var (
		u                             billing.Unit
		rent, serviceCharge, handover string
		handoverStatus, mgmtStatus    string
	)
	err := row.Scan(&u.PropertyID, &u.Name, &rent, &serviceCharge, &handover,
		&handoverStatus, &mgmtStatus, &u.Ownership, &u.LandlordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	u.RentAmount = parseMoney(rent)
	u.ServiceCharge = parseMoney(serviceCharge)
	u.HandoverDate = parseDate(handover)
	u.HandoverStatus = billing.HandoverStatus(handoverStatus)
	u.ManagementStatus = billing.ManagementStatus(mgmtStatus)
	return &u, nil
}

func listPayments(ctx context.Context, db dbtx, accountID string) ([]billing.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, amount, date, type, rent_for_month, status
		FROM payments WHERE tenant_id = ? ORDER BY date, rowid`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p                      billing.Payment
			amount, date, forMonth string
			ptype                  string
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &amount, &date, &ptype, &forMonth, &p.Status); err != nil {
			return nil, err
		}
		p.Amount = parseMoney(amount)
		p.Date = parseDate(date)
		p.Type = billing.PaymentType(ptype)
		p.RentForMonth, _ = billing.ParseMonth(forMonth)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func listWaterReadings(ctx context.Context, db dbtx, accountID string) ([]billing.WaterMeterReading, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, amount, date, status
		FROM water_readings WHERE tenant_id = ? ORDER BY date, rowid`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []billing.WaterMeterReading
	for rows.Next() {
		var (
			r            billing.WaterMeterReading
			amount, date string
			status       string
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &amount, &date, &status); err != nil {
			return nil, err
		}
		r.Amount = parseMoney(amount)
		r.Date = parseDate(date)
		r.Status = billing.WaterReadingStatus(status)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func saveWaterReading(ctx context.Context, db dbtx, reading billing.WaterMeterReading) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO water_readings (id, tenant_id, amount, date, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		reading.ID, reading.TenantID, reading.Amount.String(),
		dateString(reading.Date), string(reading.Status))
	return err
}

func saveAccount(ctx context.Context, db dbtx, account billing.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, resident_type, lease_start, rent,
			service_charge, payment_status, last_billed_period, last_payment_date,
			due_balance, account_balance, security_deposit, water_deposit,
			property_id, unit_name, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			resident_type = excluded.resident_type,
			lease_start = excluded.lease_start,
			rent = excluded.rent,
			service_charge = excluded.service_charge,
			payment_status = excluded.payment_status,
			last_billed_period = excluded.last_billed_period,
			last_payment_date = excluded.last_payment_date,
			due_balance = excluded.due_balance,
			account_balance = excluded.account_balance,
			security_deposit = excluded.security_deposit,
			water_deposit = excluded.water_deposit,
			property_id = excluded.property_id,
			unit_name = excluded.unit_name,
			archived = excluded.archived`,
		account.ID, account.Name, string(account.ResidentType),
		dateString(account.Lease.StartDate), account.Lease.Rent.String(),
		account.Lease.ServiceCharge.String(), string(account.Lease.PaymentStatus),
		account.Lease.LastBilledPeriod.String(), dateString(account.Lease.LastPaymentDate),
		account.DueBalance.String(), account.AccountBalance.String(),
		account.SecurityDeposit.String(), account.WaterDeposit.String(),
		account.PropertyID, account.UnitName, boolInt(account.Archived))
	return err
}

func addPayment(ctx context.Context, db dbtx, payment billing.Payment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, tenant_id, amount, date, type, rent_for_month, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.TenantID, payment.Amount.String(),
		dateString(payment.Date), string(payment.Type),
		payment.RentForMonth.String(), payment.Status)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return billing.ErrDuplicatePayment
	}
	return err
}

// =============================================================================
// SCAN / ENCODE HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (billing.Account, error) {
	var (
		a                                             billing.Account
		residentType, leaseStart, rent, serviceCharge string
		paymentStatus, lastBilled, lastPayment        string
		due, credit, securityDep, waterDep            string
		archived                                      int
	)
	err := row.Scan(&a.ID, &a.Name, &residentType, &leaseStart, &rent,
		&serviceCharge, &paymentStatus, &lastBilled, &lastPayment,
		&due, &credit, &securityDep, &waterDep,
		&a.PropertyID, &a.UnitName, &archived)
	if err != nil {
		return billing.Account{}, err
	}

	a.ResidentType = billing.ResidentType(residentType)
	a.Lease.StartDate = parseDate(leaseStart)
	a.Lease.Rent = parseMoney(rent)
	a.Lease.ServiceCharge = parseMoney(serviceCharge)
	a.Lease.PaymentStatus = billing.PaymentStatus(paymentStatus)
	a.Lease.LastBilledPeriod, _ = billing.ParseMonth(lastBilled)
	a.Lease.LastPaymentDate = parseDate(lastPayment)
	a.DueBalance = parseMoney(due)
	a.AccountBalance = parseMoney(credit)
	a.SecurityDeposit = parseMoney(securityDep)
	a.WaterDeposit = parseMoney(waterDep)
	a.Archived = archived != 0
	return a, nil
}

func scanAccounts(rows *sql.Rows) ([]billing.Account, error) {
	var accounts []billing.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func scanUnits(rows *sql.Rows) ([]billing.Unit, error) {
	var units []billing.Unit
	for rows.Next() {
		var (
			u                             billing.Unit
			rent, serviceCharge, handover string
			handoverStatus, mgmtStatus    string
		)
		if err := rows.Scan(&u.PropertyID, &u.Name, &rent, &serviceCharge, &handover,
			&handoverStatus, &mgmtStatus, &u.Ownership, &u.LandlordID); err != nil {
			return nil, err
		}
		u.RentAmount = parseMoney(rent)
		u.ServiceCharge = parseMoney(serviceCharge)
		u.HandoverDate = parseDate(handover)
		u.HandoverStatus = billing.HandoverStatus(handoverStatus)
		u.ManagementStatus = billing.ManagementStatus(mgmtStatus)
		units = append(units, u)
	}
	return units, rows.Err()
}

func parseMoney(s string) billing.Money {
	if s == "" {
		return billing.ZeroMoney()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return billing.ZeroMoney()
	}
	return billing.Money{Value: d}
}

func parseDate(s string) billing.Date {
	if s == "" {
		return billing.Date{}
	}
	d, err := billing.ParseDate(s)
	if err != nil {
		return billing.Date{}
	}
	return d
}

func dateString(d billing.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
