// Package store provides Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rent-ledger/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[string]billing.Account
	units    map[unitKey]billing.Unit
	payments map[string][]billing.Payment
	readings map[string][]billing.WaterMeterReading
	seenIDs  map[string]bool
}

type unitKey struct {
	PropertyID string
	Name       string
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]billing.Account),
		units:    make(map[unitKey]billing.Unit),
		payments: make(map[string][]billing.Payment),
		readings: make(map[string][]billing.WaterMeterReading),
		seenIDs:  make(map[string]bool),
	}
}

// Seed helpers (tests/dev).

func (m *Memory) PutAccount(account billing.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *Memory) PutUnit(unit billing.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[unitKey{PropertyID: unit.PropertyID, Name: unit.Name}] = unit
}

func (m *Memory) PutWaterReading(reading billing.WaterMeterReading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[reading.TenantID] = append(m.readings[reading.TenantID], reading)
}

// Repository implementation.

func (m *Memory) Account(_ context.Context, id string) (billing.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return billing.Account{}, &billing.NotFoundError{Kind: "account", ID: id}
	}
	return account, nil
}

func (m *Memory) Unit(_ context.Context, propertyID, name string) (*billing.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	unit, ok := m.units[unitKey{PropertyID: propertyID, Name: name}]
	if !ok {
		return nil, nil
	}
	u := unit
	return &u, nil
}

func (m *Memory) PaymentHistory(_ context.Context, accountID string) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Payment, len(m.payments[accountID]))
	copy(result, m.payments[accountID])
	return result, nil
}

func (m *Memory) WaterReadings(_ context.Context, accountID string) ([]billing.WaterMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.WaterMeterReading, len(m.readings[accountID]))
	copy(result, m.readings[accountID])
	return result, nil
}

func (m *Memory) SaveWaterReading(_ context.Context, reading billing.WaterMeterReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.readings[reading.TenantID]
	for i := range list {
		if list[i].ID == reading.ID {
			list[i] = reading
			return nil
		}
	}
	m.readings[reading.TenantID] = append(list, reading)
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, account billing.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) AddPayment(_ context.Context, payment billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPaymentLocked(payment)
}

func (m *Memory) addPaymentLocked(payment billing.Payment) error {
	if payment.ID != "" && m.seenIDs[payment.ID] {
		return billing.ErrDuplicatePayment
	}

	list := m.payments[payment.TenantID]

	// Insert in date order so history reads come back chronological.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Date.After(payment.Date)
	})
	list = append(list, billing.Payment{})
	copy(list[i+1:], list[i:])
	list[i] = payment
	m.payments[payment.TenantID] = list

	if payment.ID != "" {
		m.seenIDs[payment.ID] = true
	}
	return nil
}

// WithAccountTx simulates a per-account transaction with snapshot +
// rollback on error. The global lock also serializes concurrent batches,
// which satisfies the per-account ordering contract.
func (m *Memory) WithAccountTx(ctx context.Context, accountID string, fn func(billing.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()
	view := &txView{parent: m}

	if err := fn(view); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

// QueryRepository implementation.

func (m *Memory) Accounts(_ context.Context) ([]billing.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Account
	for _, a := range m.accounts {
		if a.Archived {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) Units(_ context.Context) ([]billing.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Unit
	for _, u := range m.units {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) UnitsByLandlord(_ context.Context, landlordID string) ([]billing.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Unit
	for _, u := range m.units {
		if u.LandlordID == landlordID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) AccountForUnit(_ context.Context, propertyID, unitName string) (*billing.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if !a.Archived && a.PropertyID == propertyID && a.UnitName == unitName {
			acct := a
			return &acct, nil
		}
	}
	return nil, nil
}

// Compile-time interface checks.
var (
	_ billing.Repository      = (*Memory)(nil)
	_ billing.QueryRepository = (*Memory)(nil)
)

// =============================================================================
// SNAPSHOT / ROLLBACK SUPPORT
// =============================================================================

type memorySnapshot struct {
	accounts map[string]billing.Account
	units    map[unitKey]billing.Unit
	payments map[string][]billing.Payment
	readings map[string][]billing.WaterMeterReading
	seenIDs  map[string]bool
}

func (m *Memory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		accounts: make(map[string]billing.Account, len(m.accounts)),
		units:    make(map[unitKey]billing.Unit, len(m.units)),
		payments: make(map[string][]billing.Payment, len(m.payments)),
		readings: make(map[string][]billing.WaterMeterReading, len(m.readings)),
		seenIDs:  make(map[string]bool, len(m.seenIDs)),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.units {
		s.units[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = append([]billing.Payment{}, v...)
	}
	for k, v := range m.readings {
		s.readings[k] = append([]billing.WaterMeterReading{}, v...)
	}
	for k, v := range m.seenIDs {
		s.seenIDs[k] = v
	}
	return s
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.accounts = s.accounts
	m.units = s.units
	m.payments = s.payments
	m.readings = s.readings
	m.seenIDs = s.seenIDs
}

// txView bypasses the already-held lock during WithAccountTx.
type txView struct {
	parent *Memory
}

func (tv *txView) Account(_ context.Context, id string) (billing.Account, error) {
	account, ok := tv.parent.accounts[id]
	if !ok {
		return billing.Account{}, &billing.NotFoundError{Kind: "account", ID: id}
	}
	return account, nil
}

func (tv *txView) Unit(_ context.Context, propertyID, name string) (*billing.Unit, error) {
	unit, ok := tv.parent.units[unitKey{PropertyID: propertyID, Name: name}]
	if !ok {
		return nil, nil
	}
	u := unit
	return &u, nil
}

func (tv *txView) PaymentHistory(_ context.Context, accountID string) ([]billing.Payment, error) {
	return tv.parent.payments[accountID], nil
}

func (tv *txView) WaterReadings(_ context.Context, accountID string) ([]billing.WaterMeterReading, error) {
	return tv.parent.readings[accountID], nil
}

func (tv *txView) SaveWaterReading(_ context.Context, reading billing.WaterMeterReading) error {
	list := tv.parent.readings[reading.TenantID]
	for i := range list {
		if list[i].ID == reading.ID {
			list[i] = reading
			return nil
		}
	}
	tv.parent.readings[reading.TenantID] = append(list, reading)
	return nil
}

func (tv *txView) SaveAccount(_ context.Context, account billing.Account) error {
	tv.parent.accounts[account.ID] = account
	return nil
}

func (tv *txView) AddPayment(_ context.Context, payment billing.Payment) error {
	return tv.parent.addPaymentLocked(payment)
}

func (tv *txView) UnitsByLandlord(_ context.Context, landlordID string) ([]billing.Unit, error) {
	var result []billing.Unit
	for _, u := range tv.parent.units {
		if u.LandlordID == landlordID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (tv *txView) WithAccountTx(ctx context.Context, accountID string, fn func(billing.Repository) error) error {
	// Already inside the transaction; run directly.
	return fn(tv)
}
