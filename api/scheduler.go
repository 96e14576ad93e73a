/*
scheduler.go - Automated monthly billing sweep

PURPOSE:
  Periodically reconciles every account's billing to the current date, so
  monthly charges accrue even when no payment or manual reconcile touches
  an account for months.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reconcile is idempotent within a month, so a generous interval is
    safe: extra runs are status-only no-ops
  - Each account reconciles inside its own transaction; one failing
    account never blocks the rest of the sweep

USAGE:
  sweep := NewBillingSweep(store, engine)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - handlers.go: ReconcileAccount endpoint (manual reconciliation)
  - billing/reconcile.go: Accrual rules
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/rent-ledger/billing"
)

// BillingSweep reconciles every account on a schedule.
type BillingSweep struct {
	Store         billing.QueryRepository
	Engine        *billing.Engine
	CheckInterval time.Duration
	Enabled       bool

	now    billing.Clock
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBillingSweep creates a new sweep.
func NewBillingSweep(store billing.QueryRepository, engine *billing.Engine) *BillingSweep {
	return &BillingSweep{
		Store:         store,
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           billing.SystemClock,
		stop:          make(chan bool),
	}
}

// Start begins the sweep.
func (bs *BillingSweep) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Sweep] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Sweep] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the sweep.
func (bs *BillingSweep) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Sweep] Stopped")
	}
}

func (bs *BillingSweep) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.sweep()

	for {
		select {
		case <-bs.ticker.C:
			bs.sweep()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BillingSweep) sweep() {
	ctx := context.Background()
	today := bs.now()

	accounts, err := bs.Store.Accounts(ctx)
	if err != nil {
		log.Printf("[Sweep] Error listing accounts: %v", err)
		return
	}

	accrued := 0
	for _, account := range accounts {
		_, result, err := bs.Engine.ReconcileAccount(ctx, account.ID, today)
		if err != nil {
			log.Printf("[Sweep] Error reconciling %s: %v", account.ID, err)
			continue
		}
		if result.Mutated {
			log.Printf("[Sweep] Accrued %d month(s) (%s) for %s",
				result.MonthsAccrued, result.ChargeAccrued, account.ID)
			accrued++
		}
	}

	if accrued > 0 {
		log.Printf("[Sweep] Completed: %d of %d accounts accrued", accrued, len(accounts))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (bs *BillingSweep) RunNow() {
	bs.sweep()
}
