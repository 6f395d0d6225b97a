package services

import (
	"context"
	"sync"
	"testing"

	"creatorx/internal/events"
	"creatorx/internal/market"
	"creatorx/internal/testutil"
	"creatorx/internal/uow"
	"creatorx/internal/worker"

	"gorm.io/gorm"
)

// manualDispatcher collects tasks so tests decide when follow-ups run.
type manualDispatcher struct {
	mu    sync.Mutex
	tasks []worker.Task
	err   error
}

func (d *manualDispatcher) Enqueue(task worker.Task) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	d.tasks = append(d.tasks, task)
	return true, nil
}

func (d *manualDispatcher) keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, len(d.tasks))
	for i, task := range d.tasks {
		keys[i] = task.Key
	}
	return keys
}

// drain runs every collected task once, in order.
func (d *manualDispatcher) drain(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		if err := task.Run(context.Background()); err != nil {
			t.Fatalf("task %s failed: %v", task.Key, err)
		}
	}
}

// testMarket wires every market service over one test database.
type testMarket struct {
	db            *gorm.DB
	uow           *uow.UnitOfWork
	events        *events.Recorder
	dispatcher    *manualDispatcher
	ledger        LedgerServicer
	stocks        StockServicer
	trades        TradeServicer
	pricing       PricingServicer
	engagement    EngagementServicer
	notifications NotificationServicer
	dividends     DividendServicer
	earnings      EarningsServicer
}

func newTestMarket(t *testing.T) *testMarket {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return newTestMarketOn(db)
}

func newTestMarketOn(db *gorm.DB) *testMarket {
	m := &testMarket{
		db:         db,
		uow:        uow.New(db),
		events:     events.NewRecorder(),
		dispatcher: &manualDispatcher{},
	}
	m.ledger = NewLedgerService(db)
	m.pricing = NewPricingService(m.uow, market.DefaultParams(), m.events, m.dispatcher)
	m.stocks = NewStockService(m.uow, m.events)
	m.trades = NewTradeService(m.uow, m.ledger, m.pricing, m.events)
	m.engagement = NewEngagementService(db, m.pricing)
	m.notifications = NewNotificationService(db)
	m.dividends = NewDividendService(db, m.ledger, m.notifications, m.events, m.pricing)
	m.earnings = NewEarningsService(m.uow, m.ledger, m.dividends, m.dispatcher)
	return m
}
