package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"inventory-transfer/internal/core"
	"inventory-transfer/internal/store/memory"
)

// eventRecorder collects low-stock events emitted after commit.
type eventRecorder struct {
	mu     sync.Mutex
	events []core.LowStockDetected
}

func (r *eventRecorder) Emit(evt core.LowStockDetected) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) all() []core.LowStockDetected {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.LowStockDetected(nil), r.events...)
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	ctx       context.Context
	store     core.Store
	ledger    *core.Ledger
	transfers core.TransferService
	inventory core.InventoryService
	events    *eventRecorder

	warehouseA, warehouseB int64
	item                   *core.InventoryItem
}

// newFixture builds services over an in-memory store with two warehouses and one
// item whose min_stock_level is 10.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New())
}

func newFixtureWithStore(t *testing.T, store core.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	events := &eventRecorder{}
	ledger := core.NewLedger(store, core.NewLowStockMonitor(events))

	f := &fixture{
		ctx:       ctx,
		store:     store,
		ledger:    ledger,
		transfers: core.NewTransferService(store, ledger),
		inventory: core.NewInventoryService(store),
		events:    events,
	}

	a, err := f.inventory.CreateWarehouse(ctx, core.Warehouse{Name: "Central", Location: "Amsterdam"})
	require.NoError(t, err)
	b, err := f.inventory.CreateWarehouse(ctx, core.Warehouse{Name: "North", Location: "Groningen"})
	require.NoError(t, err)
	f.warehouseA, f.warehouseB = a.ID, b.ID

	f.item, err = f.inventory.CreateItem(ctx, core.InventoryItem{
		SKU:           "WID-001",
		Name:          "Widget",
		Price:         decimal.RequireFromString("12.50"),
		MinStockLevel: 10,
	})
	require.NoError(t, err)
	return f
}

// receive puts qty units of the fixture item into a warehouse and clears events.
func (f *fixture) receive(t *testing.T, warehouseID int64, qty int) {
	t.Helper()
	_, err := f.ledger.ReceiveStock(f.ctx, warehouseID, f.item.ID, qty, nil)
	require.NoError(t, err)
	f.events.reset()
}

func (f *fixture) stock(t *testing.T, warehouseID int64) *core.Stock {
	t.Helper()
	s, err := f.store.GetStock(f.ctx, warehouseID, f.item.ID)
	require.NoError(t, err)
	return s
}

func (f *fixture) newTransfer(t *testing.T, qty int) *core.StockTransfer {
	t.Helper()
	tr, err := f.transfers.CreateTransfer(f.ctx, core.NewTransferInput{
		FromWarehouseID: f.warehouseA,
		ToWarehouseID:   f.warehouseB,
		ItemID:          f.item.ID,
		Quantity:        qty,
	})
	require.NoError(t, err)
	require.Equal(t, core.TransferPending, tr.Status)
	return tr
}

// ── Fault injection ──────────────────────────────────────────────────────────

// faultyStore wraps a Store so tests can fail individual stock writes.
type faultyStore struct {
	core.Store
	failSave func(s *core.Stock) error
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(tx core.Tx) error) error {
	return f.Store.WithinTx(ctx, func(tx core.Tx) error {
		return fn(&faultyTx{Tx: tx, failSave: f.failSave})
	})
}

type faultyTx struct {
	core.Tx
	failSave func(s *core.Stock) error
}

func (f *faultyTx) SaveStock(ctx context.Context, s *core.Stock) error {
	if f.failSave != nil {
		if err := f.failSave(s); err != nil {
			return err
		}
	}
	return f.Tx.SaveStock(ctx, s)
}

func (f *faultyTx) Savepoint(ctx context.Context, fn func(tx core.Tx) error) error {
	return f.Tx.Savepoint(ctx, func(inner core.Tx) error {
		return fn(&faultyTx{Tx: inner, failSave: f.failSave})
	})
}
