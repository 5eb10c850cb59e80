// Package memory is an in-memory core.Store. It is safe for concurrent use and is
// intended for tests and local development.
//
// Units of work are serialized by a single writer lock. A unit of work stages its
// writes in an overlay that is applied atomically on commit, so readers outside
// it only ever see committed state.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"inventory-transfer/internal/core"
)

// Store is an in-memory implementation of core.Store.
type Store struct {
	writer sync.Mutex   // held for the whole of a unit of work
	mu     sync.RWMutex // guards the committed state below

	nextID     int64
	items      map[int64]core.InventoryItem
	skus       map[string]int64
	warehouses map[int64]core.Warehouse
	stocks     map[core.StockKey]core.Stock
	transfers  map[int64]core.StockTransfer
	users      map[int64]core.User
}

var _ core.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		items:      make(map[int64]core.InventoryItem),
		skus:       make(map[string]int64),
		warehouses: make(map[int64]core.Warehouse),
		stocks:     make(map[core.StockKey]core.Stock),
		transfers:  make(map[int64]core.StockTransfer),
		users:      make(map[int64]core.User),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func byNameThenID(a string, aID int64, b string, bID int64) bool {
	if a != b {
		return a < b
	}
	return aID < bID
}

func (s *Store) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

// Catalog -------------------------------------------------------------------

func (s *Store) CreateItem(_ context.Context, item *core.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.skus[item.SKU]; exists {
		return fmt.Errorf("sku %s already exists: %w", item.SKU, core.ErrConflict)
	}
	item.ID = s.nextIDLocked()
	s.items[item.ID] = *item
	s.skus[item.SKU] = item.ID
	return nil
}

func (s *Store) GetItem(_ context.Context, id int64) (*core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context, activeOnly bool) ([]core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if activeOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

// UpdateItem overwrites the mutable columns of an item. The SKU is kept.
func (s *Store) UpdateItem(_ context.Context, item *core.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[item.ID]
	if !ok {
		return core.ErrNotFound
	}
	updated := *item
	updated.SKU = current.SKU
	updated.CreatedAt = current.CreatedAt
	s.items[item.ID] = updated
	return nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false, core.ErrNotFound
	}
	if s.itemReferencedLocked(id) {
		item.IsActive = false
		s.items[id] = item
		return true, nil
	}
	delete(s.items, id)
	delete(s.skus, item.SKU)
	return false, nil
}

func (s *Store) itemReferencedLocked(id int64) bool {
	for k := range s.stocks {
		if k.ItemID == id {
			return true
		}
	}
	for _, t := range s.transfers {
		if t.ItemID == id {
			return true
		}
	}
	return false
}

func (s *Store) CreateWarehouse(_ context.Context, w *core.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.ID = s.nextIDLocked()
	s.warehouses[w.ID] = *w
	return nil
}

func (s *Store) GetWarehouse(_ context.Context, id int64) (*core.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.warehouses[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &w, nil
}

func (s *Store) ListWarehouses(_ context.Context, activeOnly bool) ([]core.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		if activeOnly && !w.IsActive {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (s *Store) UpdateWarehouse(_ context.Context, w *core.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.warehouses[w.ID]
	if !ok {
		return core.ErrNotFound
	}
	updated := *w
	updated.CreatedAt = current.CreatedAt
	s.warehouses[w.ID] = updated
	return nil
}

func (s *Store) DeleteWarehouse(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.warehouses[id]
	if !ok {
		return false, core.ErrNotFound
	}
	if s.warehouseReferencedLocked(id) {
		w.IsActive = false
		s.warehouses[id] = w
		return true, nil
	}
	delete(s.warehouses, id)
	return false, nil
}

func (s *Store) warehouseReferencedLocked(id int64) bool {
	for k := range s.stocks {
		if k.WarehouseID == id {
			return true
		}
	}
	for _, t := range s.transfers {
		if t.FromWarehouseID == id || t.ToWarehouseID == id {
			return true
		}
	}
	return false
}

// Stock and transfers -------------------------------------------------------

func (s *Store) GetStock(_ context.Context, warehouseID, itemID int64) (*core.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stocks[core.StockKey{WarehouseID: warehouseID, ItemID: itemID}]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &st, nil
}

func (s *Store) GetTransfer(_ context.Context, id int64) (*core.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTransfers(_ context.Context, f core.TransferFilter) ([]core.StockTransfer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.StockTransfer
	for _, t := range s.transfers {
		if f.Matches(&t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.PerPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) TransferStats(_ context.Context) (*core.TransferStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &core.TransferStats{TotalTransfers: len(s.transfers)}
	for _, t := range s.transfers {
		switch t.Status {
		case core.TransferPending:
			stats.PendingTransfers++
		case core.TransferCompleted:
			stats.CompletedTransfers++
			stats.TotalItemsTransferred += t.Quantity
		case core.TransferCancelled:
			stats.CancelledTransfers++
		}
	}
	return stats, nil
}

func (s *Store) ListWarehouseStock(_ context.Context, warehouseID int64) ([]core.WarehouseStockLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := []core.WarehouseStockLine{}
	for k, st := range s.stocks {
		if k.WarehouseID != warehouseID {
			continue
		}
		lines = append(lines, core.WarehouseStockLine{
			StockID:           st.ID,
			Item:              s.items[k.ItemID],
			Quantity:          st.Quantity,
			AvailableQuantity: st.AvailableQuantity,
			ReservedQuantity:  st.ReservedQuantity,
			UnitCost:          st.UnitCost,
			LastRestocked:     st.LastRestocked,
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		return byNameThenID(lines[i].Item.Name, lines[i].StockID, lines[j].Item.Name, lines[j].StockID)
	})
	return lines, nil
}

func (s *Store) ListLowStock(_ context.Context) ([]core.LowStockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := make(map[int64][]core.Stock)
	for k, st := range s.stocks {
		byItem[k.ItemID] = append(byItem[k.ItemID], st)
	}

	out := []core.LowStockItem{}
	for itemID, rows := range byItem {
		item, ok := s.items[itemID]
		if !ok || !item.IsActive {
			continue
		}
		low := false
		for i := range rows {
			if rows[i].IsLow(item.MinStockLevel) {
				low = true
				break
			}
		}
		if !low {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].WarehouseID < rows[j].WarehouseID })

		entry := core.LowStockItem{
			ItemID:        item.ID,
			Name:          item.Name,
			SKU:           item.SKU,
			MinStockLevel: item.MinStockLevel,
			Warehouses:    make([]core.WarehouseAvailable, 0, len(rows)),
		}
		for _, st := range rows {
			entry.TotalAvailable += st.AvailableQuantity
			entry.Warehouses = append(entry.Warehouses, core.WarehouseAvailable{
				WarehouseID:       st.WarehouseID,
				Warehouse:         s.warehouses[st.WarehouseID].Name,
				AvailableQuantity: st.AvailableQuantity,
			})
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return byNameThenID(out[i].Name, out[i].ItemID, out[j].Name, out[j].ItemID) })
	return out, nil
}

// Users ---------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %s already exists: %w", u.Username, core.ErrConflict)
		}
	}
	u.ID = s.nextIDLocked()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

// Units of work -------------------------------------------------------------

func (s *Store) WithinTx(ctx context.Context, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks, err := s.runTx(ctx, fn)
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (s *Store) runTx(ctx context.Context, fn func(tx core.Tx) error) ([]func(), error) {
	s.writer.Lock()
	defer s.writer.Unlock()

	t := newTx(s)
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.commit(t)
	return t.hooks, nil
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, st := range t.stocks {
		s.stocks[k] = st
	}
	for id, tr := range t.transfers {
		s.transfers[id] = tr
	}
	for id := range t.deleted {
		delete(s.transfers, id)
	}
}

// tx stages writes over the committed state. Only the goroutine holding
// Store.writer touches it.
type tx struct {
	store     *Store
	stocks    map[core.StockKey]core.Stock
	transfers map[int64]core.StockTransfer
	deleted   map[int64]struct{}
	hooks     []func()
}

var _ core.Tx = (*tx)(nil)

func newTx(s *Store) *tx {
	return &tx{
		store:     s,
		stocks:    make(map[core.StockKey]core.Stock),
		transfers: make(map[int64]core.StockTransfer),
		deleted:   make(map[int64]struct{}),
	}
}

func (t *tx) GetItem(ctx context.Context, id int64) (*core.InventoryItem, error) {
	return t.store.GetItem(ctx, id)
}

func (t *tx) GetWarehouse(ctx context.Context, id int64) (*core.Warehouse, error) {
	return t.store.GetWarehouse(ctx, id)
}

func (t *tx) stock(k core.StockKey) (core.Stock, bool) {
	if st, ok := t.stocks[k]; ok {
		return st, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	st, ok := t.store.stocks[k]
	return st, ok
}

func (t *tx) LockStocks(_ context.Context, itemID int64, warehouseIDs ...int64) (map[int64]*core.Stock, error) {
	out := make(map[int64]*core.Stock, len(warehouseIDs))
	for _, wid := range warehouseIDs {
		if st, ok := t.stock(core.StockKey{WarehouseID: wid, ItemID: itemID}); ok {
			out[wid] = &st
		}
	}
	return out, nil
}

func (t *tx) GetOrCreateStock(ctx context.Context, warehouseID, itemID int64) (*core.Stock, error) {
	k := core.StockKey{WarehouseID: warehouseID, ItemID: itemID}
	if st, ok := t.stock(k); ok {
		return &st, nil
	}
	if _, err := t.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, fmt.Errorf("warehouse %d: %w", warehouseID, err)
	}
	if _, err := t.GetItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, err)
	}
	st := core.Stock{ID: t.store.allocID(), WarehouseID: warehouseID, ItemID: itemID}
	t.stocks[k] = st
	return &st, nil
}

func (t *tx) SaveStock(_ context.Context, st *core.Stock) error {
	if !st.Consistent() {
		return fmt.Errorf("stock %s violates quantity invariant", st.Key())
	}
	t.stocks[st.Key()] = *st
	return nil
}

func (t *tx) LockTransfer(_ context.Context, id int64) (*core.StockTransfer, error) {
	if _, gone := t.deleted[id]; gone {
		return nil, core.ErrNotFound
	}
	if tr, ok := t.transfers[id]; ok {
		return &tr, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	tr, ok := t.store.transfers[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &tr, nil
}

func (t *tx) InsertTransfer(_ context.Context, tr *core.StockTransfer) error {
	tr.ID = t.store.allocID()
	t.transfers[tr.ID] = *tr
	return nil
}

func (t *tx) UpdateTransfer(ctx context.Context, tr *core.StockTransfer) error {
	if _, err := t.LockTransfer(ctx, tr.ID); err != nil {
		return err
	}
	t.transfers[tr.ID] = *tr
	return nil
}

func (t *tx) DeleteTransfer(ctx context.Context, id int64) error {
	if _, err := t.LockTransfer(ctx, id); err != nil {
		return err
	}
	delete(t.transfers, id)
	t.deleted[id] = struct{}{}
	return nil
}

func (t *tx) Savepoint(_ context.Context, fn func(tx core.Tx) error) error {
	child := &tx{
		store:     t.store,
		stocks:    maps.Clone(t.stocks),
		transfers: maps.Clone(t.transfers),
		deleted:   maps.Clone(t.deleted),
	}
	if err := fn(child); err != nil {
		return err
	}
	t.stocks, t.transfers, t.deleted = child.stocks, child.transfers, child.deleted
	t.hooks = append(t.hooks, child.hooks...)
	return nil
}

func (t *tx) AfterCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}
