// Package postgres implements core.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventory-transfer/internal/core"
)

// PostgreSQL error codes mapped onto core error kinds.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// mapErr translates driver errors into core error kinds.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrNotFound)
		}
	}
	return err
}

// ── Column lists and scanners ────────────────────────────────────────────────

const itemColumns = `id, sku, name, description, price, category, brand, unit, min_stock_level, is_active, created_at, updated_at`

func scanItem(row pgx.Row, i *core.InventoryItem) error {
	return row.Scan(&i.ID, &i.SKU, &i.Name, &i.Description, &i.Price, &i.Category, &i.Brand, &i.Unit,
		&i.MinStockLevel, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
}

const warehouseColumns = `id, name, location, description, contact_person, contact_email, contact_phone, is_active, created_at, updated_at`

func scanWarehouse(row pgx.Row, w *core.Warehouse) error {
	return row.Scan(&w.ID, &w.Name, &w.Location, &w.Description, &w.ContactPerson, &w.ContactEmail,
		&w.ContactPhone, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
}

const stockColumns = `id, warehouse_id, inventory_item_id, quantity, reserved_quantity, available_quantity,
	unit_cost, last_restocked, created_at, updated_at`

func scanStock(row pgx.Row, s *core.Stock) error {
	return row.Scan(&s.ID, &s.WarehouseID, &s.ItemID, &s.Quantity, &s.ReservedQuantity, &s.AvailableQuantity,
		&s.UnitCost, &s.LastRestocked, &s.CreatedAt, &s.UpdatedAt)
}

const transferColumns = `id, from_warehouse_id, to_warehouse_id, inventory_item_id, quantity, status, notes,
	created_by, transferred_at, created_at, updated_at`

func scanTransfer(row pgx.Row, t *core.StockTransfer) error {
	return row.Scan(&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &t.ItemID, &t.Quantity, &t.Status, &t.Notes,
		&t.CreatedBy, &t.TransferredAt, &t.CreatedAt, &t.UpdatedAt)
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at`

func scanUser(row pgx.Row, u *core.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
}

func getItem(ctx context.Context, q querier, id int64) (*core.InventoryItem, error) {
	var i core.InventoryItem
	if err := scanItem(q.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id), &i); err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

func getWarehouse(ctx context.Context, q querier, id int64) (*core.Warehouse, error) {
	var w core.Warehouse
	if err := scanWarehouse(q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id), &w); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *Store) CreateItem(ctx context.Context, i *core.InventoryItem) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (sku, name, description, price, category, brand, unit, min_stock_level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, i.SKU, i.Name, i.Description, i.Price, i.Category, i.Brand, i.Unit, i.MinStockLevel, i.IsActive,
		i.CreatedAt, i.UpdatedAt).Scan(&i.ID)
	return mapErr(err)
}

func (s *Store) GetItem(ctx context.Context, id int64) (*core.InventoryItem, error) {
	return getItem(ctx, s.pool, id)
}

func (s *Store) ListItems(ctx context.Context, activeOnly bool) ([]core.InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE is_active OR NOT $1
		ORDER BY name, id
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []core.InventoryItem{}
	for rows.Next() {
		var i core.InventoryItem
		if err := scanItem(rows, &i); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// UpdateItem writes every mutable column; sku and created_at are never updated.
func (s *Store) UpdateItem(ctx context.Context, i *core.InventoryItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE inventory_items
		SET name = $1, description = $2, price = $3, category = $4, brand = $5, unit = $6,
		    min_stock_level = $7, is_active = $8, updated_at = $9
		WHERE id = $10
	`, i.Name, i.Description, i.Price, i.Category, i.Brand, i.Unit, i.MinStockLevel, i.IsActive, i.UpdatedAt, i.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	return s.deleteOrDeactivate(ctx, "inventory_items", id, `
		SELECT EXISTS (SELECT 1 FROM stocks WHERE inventory_item_id = $1)
		    OR EXISTS (SELECT 1 FROM stock_transfers WHERE inventory_item_id = $1)`)
}

func (s *Store) CreateWarehouse(ctx context.Context, w *core.Warehouse) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (name, location, description, contact_person, contact_email, contact_phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, w.Name, w.Location, w.Description, w.ContactPerson, w.ContactEmail, w.ContactPhone, w.IsActive,
		w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
	return mapErr(err)
}

func (s *Store) GetWarehouse(ctx context.Context, id int64) (*core.Warehouse, error) {
	return getWarehouse(ctx, s.pool, id)
}

func (s *Store) ListWarehouses(ctx context.Context, activeOnly bool) ([]core.Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+warehouseColumns+`
		FROM warehouses
		WHERE is_active OR NOT $1
		ORDER BY name, id
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	warehouses := []core.Warehouse{}
	for rows.Next() {
		var w core.Warehouse
		if err := scanWarehouse(rows, &w); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *Store) UpdateWarehouse(ctx context.Context, w *core.Warehouse) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE warehouses
		SET name = $1, location = $2, description = $3, contact_person = $4, contact_email = $5,
		    contact_phone = $6, is_active = $7, updated_at = $8
		WHERE id = $9
	`, w.Name, w.Location, w.Description, w.ContactPerson, w.ContactEmail, w.ContactPhone, w.IsActive, w.UpdatedAt, w.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteWarehouse(ctx context.Context, id int64) (bool, error) {
	return s.deleteOrDeactivate(ctx, "warehouses", id, `
		SELECT EXISTS (SELECT 1 FROM stocks WHERE warehouse_id = $1)
		    OR EXISTS (SELECT 1 FROM stock_transfers WHERE from_warehouse_id = $1 OR to_warehouse_id = $1)`)
}

// deleteOrDeactivate hard-deletes row id of table unless referencedSQL reports a
// reference, in which case the row is deactivated instead.
func (s *Store) deleteOrDeactivate(ctx context.Context, table string, id int64, referencedSQL string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	if err := tx.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return false, mapErr(err)
	}

	var referenced bool
	if err := tx.QueryRow(ctx, referencedSQL, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("failed to check references: %w", err)
	}

	if referenced {
		_, err = tx.Exec(ctx, `UPDATE `+table+` SET is_active = false, updated_at = now() WHERE id = $1`, id)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	}
	if err != nil {
		return false, mapErr(err)
	}
	return referenced, tx.Commit(ctx)
}

// ── Stock and transfers ──────────────────────────────────────────────────────

func (s *Store) GetStock(ctx context.Context, warehouseID, itemID int64) (*core.Stock, error) {
	var st core.Stock
	err := scanStock(s.pool.QueryRow(ctx, `
		SELECT `+stockColumns+`
		FROM stocks
		WHERE warehouse_id = $1 AND inventory_item_id = $2
	`, warehouseID, itemID), &st)
	if err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

func (s *Store) GetTransfer(ctx context.Context, id int64) (*core.StockTransfer, error) {
	var t core.StockTransfer
	if err := scanTransfer(s.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id), &t); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// transferWhere builds the WHERE clause of a transfer listing.
func transferWhere(f core.TransferFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.WarehouseID != 0 {
		add("(from_warehouse_id = ? OR to_warehouse_id = ?)", f.WarehouseID)
	}
	if f.ItemID != 0 {
		add("inventory_item_id = ?", f.ItemID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListTransfers(ctx context.Context, f core.TransferFilter) ([]core.StockTransfer, int, error) {
	where, args := transferWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_transfers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM stock_transfers%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transferColumns, where, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, f.PerPage, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []core.StockTransfer
	for rows.Next() {
		var t core.StockTransfer
		if err := scanTransfer(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, total, rows.Err()
}

func (s *Store) TransferStats(ctx context.Context) (*core.TransferStats, error) {
	var st core.TransferStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COALESCE(SUM(quantity) FILTER (WHERE status = 'completed'), 0)
		FROM stock_transfers
	`).Scan(&st.TotalTransfers, &st.PendingTransfers, &st.CompletedTransfers, &st.CancelledTransfers, &st.TotalItemsTransferred)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListWarehouseStock(ctx context.Context, warehouseID int64) ([]core.WarehouseStockLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.quantity, s.available_quantity, s.reserved_quantity, s.unit_cost, s.last_restocked,
		       i.id, i.sku, i.name, i.description, i.price, i.category, i.brand, i.unit, i.min_stock_level,
		       i.is_active, i.created_at, i.updated_at
		FROM stocks s
		JOIN inventory_items i ON i.id = s.inventory_item_id
		WHERE s.warehouse_id = $1
		ORDER BY i.name, s.id
	`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse stock: %w", err)
	}
	defer rows.Close()

	lines := []core.WarehouseStockLine{}
	for rows.Next() {
		var l core.WarehouseStockLine
		i := &l.Item
		if err := rows.Scan(&l.StockID, &l.Quantity, &l.AvailableQuantity, &l.ReservedQuantity, &l.UnitCost, &l.LastRestocked,
			&i.ID, &i.SKU, &i.Name, &i.Description, &i.Price, &i.Category, &i.Brand, &i.Unit, &i.MinStockLevel,
			&i.IsActive, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse stock: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) ListLowStock(ctx context.Context) ([]core.LowStockItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.sku, i.min_stock_level, s.warehouse_id, w.name, s.available_quantity
		FROM inventory_items i
		JOIN stocks s     ON s.inventory_item_id = i.id
		JOIN warehouses w ON w.id = s.warehouse_id
		WHERE i.is_active
		  AND EXISTS (
		      SELECT 1 FROM stocks low
		      WHERE low.inventory_item_id = i.id AND low.available_quantity <= i.min_stock_level
		  )
		ORDER BY i.name, i.id, s.warehouse_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock: %w", err)
	}
	defer rows.Close()

	out := []core.LowStockItem{}
	for rows.Next() {
		var (
			itemID    int64
			name, sku string
			minLevel  int
			wa        core.WarehouseAvailable
		)
		if err := rows.Scan(&itemID, &name, &sku, &minLevel, &wa.WarehouseID, &wa.Warehouse, &wa.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan low stock: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ItemID != itemID {
			out = append(out, core.LowStockItem{ItemID: itemID, Name: name, SKU: sku, MinStockLevel: minLevel})
		}
		last := &out[len(out)-1]
		last.TotalAvailable += wa.AvailableQuantity
		last.Warehouses = append(last.Warehouses, wa)
	}
	return out, rows.Err()
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive).Scan(&u.ID, &u.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	if err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username), &u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	if err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// ── Units of work ────────────────────────────────────────────────────────────

func (s *Store) WithinTx(ctx context.Context, fn func(tx core.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx)

	t := &tx{tx: pgtx}
	if err := fn(t); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	for _, hook := range t.hooks {
		hook()
	}
	return nil
}

// tx is a core.Tx over a pgx transaction or savepoint.
type tx struct {
	tx    pgx.Tx
	hooks []func()
}

var _ core.Tx = (*tx)(nil)

func (t *tx) GetItem(ctx context.Context, id int64) (*core.InventoryItem, error) {
	return getItem(ctx, t.tx, id)
}

func (t *tx) GetWarehouse(ctx context.Context, id int64) (*core.Warehouse, error) {
	return getWarehouse(ctx, t.tx, id)
}

func (t *tx) LockStocks(ctx context.Context, itemID int64, warehouseIDs ...int64) (map[int64]*core.Stock, error) {
	ids := slices.Clone(warehouseIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	rows, err := t.tx.Query(ctx, `
		SELECT `+stockColumns+`
		FROM stocks
		WHERE inventory_item_id = $1 AND warehouse_id = ANY($2)
		ORDER BY warehouse_id
		FOR UPDATE
	`, itemID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*core.Stock, len(ids))
	for rows.Next() {
		var st core.Stock
		if err := scanStock(rows, &st); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		out[st.WarehouseID] = &st
	}
	return out, rows.Err()
}

func (t *tx) GetOrCreateStock(ctx context.Context, warehouseID, itemID int64) (*core.Stock, error) {
	// DO UPDATE rather than DO NOTHING so RETURNING yields the existing row and locks it.
	var st core.Stock
	err := scanStock(t.tx.QueryRow(ctx, `
		INSERT INTO stocks (warehouse_id, inventory_item_id, quantity, reserved_quantity, available_quantity)
		VALUES ($1, $2, 0, 0, 0)
		ON CONFLICT (warehouse_id, inventory_item_id) DO UPDATE SET updated_at = stocks.updated_at
		RETURNING `+stockColumns,
		warehouseID, itemID), &st)
	if err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

func (t *tx) SaveStock(ctx context.Context, st *core.Stock) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stocks
		SET quantity = $1, reserved_quantity = $2, available_quantity = $3,
		    unit_cost = $4, last_restocked = $5, updated_at = $6
		WHERE id = $7
	`, st.Quantity, st.ReservedQuantity, st.AvailableQuantity, st.UnitCost, st.LastRestocked, st.UpdatedAt, st.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock id=%d: %w", st.ID, core.ErrNotFound)
	}
	return nil
}

func (t *tx) LockTransfer(ctx context.Context, id int64) (*core.StockTransfer, error) {
	var tr core.StockTransfer
	if err := scanTransfer(t.tx.QueryRow(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id), &tr); err != nil {
		return nil, mapErr(err)
	}
	return &tr, nil
}

func (t *tx) InsertTransfer(ctx context.Context, tr *core.StockTransfer) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_transfers (from_warehouse_id, to_warehouse_id, inventory_item_id, quantity, status, notes,
		                             created_by, transferred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, tr.FromWarehouseID, tr.ToWarehouseID, tr.ItemID, tr.Quantity, string(tr.Status), tr.Notes,
		tr.CreatedBy, tr.TransferredAt, tr.CreatedAt, tr.UpdatedAt).Scan(&tr.ID)
	return mapErr(err)
}

func (t *tx) UpdateTransfer(ctx context.Context, tr *core.StockTransfer) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stock_transfers
		SET status = $1, notes = $2, transferred_at = $3, updated_at = $4
		WHERE id = $5
	`, string(tr.Status), tr.Notes, tr.TransferredAt, tr.UpdatedAt, tr.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteTransfer(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM stock_transfers WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *tx) Savepoint(ctx context.Context, fn func(tx core.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	child := &tx{tx: sp}
	if err := fn(child); err != nil {
		if rerr := sp.Rollback(ctx); rerr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rerr)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	t.hooks = append(t.hooks, child.hooks...)
	return nil
}

func (t *tx) AfterCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}
