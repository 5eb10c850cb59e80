package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"inventory-transfer/internal/cache"
	"inventory-transfer/internal/core"
)

// ErrInvalidCredentials is returned by AuthenticateUser for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Recorder counts transfer operations, typically into Prometheus.
type Recorder interface {
	TransferOperation(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) TransferOperation(string, string) {}

type appService struct {
	transfers core.TransferService
	ledger    core.StockLedger
	inventory core.InventoryService
	users     core.UserService
	cache     cache.Cache
	views     cache.InventoryViews
	cacheTTL  time.Duration
	recorder  Recorder
	logger    *zap.Logger
}

// Deps are the collaborators of the application service. Cache and Recorder are optional.
type Deps struct {
	Transfers core.TransferService
	Ledger    core.StockLedger
	Inventory core.InventoryService
	Users     core.UserService
	Cache     cache.Cache
	CacheTTL  time.Duration
	Recorder  Recorder
	Logger    *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	s := &appService{
		transfers: d.Transfers,
		ledger:    d.Ledger,
		inventory: d.Inventory,
		users:     d.Users,
		cache:     d.Cache,
		cacheTTL:  d.CacheTTL,
		recorder:  d.Recorder,
		logger:    d.Logger,
	}
	if s.cache == nil {
		s.cache = cache.NewInMemoryCache()
	}
	s.views = cache.NewInventoryViews(s.cache)
	if s.cacheTTL <= 0 {
		s.cacheTTL = 300 * time.Second
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ── Transfers ────────────────────────────────────────────────────────────────

func (s *appService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*TransferResult, error) {
	in := req.input()
	t, err := s.createTransfer(ctx, in)
	s.recorder.TransferOperation("create", OutcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock transfer created",
		zap.Int64("transfer_id", t.ID),
		zap.Int64("from_warehouse_id", t.FromWarehouseID),
		zap.Int64("to_warehouse_id", t.ToWarehouseID),
		zap.Int64("inventory_item_id", t.ItemID),
		zap.Int("quantity", t.Quantity),
	)
	return &TransferResult{Transfer: t, CanExecute: true}, nil
}

func (s *appService) createTransfer(ctx context.Context, in core.NewTransferInput) (*core.StockTransfer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, in); err != nil {
		return nil, err
	}
	return s.transfers.CreateTransfer(ctx, in)
}

// checkAvailability rejects a transfer the source cannot cover at creation time.
// Execute checks again under lock; this only gives the caller an early answer.
func (s *appService) checkAvailability(ctx context.Context, in core.NewTransferInput) error {
	st, err := s.ledger.GetStock(ctx, in.FromWarehouseID, in.ItemID)
	if errors.Is(err, core.ErrNotFound) {
		// Unknown warehouse or item; the transfer service reports which.
		return nil
	}
	if err != nil {
		return err
	}
	v := &core.ValidationError{}
	switch {
	case st.ID == 0:
		v.Add("inventory_item_id", "The selected item is not available in the source warehouse.")
	case st.AvailableQuantity < in.Quantity:
		v.Add("quantity", fmt.Sprintf("Insufficient stock available. Available: %d", st.AvailableQuantity))
	}
	return v.OrNil()
}

func (s *appService) GetTransfer(ctx context.Context, id int64) (*TransferResult, error) {
	t, err := s.transfers.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.transfers.CanExecute(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Transfer: t, CanExecute: ok}, nil
}

func (s *appService) ListTransfers(ctx context.Context, req ListTransfersRequest) (*core.TransferPage, error) {
	return s.transfers.ListTransfers(ctx, req.filter())
}

func (s *appService) ExecuteTransfer(ctx context.Context, id int64) (*TransferResult, error) {
	t, err := s.transfers.Execute(ctx, id)
	s.recorder.TransferOperation("execute", OutcomeOf(err))
	if err != nil {
		if errors.Is(err, core.ErrInconsistentState) {
			s.logger.Error("Transfer compensation failed, stock needs reconciliation",
				zap.Int64("transfer_id", id),
				zap.Error(err),
			)
		}
		return nil, err
	}
	s.logger.Info("Stock transfer executed",
		zap.Int64("transfer_id", t.ID),
		zap.Int("quantity", t.Quantity),
	)
	return &TransferResult{Transfer: t}, nil
}

func (s *appService) CancelTransfer(ctx context.Context, id int64) (*TransferResult, error) {
	t, err := s.transfers.Cancel(ctx, id)
	s.recorder.TransferOperation("cancel", OutcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock transfer cancelled", zap.Int64("transfer_id", t.ID))
	return &TransferResult{Transfer: t}, nil
}

func (s *appService) UpdateTransferNotes(ctx context.Context, id int64, req UpdateTransferRequest) (*TransferResult, error) {
	t, err := s.transfers.UpdateNotes(ctx, id, req.Notes)
	if err != nil {
		return nil, err
	}
	return s.GetTransfer(ctx, t.ID)
}

func (s *appService) DeleteTransfer(ctx context.Context, id int64) error {
	return s.transfers.DeleteTransfer(ctx, id)
}

func (s *appService) TransferStatistics(ctx context.Context) (*core.TransferStats, error) {
	return s.transfers.Statistics(ctx)
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *appService) GetStock(ctx context.Context, warehouseID, itemID int64) (*StockResult, error) {
	st, err := s.ledger.GetStock(ctx, warehouseID, itemID)
	if err != nil {
		return nil, err
	}
	return stockResult(st), nil
}

func (s *appService) ReceiveStock(ctx context.Context, req StockMovementRequest) (*StockResult, error) {
	return s.move(req, func() (*core.Stock, error) {
		return s.ledger.ReceiveStock(ctx, req.WarehouseID, req.ItemID, req.Quantity, req.UnitCost)
	})
}

func (s *appService) IssueStock(ctx context.Context, req StockMovementRequest) (*StockResult, error) {
	return s.move(req, func() (*core.Stock, error) {
		return s.ledger.IssueStock(ctx, req.WarehouseID, req.ItemID, req.Quantity)
	})
}

func (s *appService) ReserveStock(ctx context.Context, req StockMovementRequest) (*StockResult, error) {
	return s.move(req, func() (*core.Stock, error) {
		return s.ledger.ReserveStock(ctx, req.WarehouseID, req.ItemID, req.Quantity)
	})
}

func (s *appService) ReleaseStock(ctx context.Context, req StockMovementRequest) (*StockResult, error) {
	return s.move(req, func() (*core.Stock, error) {
		return s.ledger.ReleaseStock(ctx, req.WarehouseID, req.ItemID, req.Quantity)
	})
}

func (s *appService) move(req StockMovementRequest, op func() (*core.Stock, error)) (*StockResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	st, err := op()
	if err != nil {
		return nil, err
	}
	return stockResult(st), nil
}

func stockResult(st *core.Stock) *StockResult {
	return &StockResult{Stock: st, StockPercentage: st.Percentage()}
}

// ── Warehouses ───────────────────────────────────────────────────────────────

func (s *appService) ListWarehouses(ctx context.Context) (*WarehouseListResult, error) {
	ws, err := s.inventory.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return &WarehouseListResult{Warehouses: ws}, nil
}

func (s *appService) GetWarehouse(ctx context.Context, id int64) (*core.Warehouse, error) {
	return s.inventory.GetWarehouse(ctx, id)
}

func (s *appService) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*core.Warehouse, error) {
	return s.inventory.CreateWarehouse(ctx, req.warehouse())
}

func (s *appService) DeleteWarehouse(ctx context.Context, id int64) (*DeleteResult, error) {
	deactivated, err := s.inventory.DeleteWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return &DeleteResult{Deactivated: deactivated}, nil
}

func (s *appService) UpdateWarehouse(ctx context.Context, id int64, req UpdateWarehouseRequest) (*core.Warehouse, error) {
	w, err := s.inventory.UpdateWarehouse(ctx, id, req.patch())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.logger.Info("Warehouse updated", zap.Int64("warehouse_id", id))
	return w, nil
}

func (s *appService) WarehouseInventory(ctx context.Context, id int64) (*WarehouseInventoryResult, error) {
	// The key is resolved before loading so a concurrent invalidation retires it.
	key, err := s.views.Key(ctx, id)
	if err != nil {
		s.logger.Warn("Inventory cache version read failed", zap.Int64("warehouse_id", id), zap.Error(err))
		key = ""
	}

	if key != "" {
		var cached WarehouseInventoryResult
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		switch {
		case err == nil:
			return &cached, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn("Inventory cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	w, err := s.inventory.GetWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.inventory.WarehouseInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &WarehouseInventoryResult{Warehouse: w, Inventory: lines}
	if key == "" {
		return res, nil
	}
	if err := cache.SetJSON(ctx, s.cache, key, res, s.cacheTTL); err != nil {
		s.logger.Warn("Inventory cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

// ── Items ────────────────────────────────────────────────────────────────────

func (s *appService) ListItems(ctx context.Context) (*ItemListResult, error) {
	items, err := s.inventory.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) GetItem(ctx context.Context, id int64) (*core.InventoryItem, error) {
	return s.inventory.GetItem(ctx, id)
}

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*core.InventoryItem, error) {
	return s.inventory.CreateItem(ctx, req.item())
}

func (s *appService) DeleteItem(ctx context.Context, id int64) (*DeleteResult, error) {
	deactivated, err := s.inventory.DeleteItem(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateAll(ctx)
	return &DeleteResult{Deactivated: deactivated}, nil
}

func (s *appService) UpdateItem(ctx context.Context, id int64, req UpdateItemRequest) (*core.InventoryItem, error) {
	item, err := s.inventory.UpdateItem(ctx, id, req.patch())
	if err != nil {
		return nil, err
	}
	s.invalidateAll(ctx)
	s.logger.Info("Inventory item updated",
		zap.Int64("inventory_item_id", item.ID),
		zap.Int("min_stock_level", item.MinStockLevel),
		zap.Bool("is_active", item.IsActive),
	)
	return item, nil
}

func (s *appService) LowStockItems(ctx context.Context) (*LowStockResult, error) {
	items, err := s.inventory.LowStockReport(ctx)
	if err != nil {
		return nil, err
	}
	return &LowStockResult{Items: items}, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int64) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *appService) invalidate(ctx context.Context, warehouseID int64) {
	if err := s.views.Invalidate(ctx, warehouseID); err != nil {
		s.logger.Warn("Failed to invalidate inventory cache", zap.Int64("warehouse_id", warehouseID), zap.Error(err))
	}
}

// invalidateAll drops every warehouse view, since any of them may list an item.
func (s *appService) invalidateAll(ctx context.Context) {
	if err := s.views.InvalidateAll(ctx); err != nil {
		s.logger.Warn("Failed to invalidate inventory cache", zap.Error(err))
	}
}

// OutcomeOf maps an error to a short label for metrics and logs.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrInconsistentState):
		return "inconsistent_state"
	case core.IsValidation(err):
		return "validation"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrInsufficientAvailable):
		return "insufficient_available"
	case errors.Is(err, core.ErrInsufficientReserved):
		return "insufficient_reserved"
	case errors.Is(err, core.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
