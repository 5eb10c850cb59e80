package core

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a catalog entry. SKU is the business key and never changes once assigned.
type InventoryItem struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	Brand         string          `json:"brand"`
	Unit          string          `json:"unit"`
	MinStockLevel int             `json:"min_stock_level"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Warehouse represents a physical storage location.
type Warehouse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	ContactPerson string    `json:"contact_person"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Stock is the ledger row for one (warehouse, item) pair.
//
// Invariant: Quantity = AvailableQuantity + ReservedQuantity, all three >= 0.
// The mutators below keep it; they never touch the row when they return an error.
type Stock struct {
	ID                int64            `json:"id"`
	WarehouseID       int64            `json:"warehouse_id"`
	ItemID            int64            `json:"inventory_item_id"`
	Quantity          int              `json:"quantity"`
	ReservedQuantity  int              `json:"reserved_quantity"`
	AvailableQuantity int              `json:"available_quantity"`
	UnitCost          *decimal.Decimal `json:"unit_cost"`
	LastRestocked     *time.Time       `json:"last_restocked"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// StockKey identifies a stock row.
type StockKey struct {
	WarehouseID int64
	ItemID      int64
}

func (s *Stock) Key() StockKey {
	return StockKey{WarehouseID: s.WarehouseID, ItemID: s.ItemID}
}

func (k StockKey) String() string {
	return fmt.Sprintf("warehouse %d / item %d", k.WarehouseID, k.ItemID)
}

// Reserve moves qty from available to reserved.
func (s *Stock) Reserve(qty int) error {
	if err := checkPositive(qty); err != nil {
		return err
	}
	if s.AvailableQuantity < qty {
		return fmt.Errorf("reserve %d at %s: %w (available %d)", qty, s.Key(), ErrInsufficientAvailable, s.AvailableQuantity)
	}
	s.AvailableQuantity -= qty
	s.ReservedQuantity += qty
	return nil
}

// Release moves qty from reserved back to available.
func (s *Stock) Release(qty int) error {
	if err := checkPositive(qty); err != nil {
		return err
	}
	if s.ReservedQuantity < qty {
		return fmt.Errorf("release %d at %s: %w (reserved %d)", qty, s.Key(), ErrInsufficientReserved, s.ReservedQuantity)
	}
	s.ReservedQuantity -= qty
	s.AvailableQuantity += qty
	return nil
}

// MaxStockQuantity is the largest quantity a stock row can hold (the INTEGER column limit).
const MaxStockQuantity = math.MaxInt32

// Add receives qty units, up to MaxStockQuantity in total.
func (s *Stock) Add(qty int, now time.Time) error {
	if err := checkPositive(qty); err != nil {
		return err
	}
	if qty > MaxStockQuantity-s.Quantity {
		return newValidationError("quantity",
			fmt.Sprintf("The quantity would exceed the maximum of %d units (current %d).", MaxStockQuantity, s.Quantity))
	}
	s.Quantity += qty
	s.AvailableQuantity += qty
	s.LastRestocked = &now
	return nil
}

// Remove takes qty units out of the available pool.
func (s *Stock) Remove(qty int) error {
	if err := checkPositive(qty); err != nil {
		return err
	}
	if s.AvailableQuantity < qty {
		return fmt.Errorf("remove %d at %s: %w (available %d)", qty, s.Key(), ErrInsufficientAvailable, s.AvailableQuantity)
	}
	s.Quantity -= qty
	s.AvailableQuantity -= qty
	return nil
}

// IsLow applies the low-stock rule against the item's threshold.
func (s *Stock) IsLow(minStockLevel int) bool {
	return s.AvailableQuantity <= minStockLevel
}

// Percentage is available/quantity as a percentage rounded to two places.
func (s *Stock) Percentage() float64 {
	if s.Quantity == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(s.AvailableQuantity)).
		Div(decimal.NewFromInt(int64(s.Quantity))).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// Consistent reports whether the quantity invariant holds.
func (s *Stock) Consistent() bool {
	return s.Quantity >= 0 && s.ReservedQuantity >= 0 && s.AvailableQuantity >= 0 &&
		s.Quantity == s.AvailableQuantity+s.ReservedQuantity
}

func checkPositive(qty int) error {
	if qty <= 0 {
		return newValidationError("quantity", fmt.Sprintf("quantity must be positive, got %d", qty))
	}
	return nil
}

// WarehouseStockLine is a read view of one stock row joined with its item.
type WarehouseStockLine struct {
	StockID           int64            `json:"id"`
	Item              InventoryItem    `json:"item"`
	Quantity          int              `json:"quantity"`
	AvailableQuantity int              `json:"available_quantity"`
	ReservedQuantity  int              `json:"reserved_quantity"`
	UnitCost          *decimal.Decimal `json:"unit_cost"`
	LastRestocked     *time.Time       `json:"last_restocked"`
	StockPercentage   float64          `json:"stock_percentage"`
	IsLowStock        bool             `json:"is_low_stock"`
}

// LowStockItem is one line of the low-stock report.
type LowStockItem struct {
	ItemID         int64                `json:"id"`
	Name           string               `json:"name"`
	SKU            string               `json:"sku"`
	MinStockLevel  int                  `json:"min_stock_level"`
	TotalAvailable int                  `json:"total_available"`
	Warehouses     []WarehouseAvailable `json:"warehouses"`
}

// WarehouseAvailable is a per-warehouse availability figure inside a LowStockItem.
type WarehouseAvailable struct {
	WarehouseID       int64  `json:"warehouse_id"`
	Warehouse         string `json:"warehouse"`
	AvailableQuantity int    `json:"available_quantity"`
}
