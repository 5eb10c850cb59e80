package repl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/core"
	"inventory-transfer/internal/store/memory"
)

type session struct {
	svc              app.ApplicationService
	from, to, itemID int64
}

func newSession(t *testing.T) *session {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	ledger := core.NewLedger(store, nil)
	svc := app.NewAppService(app.Deps{
		Transfers: core.NewTransferService(store, ledger),
		Ledger:    ledger,
		Inventory: core.NewInventoryService(store),
		Users:     core.NewUserService(store),
	})
	a, err := svc.CreateWarehouse(ctx, app.CreateWarehouseRequest{Name: "Central", Location: "Amsterdam"})
	require.NoError(t, err)
	b, err := svc.CreateWarehouse(ctx, app.CreateWarehouseRequest{Name: "North", Location: "Groningen"})
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, app.CreateItemRequest{SKU: "WID-001", Name: "Widget"})
	require.NoError(t, err)
	_, err = svc.ReceiveStock(ctx, app.StockMovementRequest{WarehouseID: a.ID, ItemID: item.ID, Quantity: 50})
	require.NoError(t, err)
	return &session{svc: svc, from: a.ID, to: b.ID, itemID: item.ID}
}

func (s *session) run(input string) string {
	var out bytes.Buffer
	Run(context.Background(), s.svc, bufio.NewReader(strings.NewReader(input)), &out)
	return out.String()
}

func TestRun_DispatchesSlashCommands(t *testing.T) {
	s := newSession(t)

	out := s.run(fmt.Sprintf("/inventory %d\n/warehouses\n/stats\n/exit\n", s.from))
	assert.Contains(t, out, "Central (Amsterdam)")
	assert.Contains(t, out, "WID-001")
	assert.Contains(t, out, "North")
	assert.Contains(t, out, "Total transfers      : 0")
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_UnknownAndPlainInput(t *testing.T) {
	s := newSession(t)

	out := s.run("hello\n/bogus\n")
	assert.Contains(t, out, "Commands start with /")
	assert.Contains(t, out, `unknown command "bogus"`)
}

func TestRun_ReportsServiceErrors(t *testing.T) {
	s := newSession(t)

	out := s.run("/execute 999\n")
	assert.Contains(t, out, "Error:")
}

func TestNewTransferWizard(t *testing.T) {
	s := newSession(t)

	input := fmt.Sprintf("/new-transfer\n%d\n%d\nabc\n%d\n20\nrestock north\ny\n/exit\n", s.from, s.to, s.itemID)
	out := s.run(input)
	assert.Contains(t, out, "Enter a positive whole number.")
	assert.Contains(t, out, "Available at source: 50")
	assert.Contains(t, out, "created (pending)")

	page, err := s.svc.ListTransfers(context.Background(), app.ListTransfersRequest{})
	require.NoError(t, err)
	require.Len(t, page.Transfers, 1)
	assert.Equal(t, 20, page.Transfers[0].Quantity)
	assert.Equal(t, "restock north", page.Transfers[0].Notes)
}

func TestNewTransferWizard_Cancel(t *testing.T) {
	s := newSession(t)

	out := s.run(fmt.Sprintf("/new-transfer\n%d\ncancel\n", s.from))
	assert.Contains(t, out, "Transfer creation cancelled.")

	page, err := s.svc.ListTransfers(context.Background(), app.ListTransfersRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Transfers)
}
