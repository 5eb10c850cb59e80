package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/core"
)

const usage = `Usage: app <command> [args]

Commands:
  stock <warehouse_id> <item_id>                        show one stock row
  receive <warehouse_id> <item_id> <qty>                book a goods receipt
  transfer <from_id> <to_id> <item_id> <qty> [notes]    create a pending transfer
  execute <transfer_id>                                 execute a pending transfer
  cancel <transfer_id>                                  cancel a pending transfer
  transfers [status]                                    list transfers, newest first
  low-stock                                             items at or below their minimum
  stats                                                 transfer statistics`

// ErrUsage is returned for an unknown command or malformed arguments.
var ErrUsage = errors.New("usage error")

// Run executes a one-shot CLI command, writing results to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "stock":
		ids, err := parseIDs(args[1:], 2)
		if err != nil {
			return err
		}
		res, err := svc.GetStock(ctx, ids[0], ids[1])
		if err != nil {
			return err
		}
		printStock(out, res)

	case "receive":
		ids, err := parseIDs(args[1:], 3)
		if err != nil {
			return err
		}
		res, err := svc.ReceiveStock(ctx, app.StockMovementRequest{
			WarehouseID: ids[0], ItemID: ids[1], Quantity: int(ids[2]),
		})
		if err != nil {
			return err
		}
		printStock(out, res)

	case "transfer":
		if len(args) < 5 {
			return fmt.Errorf("%w: app transfer <from_id> <to_id> <item_id> <qty> [notes]", ErrUsage)
		}
		ids, err := parseIDs(args[1:5], 4)
		if err != nil {
			return err
		}
		req := app.CreateTransferRequest{
			FromWarehouseID: ids[0],
			ToWarehouseID:   ids[1],
			ItemID:          ids[2],
			Quantity:        int(ids[3]),
		}
		if len(args) > 5 {
			req.Notes = strings.Join(args[5:], " ")
		}
		res, err := svc.CreateTransfer(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Transfer %d created (pending).\n", res.Transfer.ID)

	case "execute":
		ids, err := parseIDs(args[1:], 1)
		if err != nil {
			return err
		}
		res, err := svc.ExecuteTransfer(ctx, ids[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Transfer %d completed: %d units moved from warehouse %d to %d.\n",
			res.Transfer.ID, res.Transfer.Quantity, res.Transfer.FromWarehouseID, res.Transfer.ToWarehouseID)

	case "cancel":
		ids, err := parseIDs(args[1:], 1)
		if err != nil {
			return err
		}
		res, err := svc.CancelTransfer(ctx, ids[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Transfer %d cancelled.\n", res.Transfer.ID)

	case "transfers":
		req := app.ListTransfersRequest{PerPage: core.MaxPerPage}
		if len(args) > 1 {
			req.Status = args[1]
		}
		page, err := svc.ListTransfers(ctx, req)
		if err != nil {
			return err
		}
		printTransfers(out, page)

	case "low-stock":
		res, err := svc.LowStockItems(ctx)
		if err != nil {
			return err
		}
		printLowStock(out, res)

	case "stats":
		stats, err := svc.TransferStatistics(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Total transfers      : %d\n", stats.TotalTransfers)
		fmt.Fprintf(out, "Pending              : %d\n", stats.PendingTransfers)
		fmt.Fprintf(out, "Completed            : %d\n", stats.CompletedTransfers)
		fmt.Fprintf(out, "Cancelled            : %d\n", stats.CancelledTransfers)
		fmt.Fprintf(out, "Items transferred    : %d\n", stats.TotalItemsTransferred)

	default:
		fmt.Fprintln(out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return nil
}

func parseIDs(args []string, n int) ([]int64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: expected %d numeric arguments, got %d", ErrUsage, n, len(args))
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrUsage, args[i])
		}
		out[i] = v
	}
	return out, nil
}

func printStock(out io.Writer, res *app.StockResult) {
	s := res.Stock
	fmt.Fprintf(out, "Warehouse %d / item %d\n", s.WarehouseID, s.ItemID)
	fmt.Fprintf(out, "  Quantity  : %d\n", s.Quantity)
	fmt.Fprintf(out, "  Available : %d\n", s.AvailableQuantity)
	fmt.Fprintf(out, "  Reserved  : %d\n", s.ReservedQuantity)
	fmt.Fprintf(out, "  Percentage: %.2f%%\n", res.StockPercentage)
}

func printTransfers(out io.Writer, page *core.TransferPage) {
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-6s %-10s %6s %6s %8s %8s  %-16s\n", "ID", "STATUS", "FROM", "TO", "ITEM", "QTY", "CREATED")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, t := range page.Transfers {
		fmt.Fprintf(out, "  %-6d %-10s %6d %6d %8d %8d  %-16s\n",
			t.ID, t.Status, t.FromWarehouseID, t.ToWarehouseID, t.ItemID, t.Quantity, t.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %d transfer(s)\n", page.Total)
}

func printLowStock(out io.Writer, res *app.LowStockResult) {
	if len(res.Items) == 0 {
		fmt.Fprintln(out, "No items at or below their minimum stock level.")
		return
	}
	for _, it := range res.Items {
		fmt.Fprintf(out, "%s  %s  (min %d, total available %d)\n", it.SKU, it.Name, it.MinStockLevel, it.TotalAvailable)
		for _, w := range it.Warehouses {
			fmt.Fprintf(out, "    %-24s %6d\n", w.Warehouse, w.AvailableQuantity)
		}
	}
}
