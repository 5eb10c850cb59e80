package repl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-transfer/internal/app"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Catalog:")
	fmt.Fprintln(out, "  /warehouses                          list active warehouses")
	fmt.Fprintln(out, "  /items                               list active items")
	fmt.Fprintln(out, "  /inventory <warehouse_id>            stock held by one warehouse")
	fmt.Fprintln(out, "  /low-stock                           items at or below their minimum")
	fmt.Fprintln(out, "Stock:")
	fmt.Fprintln(out, "  /stock <warehouse_id> <item_id>")
	fmt.Fprintln(out, "  /receive <warehouse_id> <item_id> <qty>")
	fmt.Fprintln(out, "Transfers:")
	fmt.Fprintln(out, "  /new-transfer                        guided transfer creation")
	fmt.Fprintln(out, "  /transfer <from> <to> <item> <qty> [notes]")
	fmt.Fprintln(out, "  /execute <id>    /cancel <id>")
	fmt.Fprintln(out, "  /transfers [status]                  newest first")
	fmt.Fprintln(out, "  /stats")
	fmt.Fprintln(out, "  /exit")
}

func printWarehouses(out io.Writer, res *app.WarehouseListResult) {
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "  %-6s %-28s %-30s\n", "ID", "NAME", "LOCATION")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, w := range res.Warehouses {
		fmt.Fprintf(out, "  %-6d %-28s %-30s\n", w.ID, truncate(w.Name, 28), truncate(w.Location, 30))
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
}

func printItems(out io.Writer, res *app.ItemListResult) {
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "  %-6s %-12s %-30s %10s %6s\n", "ID", "SKU", "NAME", "PRICE", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, it := range res.Items {
		fmt.Fprintf(out, "  %-6d %-12s %-30s %10s %6d\n",
			it.ID, it.SKU, truncate(it.Name, 30), it.Price.StringFixed(2), it.MinStockLevel)
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
}

func printInventory(out io.Writer, res *app.WarehouseInventoryResult) {
	fmt.Fprintf(out, "%s (%s)\n", res.Warehouse.Name, res.Warehouse.Location)
	if len(res.Inventory) == 0 {
		fmt.Fprintln(out, "  No stock held.")
		return
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "  %-12s %-24s %8s %8s %8s %7s\n", "SKU", "NAME", "QTY", "AVAIL", "RSVD", "%")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, l := range res.Inventory {
		flag := ""
		if l.IsLowStock {
			flag = "  LOW"
		}
		fmt.Fprintf(out, "  %-12s %-24s %8d %8d %8d %7.2f%s\n",
			l.Item.SKU, truncate(l.Item.Name, 24), l.Quantity, l.AvailableQuantity, l.ReservedQuantity, l.StockPercentage, flag)
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%q is not a valid id", s)
	}
	return id, nil
}
