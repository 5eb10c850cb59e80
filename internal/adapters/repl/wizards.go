package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-transfer/internal/app"
)

// handleNewTransfer prompts for each field of a transfer, shows the source stock,
// and creates the transfer after confirmation. Typing 'cancel' at any prompt aborts.
func handleNewTransfer(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService) {
	fmt.Fprintln(out, "New stock transfer. Type 'cancel' at any prompt to abort.")

	var req app.CreateTransferRequest
	var ok bool
	if req.FromWarehouseID, ok = promptID(reader, out, "From warehouse id"); !ok {
		return
	}
	if req.ToWarehouseID, ok = promptID(reader, out, "To warehouse id"); !ok {
		return
	}
	if req.ItemID, ok = promptID(reader, out, "Item id"); !ok {
		return
	}

	if res, err := svc.GetStock(ctx, req.FromWarehouseID, req.ItemID); err == nil {
		fmt.Fprintf(out, "  Available at source: %d\n", res.Stock.AvailableQuantity)
	}

	qty, ok := promptID(reader, out, "Quantity")
	if !ok {
		return
	}
	req.Quantity = int(qty)

	notes, ok := prompt(reader, out, "Notes (optional)")
	if !ok {
		return
	}
	req.Notes = notes

	fmt.Fprintf(out, "Create transfer of %d units of item %d from warehouse %d to %d? (y/n): ",
		req.Quantity, req.ItemID, req.FromWarehouseID, req.ToWarehouseID)
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(strings.ToLower(choice))
	if choice != "y" && choice != "yes" {
		fmt.Fprintln(out, "Transfer creation cancelled.")
		return
	}

	res, err := svc.CreateTransfer(ctx, req)
	if err != nil {
		fmt.Fprintf(out, "Transfer FAILED: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Transfer %d created (pending). Run /execute %d to move the stock.\n", res.Transfer.ID, res.Transfer.ID)
}

// prompt reads one line. ok is false when the user cancels or input ends.
func prompt(reader *bufio.Reader, out io.Writer, label string) (string, bool) {
	fmt.Fprintf(out, "  %s: ", label)
	raw, err := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "cancel") || (err != nil && raw == "") {
		fmt.Fprintln(out, "Transfer creation cancelled.")
		return "", false
	}
	return raw, true
}

func promptID(reader *bufio.Reader, out io.Writer, label string) (int64, bool) {
	for {
		raw, ok := prompt(reader, out, label)
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 1 {
			fmt.Fprintln(out, "  Enter a positive whole number.")
			continue
		}
		return v, true
	}
}
