package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"inventory-transfer/internal/adapters/cli"
	"inventory-transfer/internal/app"
)

var errExit = errors.New("exit")

// Run starts the interactive loop. Slash commands are dispatched to the one-shot
// CLI commands, so "/execute 4" behaves like "app execute 4". It returns when the
// user exits or reader is exhausted.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out, "Inventory Transfers")
	fmt.Fprintln(out, "Type /help for commands, /exit to quit.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	dispatch := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "exit", "quit":
			return errExit

		case "help":
			printHelp(out)

		case "warehouses":
			res, err := svc.ListWarehouses(ctx)
			if err != nil {
				return err
			}
			printWarehouses(out, res)

		case "items":
			res, err := svc.ListItems(ctx)
			if err != nil {
				return err
			}
			printItems(out, res)

		case "inventory":
			if len(args) < 1 {
				fmt.Fprintln(out, "Usage: /inventory <warehouse_id>")
				return nil
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := svc.WarehouseInventory(ctx, id)
			if err != nil {
				return err
			}
			printInventory(out, res)

		case "new-transfer":
			handleNewTransfer(ctx, reader, out, svc)

		default:
			if err := cli.Run(ctx, svc, append([]string{cmd}, args...), out); err != nil {
				if errors.Is(err, cli.ErrUsage) {
					fmt.Fprintf(out, "%v  (type /help for all commands)\n", err)
					return nil
				}
				return err
			}
		}
		return nil
	}

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with /. Type /help for the list.")
			} else if err := dispatch(input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
		if readErr != nil {
			return
		}
	}
}
