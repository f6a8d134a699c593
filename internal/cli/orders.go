package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	AddressID string
	Notes     string
}

func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Long: `Place an order for everything in the cart.

The order is delivered to the default address unless --address is given.
The cart is emptied once the order is accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.RequireCart(); err != nil {
					return err
				}
				order, err := app.Checkout.PlaceOrder(ctx, service.PlaceOrderInput{
					AddressID:     opts.AddressID,
					DeliveryNotes: opts.Notes,
				})
				if err != nil {
					return err
				}
				app.SettleAndReport(ctx)
				return app.Out.Success(order, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s placed (%s).\n", order.ID, order.Status)
					if !order.Total.IsZero() {
						fmt.Fprintf(w, "Total: %s\n", formatMoney(order.Total))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.AddressID, "address", "", "saved address id (default address when empty)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "delivery notes")

	return cmd
}

func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show your order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				orders, err := app.Orders.History(ctx)
				if err != nil {
					return err
				}
				return app.Out.Success(orders, func(w io.Writer) {
					printOrders(w, orders, false)
				})
			})
		},
	}
}

// AdminOptions holds flags for the admin commands.
type AdminOptions struct {
	*RootOptions
	Status string
}

func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage all orders (admin accounts only)",
	}

	list := &cobra.Command{
		Use:   "orders",
		Short: "List every order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				orders, err := app.Orders.AllOrders(ctx, opts.Status)
				if err != nil {
					return err
				}
				return app.Out.Success(orders, func(w io.Writer) {
					printOrders(w, orders, true)
				})
			})
		},
	}
	list.Flags().StringVar(&opts.Status, "status", service.StatusFilterAll, "only show orders with this status")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Change an order's status",
		Long: fmt.Sprintf(`Change an order's status.

Valid statuses: %s`, statusList()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				order, err := app.Orders.UpdateStatus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return app.Out.Success(order, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s is now %s.\n", order.ID, order.Status)
				})
			})
		},
	})

	return cmd
}

func statusList() string {
	names := make([]string, len(domain.OrderStatuses))
	for i, s := range domain.OrderStatuses {
		names[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(names, ", ")
}

func printOrders(w io.Writer, orders []domain.Order, withCustomer bool) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "ID\tDATE\tITEMS\tTOTAL\tSTATUS"
	if withCustomer {
		header += "\tCUSTOMER"
	}
	fmt.Fprintln(tw, header)
	for _, o := range orders {
		items := 0
		for _, it := range o.Items {
			items += it.Quantity
		}
		line := fmt.Sprintf("%s\t%s\t%d\t%s\t%s", o.ID, o.CreatedAt.Format("2006-01-02"), items, formatMoney(o.Total), o.Status)
		if withCustomer {
			line += "\t" + o.Customer.Name
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}
