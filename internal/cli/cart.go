package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// CartOptions holds flags for the cart commands.
type CartOptions struct {
	*RootOptions
	Quantity int
}

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change your cart",
		Long: `Show and change your cart.

While signed in every change is saved to your account. Signed-out carts
only live for the current command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return showCart(ctx, app)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cart with prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return showCart(ctx, app)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Quantity < 1 {
				return NewExitError(ExitCommandError, "--quantity must be at least 1")
			}
			return mutateCart(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, err := app.Catalog.Product(ctx, args[0]); err != nil {
					return err
				}
				for i := 0; i < opts.Quantity; i++ {
					app.Cart.Dispatch(domain.AddItem(args[0]))
				}
				return nil
			})
		},
	}
	add.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "how many to add")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateCart(cmd, rootOpts, func(ctx context.Context, app *App) error {
				app.Cart.Dispatch(domain.RemoveItem(args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a product already in the cart; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid quantity", err)
			}
			return mutateCart(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, ok := app.Cart.Items().Find(args[0]); !ok {
					return NewExitError(ExitFailure, fmt.Sprintf("%s is not in the cart", args[0]))
				}
				app.Cart.Dispatch(domain.UpdateQuantity(args[0], qty))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateCart(cmd, rootOpts, func(ctx context.Context, app *App) error {
				app.Cart.Dispatch(domain.ClearCart())
				return nil
			})
		},
	})

	return cmd
}

// mutateCart applies fn to a loaded cart, waits for it to be saved and shows
// the result.
func mutateCart(cmd *cobra.Command, rootOpts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
		if err := app.RequireCart(); err != nil {
			return err
		}
		if err := fn(ctx, app); err != nil {
			return err
		}
		if !app.Session.IsAuthenticated() {
			app.Out.Warn("not signed in: this cart is not saved")
		}
		app.SettleAndReport(ctx)
		return showCart(ctx, app)
	})
}

func showCart(ctx context.Context, app *App) error {
	if err := app.Catalog.Load(ctx); err != nil {
		app.Out.Warn("could not load the catalog: %v", err)
	}
	sum := app.Checkout.Summary()
	return app.Out.Success(sum, func(w io.Writer) {
		printCart(w, sum)
	})
}

func printCart(w io.Writer, sum service.CartSummary) {
	if sum.ItemCount == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range sum.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			l.ProductID, l.Product.Name, l.Quantity, formatMoney(l.Product.Price), formatMoney(l.Subtotal))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nItems: %d\nTotal: %s\n", sum.ItemCount, formatMoney(sum.Total))
}
