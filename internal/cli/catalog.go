package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// ProductsOptions holds flags for the products command.
type ProductsOptions struct {
	*RootOptions
	Category string
	Search   string
	Refresh  bool
}

func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Long: `List the catalog, optionally narrowed to a category and a search term.

The search matches product names and descriptions, ignoring case.

Example:
  storefront products --category Pastries --search almond`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				load := app.Catalog.Load
				if opts.Refresh {
					load = app.Catalog.Refresh
				}
				if err := load(ctx); err != nil {
					return err
				}
				products := app.Catalog.Filter(opts.Category, opts.Search)
				return app.Out.Success(products, func(w io.Writer) {
					if len(products) == 0 {
						fmt.Fprintln(w, "No products found.")
						return
					}
					printProducts(w, products)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "All", "category to show")
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "search term")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the product cache")

	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Catalog.Load(ctx); err != nil {
					return err
				}
				cats := app.Catalog.Categories()
				return app.Out.Success(cats, func(w io.Writer) {
					for _, c := range cats {
						fmt.Fprintln(w, c)
					}
				})
			})
		},
	})

	return cmd
}

func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				p, err := app.Catalog.Product(ctx, args[0])
				if err != nil {
					return err
				}
				return app.Out.Success(p, func(w io.Writer) {
					fmt.Fprintf(w, "%s  %s\n", p.Name, formatMoney(p.Price))
					fmt.Fprintf(w, "Category: %s\n", p.Category)
					if p.Description != "" {
						fmt.Fprintf(w, "\n%s\n", p.Description)
					}
				})
			})
		},
	}
}

func printProducts(w io.Writer, products []domain.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, formatMoney(p.Price))
	}
	tw.Flush()
}
