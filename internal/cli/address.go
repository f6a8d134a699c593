package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// AddressOptions holds flags for address add.
type AddressOptions struct {
	*RootOptions
	Street  string
	City    string
	State   string
	Zip     string
	Default bool
}

func NewAddressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "address",
		Aliases: []string{"addresses"},
		Short:   "Manage delivery addresses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, listAddresses)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, listAddresses)
		},
	})

	add := &cobra.Command{
		Use:   "add",
		Short: "Save a new address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAddresses(cmd, rootOpts, func(current []domain.Address) ([]domain.Address, error) {
				a := service.NewDraftAddress()
				a.Street, a.City, a.State, a.Zip = opts.Street, opts.City, opts.State, opts.Zip
				a.Default = opts.Default || len(current) == 0
				if a.Default {
					current = withoutDefault(current)
					// the first default wins, so the new one goes first
					return append([]domain.Address{a}, current...), nil
				}
				return append(current, a), nil
			})
		},
	}
	add.Flags().StringVar(&opts.Street, "street", "", "street address")
	add.Flags().StringVar(&opts.City, "city", "", "city")
	add.Flags().StringVar(&opts.State, "state", "", "state")
	add.Flags().StringVar(&opts.Zip, "zip", "", "ZIP code")
	add.Flags().BoolVar(&opts.Default, "default", false, "make this the default address")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <address-id>",
		Short: "Delete a saved address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAddresses(cmd, rootOpts, func(current []domain.Address) ([]domain.Address, error) {
				out := make([]domain.Address, 0, len(current))
				for _, a := range current {
					if a.ID != args[0] {
						out = append(out, a)
					}
				}
				if len(out) == len(current) {
					return nil, NewExitError(ExitFailure, fmt.Sprintf("no address with id %s", args[0]))
				}
				return out, nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "default <address-id>",
		Short: "Make an address the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAddresses(cmd, rootOpts, func(current []domain.Address) ([]domain.Address, error) {
				found := false
				out := make([]domain.Address, len(current))
				for i, a := range current {
					a.Default = a.ID == args[0]
					found = found || a.Default
					out[i] = a
				}
				if !found {
					return nil, NewExitError(ExitFailure, fmt.Sprintf("no address with id %s", args[0]))
				}
				return out, nil
			})
		},
	})

	return cmd
}

func listAddresses(ctx context.Context, app *App) error {
	user, err := app.User()
	if err != nil {
		return err
	}
	return app.Out.Success(user.Addresses, func(w io.Writer) {
		printAddresses(w, user.Addresses)
	})
}

// editAddresses replaces the address book with edit's result.
func editAddresses(cmd *cobra.Command, rootOpts *RootOptions, edit func([]domain.Address) ([]domain.Address, error)) error {
	return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
		user, err := app.User()
		if err != nil {
			return err
		}
		next, err := edit(user.Addresses)
		if err != nil {
			return err
		}
		updated, err := app.Session.UpdateAddresses(ctx, next)
		if err != nil {
			return err
		}
		return app.Out.Success(updated.Addresses, func(w io.Writer) {
			printAddresses(w, updated.Addresses)
		})
	})
}

func withoutDefault(addresses []domain.Address) []domain.Address {
	out := make([]domain.Address, len(addresses))
	for i, a := range addresses {
		a.Default = false
		out[i] = a
	}
	return out
}

func printAddresses(w io.Writer, addresses []domain.Address) {
	if len(addresses) == 0 {
		fmt.Fprintln(w, "No saved addresses.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tDEFAULT")
	for _, a := range addresses {
		def := ""
		if a.Default {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s, %s, %s %s\t%s\n", a.ID, a.Street, a.City, a.State, a.Zip, def)
	}
	tw.Flush()
}
