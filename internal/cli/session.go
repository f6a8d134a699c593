package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// LoginOptions holds flags for the login and signup commands.
type LoginOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and load your saved cart",
		Long: `Sign in with email and password.

The password is read from standard input when --password is not given.

Example:
  storefront login --email alice@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				password, err := readPassword(cmd, opts.Password)
				if err != nil {
					return err
				}
				user, err := app.Session.Login(ctx, service.Credentials{Email: opts.Email, Password: password})
				if err != nil {
					return err
				}
				return reportSignIn(ctx, app, user)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				password, err := readPassword(cmd, opts.Password)
				if err != nil {
					return err
				}
				user, err := app.Session.Signup(ctx, service.Registration{
					Name:     opts.Name,
					Email:    opts.Email,
					Password: password,
				})
				if err != nil {
					return err
				}
				return reportSignIn(ctx, app, user)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (min 6 characters)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; your saved cart stays on your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				signedIn := app.Session.IsAuthenticated()
				app.Session.Logout(ctx)
				return app.Out.Success(map[string]bool{"signedOut": signedIn}, func(w io.Writer) {
					if signedIn {
						fmt.Fprintln(w, "Signed out.")
					} else {
						fmt.Fprintln(w, "Not signed in.")
					}
				})
			})
		},
	}
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				user, err := app.User()
				if err != nil {
					return err
				}
				user.Token = ""
				return app.Out.Success(user, func(w io.Writer) {
					printUser(w, user)
					fmt.Fprintf(w, "Cart: %d item(s)\n", app.Cart.ItemCount())
				})
			})
		},
	}
}

func reportSignIn(ctx context.Context, app *App, user *domain.User) error {
	if err := app.Settle(ctx); err != nil {
		app.reportSync("could not load your cart", err)
	}
	public := *user
	public.Token = ""
	return app.Out.Success(&public, func(w io.Writer) {
		fmt.Fprintf(w, "Signed in as %s.\n", displayName(user))
		fmt.Fprintf(w, "Cart: %d item(s)\n", app.Cart.ItemCount())
	})
}

func printUser(w io.Writer, user *domain.User) {
	fmt.Fprintf(w, "Name:  %s\n", user.Name)
	fmt.Fprintf(w, "Email: %s\n", user.Email)
	if user.IsAdmin {
		fmt.Fprintln(w, "Role:  admin")
	}
}

func displayName(user *domain.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}

// readPassword returns flagValue or the first line of standard input.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", WrapExitError(ExitCommandError, "read password", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
