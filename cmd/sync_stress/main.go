package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/cli"
	"github.com/rl1809/bakery-storefront/internal/config"
	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
	"github.com/rl1809/bakery-storefront/internal/logger"
)

type options struct {
	configPath string
	email      string
	password   string
	workers    int
	perWorker  int
	products   []string
	reset      bool
}

// pushCounter counts gateway writes made by the controller.
type pushCounter struct {
	pushes atomic.Int32
	failed atomic.Int32
}

func (c *pushCounter) ObserveSync(ev service.SyncEvent) {
	if ev.Kind != service.SyncKindPush {
		return
	}
	c.pushes.Add(1)
	if ev.Err != nil {
		c.failed.Add(1)
	}
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sync_stress",
		Short: "Hammer the cart with concurrent changes and check the saved cart matches",
		Long: `Sign in, fire concurrent ADD_ITEM changes at the local cart, wait for
the sync queue to drain, then read the saved cart back and compare it with
the local one.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file")
	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password")
	cmd.Flags().IntVar(&opts.workers, "workers", 10, "concurrent writers")
	cmd.Flags().IntVar(&opts.perWorker, "per-worker", 20, "changes per writer")
	cmd.Flags().StringSliceVar(&opts.products, "products", nil, "product ids to add (default: the first three in the catalog)")
	cmd.Flags().BoolVar(&opts.reset, "reset", true, "empty the saved cart first")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	// keep the stored CLI session untouched
	cfg.Session.Store = config.SessionStoreMemory

	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}
	defer log.Sync()

	backend, err := cli.NewBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	app := cli.NewApp(cfg, backend, log)
	counter := &pushCounter{}
	app.Sync.AddObserver(counter)
	app.Sync.Start(ctx)
	defer app.Sync.Close()

	user, err := app.Session.Login(ctx, service.Credentials{Email: opts.email, Password: opts.password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := app.Settle(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	log.Info("signed in", zap.String("user_id", user.ID), zap.Int("items", app.Cart.ItemCount()))

	products := opts.products
	if len(products) == 0 {
		if err := app.Catalog.Load(ctx); err != nil {
			return err
		}
		for _, p := range app.Catalog.Products() {
			products = append(products, p.ID)
			if len(products) == 3 {
				break
			}
		}
	}
	if len(products) == 0 {
		return fmt.Errorf("no products to add")
	}

	if opts.reset {
		app.Cart.Dispatch(domain.ClearCart())
		if err := app.Settle(ctx); err != nil {
			return fmt.Errorf("reset cart: %w", err)
		}
	}
	before := app.Cart.ItemCount()
	counter.pushes.Store(0)
	counter.failed.Store(0)

	// Spawn concurrent writers
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < opts.perWorker; j++ {
				app.Cart.Dispatch(domain.AddItem(products[(worker+j)%len(products)]))
			}
		}(i)
	}
	wg.Wait()
	dispatchTime := time.Since(start)

	syncErr := app.Settle(ctx)
	elapsed := time.Since(start)

	remote, err := backend.Gateway.FetchCart(ctx, user)
	if err != nil {
		return fmt.Errorf("read back cart: %w", err)
	}
	saved := domain.CartFromRemote(remote)
	local := app.Cart.Items()
	changes := opts.workers * opts.perWorker

	fmt.Println("========== CART SYNC STRESS RESULTS ==========")
	fmt.Printf("Writers:          %d x %d\n", opts.workers, opts.perWorker)
	fmt.Printf("Changes:          %d\n", changes)
	fmt.Printf("Pushes:           %d (%d failed)\n", counter.pushes.Load(), counter.failed.Load())
	fmt.Printf("Dispatch time:    %v\n", dispatchTime)
	fmt.Printf("Total time:       %v\n", elapsed)
	fmt.Printf("Local items:      %d\n", local.ItemCount())
	fmt.Printf("Saved items:      %d\n", saved.ItemCount())
	fmt.Println("===============================================")

	failed := false
	if local.ItemCount() != before+changes {
		fmt.Printf("FAIL: expected %d local items, got %d\n", before+changes, local.ItemCount())
		failed = true
	}
	if syncErr != nil {
		fmt.Printf("FAIL: last sync failed: %v\n", syncErr)
		failed = true
	}
	if !sameCart(local, saved) {
		fmt.Printf("FAIL: saved cart differs from local cart\n  local: %v\n  saved: %v\n", local, saved)
		failed = true
	}
	if failed {
		return fmt.Errorf("stress run failed")
	}
	fmt.Println("PASS: saved cart matches the local cart")
	return nil
}

func sameCart(a, b domain.Cart) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
