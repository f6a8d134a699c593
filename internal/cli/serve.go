package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/adapter/handler"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	HTTPAddr string
	GRPCAddr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signed-in session over HTTP and gRPC health",
		Long: `Keep the session open and serve it locally.

The HTTP API exposes the cart, catalog, checkout and order history of the
signed-in account along with /health and /metrics. The gRPC server
implements the standard health protocol; the storefront.CartSync service
reports NOT_SERVING while the last cart sync failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return serve(ctx, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&opts.GRPCAddr, "grpc-addr", "", "gRPC listen address (default from config)")

	return cmd
}

func serve(ctx context.Context, app *App, opts *ServeOptions) error {
	log := app.Logger.Named("serve")
	httpAddr, grpcAddr := opts.HTTPAddr, opts.GRPCAddr
	if httpAddr == "" {
		httpAddr = app.Config.Serve.HTTPAddr
	}
	if grpcAddr == "" {
		grpcAddr = app.Config.Serve.GRPCAddr
	}

	reporter := handler.NewSyncHealthReporter(app.Sync)
	app.Sync.AddObserver(reporter)
	app.Session.OnIdentityChange(reporter.IdentityChanged)

	// Initialize gRPC server
	grpcServer := handler.NewGRPCServer(reporter)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen "+grpcAddr, err)
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	if app.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpHandler := handler.NewHTTPHandler(handler.Services{
		Session:  app.Session,
		Cart:     app.Cart,
		Sync:     app.Sync,
		Catalog:  app.Catalog,
		Checkout: app.Checkout,
		Orders:   app.Orders,
		Metrics:  app.Metrics.Handler(),
	}, app.Logger)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	app.Out.VerboseLog("serving HTTP on %s and gRPC on %s", httpAddr, grpcAddr)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	reporter.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")
	return nil
}
