package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// SyncHealthService is the health service name that reflects cart sync.
const SyncHealthService = "storefront.CartSync"

type syncErrorSource interface {
	LastError() error
}

// SyncHealthReporter publishes cart sync health over the standard gRPC health
// protocol: SERVING while the last sync succeeded, NOT_SERVING after a
// failure.
type SyncHealthReporter struct {
	server *health.Server
	source syncErrorSource
}

func NewSyncHealthReporter(source syncErrorSource) *SyncHealthReporter {
	r := &SyncHealthReporter{server: health.NewServer(), source: source}
	r.Refresh()
	return r
}

// ObserveSync implements service.SyncObserver.
func (r *SyncHealthReporter) ObserveSync(ev service.SyncEvent) {
	if ev.Stale {
		return
	}
	r.Refresh()
}

// IdentityChanged re-reads the status after a sign-in or sign-out, which can
// clear the error without a gateway call.
func (r *SyncHealthReporter) IdentityChanged(*domain.User) {
	r.Refresh()
}

func (r *SyncHealthReporter) Refresh() {
	st := healthpb.HealthCheckResponse_SERVING
	if r.source.LastError() != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.server.SetServingStatus(SyncHealthService, st)
}

func (r *SyncHealthReporter) HealthServer() *health.Server {
	return r.server
}

// Shutdown marks every service NOT_SERVING so clients drain before the
// server stops.
func (r *SyncHealthReporter) Shutdown() {
	r.server.Shutdown()
}

func NewGRPCServer(reporter *SyncHealthReporter, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, reporter.HealthServer())
	reflection.Register(s)
	return s
}
