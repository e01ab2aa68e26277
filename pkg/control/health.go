package control

import (
	"github.com/core-tools/hsu-punit/pkg/logging"
	"github.com/core-tools/hsu-punit/pkg/provisioning"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter publishes one gRPC health service per persistence unit, named after the unit.
// The empty service name reports the daemon itself.
type HealthReporter struct {
	server *health.Server
	logger logging.Logger
}

func NewHealthReporter(logger logging.Logger) *HealthReporter {
	return &HealthReporter{
		server: health.NewServer(),
		logger: logger,
	}
}

// OnEvent implements provisioning.Listener
func (h *HealthReporter) OnEvent(event provisioning.Event) {
	switch event.Type {
	case provisioning.EventProvisioned:
		h.server.SetServingStatus(event.UnitName, healthpb.HealthCheckResponse_SERVING)
		h.logger.Debugf("Health status SERVING, unit: %s", event.UnitName)
	case provisioning.EventRemoved:
		h.server.SetServingStatus(event.UnitName, healthpb.HealthCheckResponse_NOT_SERVING)
		h.logger.Debugf("Health status NOT_SERVING, unit: %s", event.UnitName)
	}
}

// Shutdown flips every service to NOT_SERVING
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthReporter) Server() healthpb.HealthServer {
	return h.server
}

func RegisterGRPCHealthServer(grpcServerRegistrar grpc.ServiceRegistrar, reporter *HealthReporter) {
	healthpb.RegisterHealthServer(grpcServerRegistrar, reporter.server)
}
