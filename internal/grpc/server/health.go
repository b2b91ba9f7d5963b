// Package server реализует gRPC health-сервер API спортзала.
//
// HealthServer отвечает на grpc.health.v1.Health/Check статусом SERVING,
// пока база данных отвечает на ping, и NOT_SERVING в противном случае.
package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
)

// ServiceName имя сервиса в health-протоколе.
const ServiceName = "gym.api"

// Pinger зависимость, от которой зависит готовность сервиса.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer обновляет статус health-сервера по результатам ping базы.
type HealthServer struct {
	srv      *health.Server
	db       Pinger
	interval time.Duration
	log      *slog.Logger
}

// NewHealthServer создает HealthServer. До первой проверки статус NOT_SERVING.
func NewHealthServer(db Pinger, interval time.Duration, log *slog.Logger) *HealthServer {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		srv:      srv,
		db:       db,
		interval: interval,
		log:      log,
	}
}

// Register регистрирует health-сервис на gRPC-сервере.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Probe проверяет базу один раз и выставляет статус.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("database ping failed", sl.Err(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
	return status
}

// Run проверяет базу каждые interval до отмены ctx, затем переводит
// все сервисы в NOT_SERVING.
func (h *HealthServer) Run(ctx context.Context) {
	h.Probe(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}
