package server

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/discovery"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
)

// RunHealthServer 为无入站流量的进程（worker）暴露一个 gRPC 健康检查端口，
// 供 Consul 的 GRPC check 探测。Serve 在后台运行，
// 返回的 cleanup 负责注销 Consul 并停掉 server。
func RunHealthServer(cfg *config.Config, log logger.Logger) (cleanup func(), err error) {
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	var registry *discovery.ServiceRegistry
	if consulClient, cerr := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port); cerr != nil {
		log.Warnf("failed to connect to Consul: %v", cerr)
	} else {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry = discovery.NewGRPCServiceRegistry(
			consulClient,
			serviceID,
			cfg.Server.Name,
			cfg.Server.Host,
			cfg.Server.GRPCPort,
			[]string{"grpc", "worker"},
		)
		if rerr := registry.Register(); rerr != nil {
			log.Warnf("failed to register service to Consul: %v", rerr)
			registry = nil
		} else {
			log.Infof("Service registered to Consul: %s", serviceID)
		}
	}

	go func() {
		log.Infof("health server listening on %s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
		if serr := s.Serve(lis); serr != nil {
			log.Warnf("health server stopped: %v", serr)
		}
	}()

	cleanup = func() {
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		if registry != nil {
			if derr := registry.Deregister(); derr != nil {
				log.Warnf("failed to deregister service from Consul: %v", derr)
			}
		}
		s.GracefulStop()
	}
	return cleanup, nil
}
