package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/db"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/server"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/tracing"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/provider"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehicle"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
	"github.com/SmartLinkDrive/vehicle-profile/internal/worker"
)

var (
	configPath      = flag.String("config", "configs/worker.json", "配置文件路径")
	configConsulKey = flag.String("config-consul-key", "", "从 Consul KV 读取配置的 key（设置后忽略 -config）")
	consulHost      = flag.String("consul-host", "localhost", "Consul 地址（仅 -config-consul-key 用）")
	consulPort      = flag.Int("consul-port", 8500, "Consul 端口（仅 -config-consul-key 用）")
)

func loadConfig() (*config.Config, error) {
	if *configConsulKey != "" {
		return config.LoadConfigFromConsulKV(*consulHost, *consulPort, *configConsulKey)
	}
	return config.LoadConfig(*configPath)
}

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&vehicle.Vehicle{}, &vehicle.Person{}, &vehiclemodel.Model{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 初始化 Redis
	c := cache.NewRedis(cfg.Redis)
	defer c.Close()

	q := queue.New(c, cfg.Queue.Key)
	mb := mailbox.New(
		c,
		time.Duration(cfg.Queue.MailboxTTLSec)*time.Second,
		time.Duration(cfg.Queue.WaitTimeoutSec)*time.Second,
	)

	svc := vehicle.NewService(gormDB, c, log)
	pc := provider.NewClient(cfg.Providers, log)
	pt := provider.NewProvinceTable(cfg.Provinces)

	// worker 没有入站流量，暴露 gRPC 健康检查端口供 Consul 探测
	cleanup, err := server.RunHealthServer(cfg, log)
	if err != nil {
		log.Fatalf("failed to start health server: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Infof("received signal %v, shutting down...", sig)
		cancel()
	}()

	w := worker.New(q, mb, svc, pc, pt, c, log)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("worker exited with error: %v", err)
	}
}
