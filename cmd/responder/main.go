package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/auth"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/middleware"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/server"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/tracing"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/responder"
)

var (
	configPath      = flag.String("config", "configs/responder.json", "配置文件路径")
	configConsulKey = flag.String("config-consul-key", "", "从 Consul KV 读取配置的 key（设置后忽略 -config）")
	consulHost      = flag.String("consul-host", "localhost", "Consul 地址（仅 -config-consul-key 用）")
	consulPort      = flag.Int("consul-port", 8500, "Consul 端口（仅 -config-consul-key 用）")
	mintUID         = flag.String("mint-token", "", "为指定 uid 生成访问 token 并退出（运维用）")
	mintDomains     = flag.String("mint-domains", "mobile", "生成 token 时的调用方域，逗号分隔")
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

	// 运维入口：签发调用 token 后直接退出
	if *mintUID != "" {
		token, expiresAt, err := auth.GenerateAccessToken(cfg.Auth, *mintUID, strings.Split(*mintDomains, ","), 24*time.Hour)
		if err != nil {
			panic(fmt.Sprintf("failed to mint token: %v", err))
		}
		fmt.Printf("%s\nexpires: %s\n", token, expiresAt.Format(time.RFC3339))
		return
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

	// 初始化 Redis（队列 / 信箱 / 实体投影共用一个实例）
	c := cache.NewRedis(cfg.Redis)
	defer c.Close()

	q := queue.New(c, cfg.Queue.Key)
	mb := mailbox.New(
		c,
		time.Duration(cfg.Queue.MailboxTTLSec)*time.Second,
		time.Duration(cfg.Queue.WaitTimeoutSec)*time.Second,
	)

	h := responder.New(q, mb, c, cfg.Auth.Enabled, log)
	handler := server.Chain(
		h.Router(),
		server.RateLimit(middleware.NewTokenBucket(200, 100)),
		server.JWTAuth(cfg.Auth, log, "/healthz"),
	)

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, handler); err != nil {
		log.Fatalf("responder exited with error: %v", err)
	}
}
