package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig      `json:"server"`
	Database  DatabaseConfig    `json:"database"`
	Redis     RedisConfig       `json:"redis"`
	Consul    ConsulConfig      `json:"consul"`
	Jaeger    JaegerConfig      `json:"jaeger"`
	Auth      AuthConfig        `json:"auth"`
	Queue     QueueConfig       `json:"queue"`
	Providers ProviderConfig    `json:"providers"`
	Provinces map[string]string `json:"provinces"` // 省份名称 -> 行政区划代码（启动时加载，运行期只读）
	Log       LogConfig         `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	Port     int    `json:"port"`      // HTTP端口（responder）
	GRPCPort int    `json:"grpc_port"` // gRPC健康检查端口（worker）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	MaxIdle  int    `json:"max_idle"`
	MaxOpen  int    `json:"max_open"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
	Audience  string `json:"audience"`
}

// QueueConfig 队列 / 信箱配置
type QueueConfig struct {
	Key            string `json:"key"`              // 工作队列 list key
	MailboxTTLSec  int    `json:"mailbox_ttl_sec"`  // 信箱 key 过期时间（秒）
	WaitTimeoutSec int    `json:"wait_timeout_sec"` // responder 等待回执的超时（秒）
}

// ProviderConfig 第三方车辆数据接口配置
type ProviderConfig struct {
	VinURL     string `json:"vin_url"`     // VIN -> 车型
	LicenseURL string `json:"license_url"` // 车牌 -> 车辆
	CityURL    string `json:"city_url"`    // 城市代码
	AppKey     string `json:"app_key"`
	TimeoutSec int    `json:"timeout_sec"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}

		applyDefaults(globalConfig)
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// applyDefaults 补齐配置文件里省略的段
func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Queue.Key == "" {
		cfg.Queue.Key = def.Queue.Key
	}
	if cfg.Queue.MailboxTTLSec <= 0 {
		cfg.Queue.MailboxTTLSec = def.Queue.MailboxTTLSec
	}
	if cfg.Queue.WaitTimeoutSec <= 0 {
		cfg.Queue.WaitTimeoutSec = def.Queue.WaitTimeoutSec
	}
	if cfg.Providers.TimeoutSec <= 0 {
		cfg.Providers.TimeoutSec = def.Providers.TimeoutSec
	}
	if len(cfg.Provinces) == 0 {
		cfg.Provinces = def.Provinces
	}
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "vehicle-profile",
			Host:     "0.0.0.0",
			Port:     8080,
			GRPCPort: 50051,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "vehicle_profile",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Queue: QueueConfig{
			Key:            "vehicle-profile-queue",
			MailboxTTLSec:  30,
			WaitTimeoutSec: 25,
		},
		Providers: ProviderConfig{
			TimeoutSec: 8,
		},
		Provinces: DefaultProvinces(),
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
