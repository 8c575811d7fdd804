package configs

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load 加载并验证应用程序配置。
// 它按照以下优先级顺序加载配置：
// 1. 默认配置
// 2. 配置文件（config.yaml，支持多个搜索路径）
// 3. 环境变量（覆盖配置文件中的值）
//
// 参数 ctx: 上下文对象。
// 返回加载并验证后的 Config 指针，如果出错则返回 error。
func Load(ctx context.Context) (*Config, error) {
	// 加载 .env 文件（如果存在）
	// 忽略错误，因为 .env 文件是可选的
	_ = godotenv.Load()

	config := DefaultConfig()

	// 尝试加载配置文件
	configPaths := []string{
		"configs/config.yaml",
		"config.yaml",
		"/etc/inquiry-classifier/config.yaml",
	}

	for _, path := range configPaths {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, err
			}
			break
		}
	}

	// 从环境变量覆盖配置
	loadFromEnv(config)

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig 创建并返回一个包含默认值的 Config 对象。
// 默认值覆盖了服务器、认证、Redis、缓存、限流和LLM的常用配置。
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                    "0.0.0.0",
			Port:                    8080,
			ReadTimeout:             30 * time.Second,
			WriteTimeout:            30 * time.Second,
			IdleTimeout:             60 * time.Second,
			GracefulShutdownTimeout: 30 * time.Second,
			MaxConnections:          1000,
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			Format: "text",
		},
		Redis: RedisConfig{
			Timeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:       true,
			KeyPrefix:     "classification:",
			HighTTL:       24 * time.Hour,
			MediumTTL:     time.Hour,
			SweepSchedule: "@every 10m",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 100,
			Burst:             10,
			IdleWindow:        10 * time.Minute,
			SweepSchedule:     "@every 5m",
		},
		LLM: LLMConfig{
			Model:           "claude-sonnet-4-5-20250929",
			MaxTokens:       500,
			Timeout:         8 * time.Second,
			ConfidenceFloor: 0.7,
			ModelVersion:    "v1.2.0",
		},
		Callbacks: CallbacksConfig{
			Logging: LoggingCallbackConfig{Enabled: true},
			Metrics: MetricsCallbackConfig{Enabled: true},
			Tracing: TracingCallbackConfig{Enabled: false},
		},
	}
}

// loadFromEnv 从环境变量中读取配置并覆盖 Config 中的值。
// 支持 INQUIRY_API_PORT, REDIS_ADDR, ANTHROPIC_API_KEY, JWT_SECRET 等环境变量。
func loadFromEnv(config *Config) {
	// Server 配置
	if port := os.Getenv("INQUIRY_API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			config.Server.Port = p
		}
	}

	// Redis 配置
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}

	// Anthropic 配置
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		config.LLM.Model = model
	}

	// 认证配置
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
}
