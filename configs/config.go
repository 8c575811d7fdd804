package configs

import (
	"fmt"
	"time"
)

// Config 主配置结构体，定义了应用程序的所有配置项。
// 包含服务器、认证、日志、Redis、缓存、限流、LLM和回调等模块的配置信息。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LLM       LLMConfig       `yaml:"llm"`
	Callbacks CallbacksConfig `yaml:"callbacks"`
}

// ServerConfig 定义服务器相关的配置参数。
// 包含监听地址、端口、超时设置和连接限制等。
type ServerConfig struct {
	Host                    string        `yaml:"host"`
	Port                    int           `yaml:"port"`
	ReadTimeout             time.Duration `yaml:"read_timeout"`
	WriteTimeout            time.Duration `yaml:"write_timeout"`
	IdleTimeout             time.Duration `yaml:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
	MaxConnections          int           `yaml:"max_connections"`
}

// AuthConfig 定义JWT认证配置。
// Enabled为false时跳过认证（仅用于本地开发与测试）。
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig 定义日志系统的配置参数。
// 包含日志级别、输出目标（stdout/file）和格式（text/json）等。
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Output   string `yaml:"output"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// RedisConfig 定义Redis连接配置。
// Addr为空时缓存与审计存储退化为进程内实现。
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig 定义分类结果缓存的核心配置参数。
// TTL按置信度档位选取：高档24h、中档1h、低档不缓存。
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	KeyPrefix     string        `yaml:"key_prefix"`
	HighTTL       time.Duration `yaml:"high_ttl"`
	MediumTTL     time.Duration `yaml:"medium_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// RateLimitConfig 定义LLM调用路径前的令牌桶限流配置。
// 缓存命中与规则回退路径不经过限流。
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Burst             int           `yaml:"burst"`
	IdleWindow        time.Duration `yaml:"idle_window"`
	SweepSchedule     string        `yaml:"sweep_schedule"`
}

// LLMConfig 定义LLM分类适配器的配置参数。
// Timeout是整条流水线中唯一的硬超时。
type LLMConfig struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	ConfidenceFloor float64       `yaml:"confidence_floor"`
	ModelVersion    string        `yaml:"model_version"`
}

// CallbacksConfig 定义流水线回调系统配置。
type CallbacksConfig struct {
	Logging LoggingCallbackConfig `yaml:"logging"`
	Metrics MetricsCallbackConfig `yaml:"metrics"`
	Tracing TracingCallbackConfig `yaml:"tracing"`
}

// LoggingCallbackConfig 定义日志回调的配置。
type LoggingCallbackConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsCallbackConfig 定义指标回调的配置。
type MetricsCallbackConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingCallbackConfig 定义链路追踪回调的配置。
type TracingCallbackConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Validate 检查 Config 配置结构体的有效性。
// 依次调用各个子配置项的 Validate 方法，如果发现无效配置，返回相应的错误。
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config validation failed: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config validation failed: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit config validation failed: %w", err)
	}

	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config validation failed: %w", err)
	}

	return nil
}

// Validate 检查 ServerConfig 配置的有效性。
// 确保端口号在有效范围内，且超时设置和最大连接数为正数。
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if s.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive")
	}

	return nil
}

// Validate 检查 AuthConfig 配置的有效性。
// 启用认证时必须提供JWT密钥。
func (a *AuthConfig) Validate() error {
	if a.Enabled && a.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required when auth is enabled")
	}
	return nil
}

// Validate 检查 LoggingConfig 配置的有效性。
// 确保日志级别、输出目标和格式有效，如果输出到文件，确保文件路径已指定。
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	validOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}

	if !validOutputs[l.Output] {
		return fmt.Errorf("invalid log output: %s", l.Output)
	}

	if l.Output == "file" && l.FilePath == "" {
		return fmt.Errorf("file path is required when output is file")
	}

	// 验证日志格式，空值默认为 text
	validFormats := map[string]bool{
		"text": true, "json": true, "": true,
	}

	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	return nil
}

// Validate 检查 CacheConfig 配置的有效性。
// 确保各档位TTL为正数且高档不短于中档。
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.HighTTL <= 0 {
		return fmt.Errorf("high_ttl must be positive")
	}

	if c.MediumTTL <= 0 {
		return fmt.Errorf("medium_ttl must be positive")
	}

	if c.HighTTL < c.MediumTTL {
		return fmt.Errorf("high_ttl must not be shorter than medium_ttl")
	}

	return nil
}

// Validate 检查 RateLimitConfig 配置的有效性。
// 确保速率与突发额度为正数。
func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}

	if r.Burst <= 0 {
		return fmt.Errorf("burst must be positive")
	}

	if r.IdleWindow <= 0 {
		return fmt.Errorf("idle_window must be positive")
	}

	return nil
}

// Validate 检查 LLMConfig 配置的有效性。
// 确保模型名称已指定、超时为正数且置信度下限在0-1之间。
func (l *LLMConfig) Validate() error {
	if l.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if l.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}

	if l.ConfidenceFloor < 0 || l.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be between 0 and 1")
	}

	if l.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	return nil
}

// GetAddr 获取服务器的完整监听地址。
// 返回格式为 "Host:Port" 的字符串。
func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
