package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Providers  []ProviderConfig `mapstructure:"providers"`
	Generation GenerationConfig `mapstructure:"generation"`
	Presets    PresetConfig     `mapstructure:"presets"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Session    SessionConfig    `mapstructure:"session"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// ProviderConfig 描述一个兼容的大模型服务，按列表顺序参与轮询故障转移
type ProviderConfig struct {
	Name         string        `mapstructure:"name"`
	Kind         string        `mapstructure:"kind"` // openai | qwen | ark
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type GenerationConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
	CacheCleanupInterval time.Duration `mapstructure:"cache_cleanup_interval"`
}

type PresetConfig struct {
	Topics []string `mapstructure:"topics"`
	Games  []string `mapstructure:"games"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // memory | disk | redis
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // none | stdout | otlp
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

type AuthConfig struct {
	// 上游网关完成登录校验后写入的用户标识请求头
	UserHeader string `mapstructure:"user_header"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("generation.cache_ttl", 6*time.Hour)
	v.SetDefault("generation.cache_cleanup_interval", 30*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:4321"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-User-ID"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 1000)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "rocket:session:")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "rocket-backend")

	v.SetDefault("auth.user_header", "X-User-ID")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ROCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, err
	}

	// 配置文件优先，未设置 api_key 时回退到 <NAME>_API_KEY 环境变量（如 GROQ_API_KEY）
	for i := range loaded.Providers {
		p := &loaded.Providers[i]
		if p.APIKey == "" && p.Name != "" {
			if apiKey := os.Getenv(strings.ToUpper(p.Name) + "_API_KEY"); apiKey != "" {
				p.APIKey = apiKey
			}
		}
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "disk", "redis":
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
	}

	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}

	// ttl 为 0 时每次清理都会关闭全部会话并删除记录
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be positive")
	}

	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		switch p.Kind {
		case "openai", "qwen", "ark":
		default:
			return fmt.Errorf("provider %s: unsupported kind %q", p.Name, p.Kind)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %s: model is required", p.Name)
		}
	}

	return nil
}

func Get() *Config {
	return cfg
}
