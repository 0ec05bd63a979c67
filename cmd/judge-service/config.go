package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"verdict/internal/common/cache"
	"verdict/internal/common/mq"
	"verdict/internal/common/storage"
	"verdict/internal/judge/lang"
	"verdict/internal/judge/sandbox/engine"
	"verdict/internal/judge/sandbox/security"
	"verdict/internal/judge/sandbox/spec"
	"verdict/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultProblemCacheTTL = 10 * time.Minute
	defaultResultTTL       = 24 * time.Hour
	defaultVerdictTopic    = "judge.verdicts"
)

// Catalog sources.
const (
	catalogSourceFS    = "fs"
	catalogSourceMinIO = "minio"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SandboxConfig holds sandbox engine settings.
type SandboxConfig struct {
	WorkRoot             string `yaml:"workRoot"`
	CgroupRoot           string `yaml:"cgroupRoot"`
	SeccompDir           string `yaml:"seccompDir"`
	HelperPath           string `yaml:"helperPath"`
	StdoutStderrMaxBytes int64  `yaml:"stdoutStderrMaxBytes"`
	EnableSeccomp        bool   `yaml:"enableSeccomp"`
	EnableCgroup         bool   `yaml:"enableCgroup"`
	EnableNamespaces     bool   `yaml:"enableNamespaces"`

	RootFS         string `yaml:"rootFS"`
	SeccompProfile string `yaml:"seccompProfile"`
	DisableNetwork bool   `yaml:"disableNetwork"`
}

// CatalogConfig selects where problem definitions come from.
type CatalogConfig struct {
	Source   string        `yaml:"source"` // fs | minio
	Dir      string        `yaml:"dir"`
	Bucket   string        `yaml:"bucket"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds verdict event publishing settings.
type KafkaConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Topic          string `yaml:"topic"`
	mq.KafkaConfig `yaml:",inline"`
}

// JudgeConfig holds judging defaults.
type JudgeConfig struct {
	DefaultLimits spec.ResourceLimit `yaml:"defaultLimits"`
	ResultTTL     time.Duration      `yaml:"resultTTL"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logger    logger.Config       `yaml:"logger"`
	Redis     cache.RedisConfig   `yaml:"redis"`
	MinIO     storage.MinIOConfig `yaml:"minio"`
	Kafka     KafkaConfig         `yaml:"kafka"`
	Catalog   CatalogConfig       `yaml:"catalog"`
	Sandbox   SandboxConfig       `yaml:"sandbox"`
	Judge     JudgeConfig         `yaml:"judge"`
	Languages []lang.Spec         `yaml:"languages"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	applyRedisDefaults(&cfg.Redis)

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Sandbox.WorkRoot == "" {
		return nil, fmt.Errorf("sandbox workRoot is required")
	}
	if len(cfg.Languages) == 0 {
		return nil, fmt.Errorf("at least one language profile is required")
	}

	switch cfg.Catalog.Source {
	case "", catalogSourceFS:
		cfg.Catalog.Source = catalogSourceFS
		if cfg.Catalog.Dir == "" {
			return nil, fmt.Errorf("catalog dir is required for the fs source")
		}
	case catalogSourceMinIO:
		if cfg.Catalog.Bucket == "" {
			cfg.Catalog.Bucket = cfg.MinIO.Bucket
		}
		if cfg.Catalog.Bucket == "" {
			return nil, fmt.Errorf("catalog bucket is required for the minio source")
		}
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = defaultProblemCacheTTL
	}

	if cfg.Judge.ResultTTL == 0 {
		cfg.Judge.ResultTTL = defaultResultTTL
	}
	if cfg.Kafka.Enabled && cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = defaultVerdictTopic
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
}

func (s SandboxConfig) toEngineConfig() engine.Config {
	return engine.Config{
		WorkRoot:             s.WorkRoot,
		CgroupRoot:           s.CgroupRoot,
		SeccompDir:           s.SeccompDir,
		HelperPath:           s.HelperPath,
		StdoutStderrMaxBytes: s.StdoutStderrMaxBytes,
		EnableSeccomp:        s.EnableSeccomp,
		EnableCgroup:         s.EnableCgroup,
		EnableNamespaces:     s.EnableNamespaces,
		Isolation: security.IsolationProfile{
			RootFS:         s.RootFS,
			SeccompProfile: s.SeccompProfile,
			DisableNetwork: s.DisableNetwork,
		},
	}
}
