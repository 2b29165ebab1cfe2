package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	pkgconfig "curatorhub/pkg/config"
)

type Config struct {
	DB     pkgconfig.DBConfig     `yaml:"db"`
	Redis  pkgconfig.RedisConfig  `yaml:"redis"`
	MQ     pkgconfig.MQConfig     `yaml:"mq"`
	JWT    pkgconfig.JWTConfig    `yaml:"jwt"`
	Server pkgconfig.ServerConfig `yaml:"server"`
	AI     pkgconfig.AIConfig     `yaml:"ai"`
	Cache  pkgconfig.CacheConfig  `yaml:"cache"`
	Runner pkgconfig.RunnerConfig `yaml:"runner"`
	Otel   pkgconfig.OtelConfig   `yaml:"otel"`
}

// Load reads configuration. When dir/base.yaml exists the layered loader is
// used with CONFIG_ENV; otherwise path is decoded as a single YAML file.
// Environment variables are applied last.
func Load(path, dir string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(filepath.Join(dir, "base.yaml")); err == nil {
		merged, err := pkgconfig.LoadConfig(pkgconfig.GetConfigEnv(), dir)
		if err != nil {
			return nil, err
		}
		if err := pkgconfig.Decode(merged, &cfg); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	// 环境变量覆盖（生产环境使用）
	cfg.OverrideFromEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) OverrideFromEnv() {
	pkgconfig.OverrideDBFromEnv(&c.DB)
	pkgconfig.OverrideRedisFromEnv(&c.Redis)
	pkgconfig.OverrideMQFromEnv(&c.MQ)
	pkgconfig.OverrideJWTFromEnv(&c.JWT)
	pkgconfig.OverrideServerFromEnv(&c.Server)
	pkgconfig.OverrideAIFromEnv(&c.AI)
	pkgconfig.OverrideOtelFromEnv(&c.Otel)
}

func (c *Config) applyDefaults() {
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.MaxConns == 0 {
		c.DB.MaxConns = 10
	}
	if c.DB.MinConns == 0 {
		c.DB.MinConns = 2
	}
	if c.DB.SlowQueryMs == 0 {
		c.DB.SlowQueryMs = 200
	}
	if c.MQ.Exchange == "" {
		c.MQ.Exchange = "events"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.JWT.TTLHours == 0 {
		c.JWT.TTLHours = 24
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.TextModel == "" {
		c.AI.TextModel = "gpt-4o-mini"
	}
	if c.AI.ImageModel == "" {
		c.AI.ImageModel = "dall-e-3"
	}
	if c.AI.TimeoutSec == 0 {
		c.AI.TimeoutSec = 30
	}
	if c.AI.MaxFailures == 0 {
		c.AI.MaxFailures = 5
	}
	if c.AI.ResetSec == 0 {
		c.AI.ResetSec = 30
	}
	if c.Cache.ScheduleTTLSec == 0 {
		c.Cache.ScheduleTTLSec = 600
	}
	if c.Runner.ScheduleIntervalSec == 0 {
		c.Runner.ScheduleIntervalSec = 900
	}
	if c.Runner.OverdueIntervalSec == 0 {
		c.Runner.OverdueIntervalSec = 3600
	}
	if c.Runner.OutboxIntervalMs == 0 {
		c.Runner.OutboxIntervalMs = 500
	}
	if c.Runner.OutboxBatchSize == 0 {
		c.Runner.OutboxBatchSize = 100
	}
	if c.Runner.OutboxMaxRetries == 0 {
		c.Runner.OutboxMaxRetries = 5
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "curatorhub"
	}
}
