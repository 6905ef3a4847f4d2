// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultBootstrapPrefix は初期構築専用マイグレーションのファイル名プレフィックス。
const DefaultBootstrapPrefix = "000_"

// Config はアプリケーション設定を表す。
type Config struct {
	Port             string `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"./migrations"`
	BootstrapPrefix  string `env:"BOOTSTRAP_PREFIX" envDefault:"000_"`
	IncludeBootstrap bool   `env:"INCLUDE_BOOTSTRAP" envDefault:"false"`
	TrackHistory     bool   `env:"TRACK_HISTORY" envDefault:"false"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"json"`

	GoogleCloudProject string  `env:"GOOGLE_CLOUD_PROJECT"`
	OtelEnabled        bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint       string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OtelInsecure       bool    `env:"OTEL_INSECURE" envDefault:"false"`
	OtelServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"schema-migrator"`
	OtelSamplingRate   float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
}

// Load は.envファイルと環境変数から設定を読み込む。
// 既存の環境変数は.envで上書きしない。
func Load() (*Config, error) {
	// .envが存在しない場合は無視
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// ExcludePrefix は実行時に除外するファイル名プレフィックスを返す。
// INCLUDE_BOOTSTRAP=true の場合は空文字（除外なし）。
func (c *Config) ExcludePrefix() string {
	if c.IncludeBootstrap {
		return ""
	}
	return c.BootstrapPrefix
}
