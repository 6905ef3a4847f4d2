package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"

	"schema-migrator/config"
	"schema-migrator/internal/infra"
	"schema-migrator/internal/repository"
	"schema-migrator/internal/usecase"
)

// runFlags はコマンドラインで環境変数を上書きする値。
type runFlags struct {
	dir              string
	databaseURL      string
	includeBootstrap bool
	trackHistory     bool
}

// app はコマンド1回分の依存関係をまとめる。
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	tp      *sdktrace.TracerProvider
	service *usecase.MigrationService
	opts    usecase.RunOptions
}

// applyFlags はフラグが指定されていれば設定を上書きする。
func (f *runFlags) applyFlags(cfg *config.Config) {
	if f.dir != "" {
		cfg.MigrationsDir = f.dir
	}
	if f.databaseURL != "" {
		cfg.DatabaseURL = f.databaseURL
	}
	if f.includeBootstrap {
		cfg.IncludeBootstrap = true
	}
	if f.trackHistory {
		cfg.TrackHistory = true
	}
}

// newApp は設定読み込み、ロガー、トレーサー、DB接続を初期化する。
// 呼び出し側は必ずcloseを呼ぶこと。
func newApp(ctx context.Context, flags *runFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags.applyFlags(cfg)

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer: %w", err)
	}
	infra.SetupLogger(os.Stderr, cfg, infra.ParseLogLevel(cfg.LogLevel))

	rt := &app{cfg: cfg, tp: tp}

	if cfg.DatabaseURL == "" {
		rt.close(ctx)
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	absPath, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("failed to resolve migrations directory: %w", err)
	}

	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.db = db

	var repo usecase.MigrationRepository
	if cfg.TrackHistory {
		repo = repository.NewMigrationRepository(db)
	}

	rt.service = usecase.NewMigrationService(repository.NewGormExecutor(db), repo, repository.IsAlreadyExists, absPath)
	rt.opts = usecase.RunOptions{ExcludePrefix: cfg.ExcludePrefix()}
	return rt, nil
}

// close はDB接続とトレーサーを解放する。
func (rt *app) close(ctx context.Context) {
	if rt.db != nil {
		if err := infra.CloseDB(rt.db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	if rt.tp != nil {
		if err := rt.tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}
}
