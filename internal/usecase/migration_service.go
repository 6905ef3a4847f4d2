// Package usecase はマイグレーション実行のビジネスロジックを提供する。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"schema-migrator/internal/domain"
)

const migrationFileExt = ".sql"

const (
	reasonAlreadyExists = "object already exists"
	reasonRecorded      = "recorded in history"
)

// StatementExecutor はSQLバッチを実行するデータベース接続のインターフェース。
type StatementExecutor interface {
	ExecBatch(ctx context.Context, statements string) error
}

// MigrationRepository はマイグレーション履歴を管理するリポジトリのインターフェース。
type MigrationRepository interface {
	EnsureTable(ctx context.Context) error
	TableExists(ctx context.Context) (bool, error)
	FindAllApplied(ctx context.Context) ([]*domain.MigrationFile, error)
	RecordMigration(ctx context.Context, name string) error
	IsMigrationApplied(ctx context.Context, name string) (bool, error)
}

// ErrorClassifier は無視してよいエラー（オブジェクト既存）かを判定する。
type ErrorClassifier func(err error) bool

// RunOptions は1回の実行の設定。
type RunOptions struct {
	// ExcludePrefix に一致するファイル名は実行対象から除外する。空なら除外しない。
	ExcludePrefix string
}

// MigrationService はマイグレーションの検出と適用を行う。
type MigrationService struct {
	exec          StatementExecutor
	repo          MigrationRepository
	isIgnorable   ErrorClassifier
	migrationsDir string
	tracer        trace.Tracer
}

// NewMigrationService は新しいMigrationServiceを生成する。
// repoがnilの場合は履歴テーブルを使わず、エラーコードによる判定のみで冪等性を扱う。
func NewMigrationService(exec StatementExecutor, repo MigrationRepository, isIgnorable ErrorClassifier, migrationsDir string) *MigrationService {
	if isIgnorable == nil {
		isIgnorable = func(err error) bool { return errors.Is(err, domain.ErrObjectAlreadyExists) }
	}
	return &MigrationService{
		exec:          exec,
		repo:          repo,
		isIgnorable:   isIgnorable,
		migrationsDir: migrationsDir,
		tracer:        otel.Tracer("schema-migrator/usecase"),
	}
}

// Discover はmigrationsディレクトリから.sqlファイルを検出し、実行順に並べて返す。
// 実行順はファイル名のバイト列による辞書順。
func (s *MigrationService) Discover(ctx context.Context, opts RunOptions) ([]*domain.MigrationFile, error) {
	entries, err := os.ReadDir(s.migrationsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMigrationsDirNotFound, s.migrationsDir)
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, migrationFileExt) {
			continue
		}
		if opts.ExcludePrefix != "" && strings.HasPrefix(name, opts.ExcludePrefix) {
			slog.DebugContext(ctx, "excluding bootstrap migration",
				"operation", "discover",
				"file", name,
			)
			continue
		}
		names = append(names, name)
	}

	sort.Strings(names)

	migrations := make([]*domain.MigrationFile, len(names))
	for i, name := range names {
		migrations[i] = &domain.MigrationFile{
			Name:    name,
			Version: parseVersion(name),
			Path:    filepath.Join(s.migrationsDir, name),
			Status:  domain.MigrationStatusPending,
		}
	}
	return migrations, nil
}

// parseVersion はファイル名から最初の "_" より前の部分を取り出す。
// フォーマット: {version}_{name}.sql (例: 0001_add_table.sql)
func parseVersion(filename string) string {
	base := strings.TrimSuffix(filename, migrationFileExt)
	version, _, found := strings.Cut(base, "_")
	if !found {
		return base
	}
	return version
}

// Run は検出したマイグレーションを1件ずつ順番に適用する。
// 致命的エラーが発生した時点で中断し、以降のファイルは実行しない。
// 戻り値のRunResultは中断時も含め、検出に成功していれば常に非nil。
func (s *MigrationService) Run(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "migration.run",
		trace.WithAttributes(
			attribute.String("migration.run_id", runID),
			attribute.String("migration.dir", s.migrationsDir),
		),
	)
	defer span.End()

	logger := slog.With("run_id", runID)

	migrations, err := s.Discover(ctx, opts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to scan migration files",
			"operation", "run",
			"dir", s.migrationsDir,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "discover failed")
		return nil, err
	}
	logger.InfoContext(ctx, "discovered migration files",
		"operation", "run",
		"dir", s.migrationsDir,
		"count", len(migrations),
	)

	if s.repo != nil {
		if err := s.repo.EnsureTable(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ensure history table failed")
			return nil, fmt.Errorf("failed to prepare migration history: %w", err)
		}
	}

	result := &domain.RunResult{RunID: runID}
	for _, migration := range migrations {
		res := s.applyMigration(ctx, logger, migration)
		result.Results = append(result.Results, res)

		if res.Outcome == domain.OutcomeFailed {
			result.AbortedAt = migration.Name
			logger.ErrorContext(ctx, "migration run aborted",
				"operation", "run",
				"file", migration.Name,
				"error", res.Err,
			)
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "aborted at "+migration.Name)
			return result, result.Err()
		}
	}

	logger.InfoContext(ctx, "migration run finished",
		"operation", "run",
		"applied", result.Count(domain.OutcomeApplied),
		"skipped", result.Count(domain.OutcomeSkipped),
	)
	return result, nil
}

// applyMigration は単一のマイグレーションを実行し、結果を返す。
func (s *MigrationService) applyMigration(ctx context.Context, logger *slog.Logger, migration *domain.MigrationFile) domain.FileResult {
	ctx, span := s.tracer.Start(ctx, "migration.apply",
		trace.WithAttributes(attribute.String("migration.file", migration.Name)),
	)
	defer span.End()

	failed := func(err error) domain.FileResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "failed to apply migration",
			"operation", "apply_migration",
			"file", migration.Name,
			"error", err,
		)
		return domain.FileResult{File: *migration, Outcome: domain.OutcomeFailed, Err: err}
	}
	skipped := func(reason string) domain.FileResult {
		span.SetAttributes(attribute.String("migration.skip_reason", reason))
		logger.InfoContext(ctx, "skipped migration",
			"operation", "apply_migration",
			"file", migration.Name,
			"reason", reason,
		)
		return domain.FileResult{File: *migration, Outcome: domain.OutcomeSkipped, Reason: reason}
	}

	if s.repo != nil {
		applied, err := s.repo.IsMigrationApplied(ctx, migration.Name)
		if err != nil {
			return failed(fmt.Errorf("failed to check migration status: %w", err))
		}
		if applied {
			return skipped(reasonRecorded)
		}
	}

	sqlBytes, err := os.ReadFile(migration.Path)
	if err != nil {
		return failed(fmt.Errorf("failed to read migration file: %w", err))
	}
	migration.Contents = string(sqlBytes)

	logger.InfoContext(ctx, "running migration",
		"operation", "apply_migration",
		"file", migration.Name,
	)

	outcome := domain.OutcomeApplied
	if err := s.exec.ExecBatch(ctx, migration.Contents); err != nil {
		if !s.isIgnorable(err) {
			return failed(fmt.Errorf("failed to execute migration SQL: %w", err))
		}
		outcome = domain.OutcomeSkipped
	}

	if s.repo != nil {
		if err := s.repo.RecordMigration(ctx, migration.Name); err != nil {
			return failed(fmt.Errorf("failed to record migration: %w", err))
		}
	}

	if outcome == domain.OutcomeSkipped {
		return skipped(reasonAlreadyExists)
	}

	logger.InfoContext(ctx, "applied migration",
		"operation", "apply_migration",
		"file", migration.Name,
	)
	return domain.FileResult{File: *migration, Outcome: domain.OutcomeApplied}
}

// GetMigrationStatus は検出したマイグレーションを実行順に、適用状態付きで返す。
// 履歴テーブルを使わない場合、状態はuntrackedになる。
// 参照のみでスキーマは変更しない。履歴テーブルが未作成なら全件pending。
func (s *MigrationService) GetMigrationStatus(ctx context.Context, opts RunOptions) ([]*domain.MigrationFile, error) {
	allMigrations, err := s.Discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	if s.repo == nil {
		for _, migration := range allMigrations {
			migration.Status = domain.MigrationStatusUntracked
		}
		return allMigrations, nil
	}

	exists, err := s.repo.TableExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check migration history: %w", err)
	}
	if !exists {
		return allMigrations, nil
	}

	appliedMigrations, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch applied migrations",
			"operation", "get_migration_status",
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	appliedMap := make(map[string]*domain.MigrationFile, len(appliedMigrations))
	for _, migration := range appliedMigrations {
		appliedMap[migration.Name] = migration
	}

	for _, migration := range allMigrations {
		if applied, exists := appliedMap[migration.Name]; exists {
			migration.Status = domain.MigrationStatusApplied
			migration.AppliedAt = applied.AppliedAt
		}
	}

	return allMigrations, nil
}
