package repository

import (
	"context"
	"log/slog"
	"time"

	"schema-migrator/internal/domain"

	"gorm.io/gorm"
)

// SchemaMigrationModel はschema_migrationsテーブルのモデル。
// versionにはファイル名をそのまま格納する。
type SchemaMigrationModel struct {
	Version   string    `gorm:"column:version;primaryKey;type:varchar(255)"`
	AppliedAt time.Time `gorm:"column:applied_at;not null;autoCreateTime"`
}

// TableName はテーブル名を指定。
func (SchemaMigrationModel) TableName() string {
	return "schema_migrations"
}

// MigrationRepository はマイグレーション履歴を管理するリポジトリ。
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository は新しいMigrationRepositoryを生成する。
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// EnsureTable は履歴テーブルが存在しなければ作成する。
func (r *MigrationRepository) EnsureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&SchemaMigrationModel{}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure schema_migrations table",
			"operation", "ensure_table",
			"error", err,
		)
		return err
	}
	return nil
}

// TableExists は履歴テーブルが存在するか確認する。
func (r *MigrationRepository) TableExists(ctx context.Context) (bool, error) {
	return r.db.WithContext(ctx).Migrator().HasTable(&SchemaMigrationModel{}), nil
}

// FindAllApplied は適用済みマイグレーション一覧をファイル名順に取得する。
func (r *MigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.MigrationFile, error) {
	var models []SchemaMigrationModel
	if err := r.db.WithContext(ctx).Order("version ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find all applied migrations",
			"operation", "find_all_applied",
			"error", err,
		)
		return nil, err
	}

	migrations := make([]*domain.MigrationFile, len(models))
	for i, model := range models {
		appliedAt := model.AppliedAt
		migrations[i] = &domain.MigrationFile{
			Name:      model.Version,
			AppliedAt: &appliedAt,
			Status:    domain.MigrationStatusApplied,
		}
	}

	return migrations, nil
}

// RecordMigration はマイグレーション適用履歴を記録する。
// 既に記録済みの場合は何もしない。
func (r *MigrationRepository) RecordMigration(ctx context.Context, name string) error {
	model := &SchemaMigrationModel{
		Version: name,
	}
	err := r.db.WithContext(ctx).Where(SchemaMigrationModel{Version: name}).FirstOrCreate(model).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to record migration",
			"operation", "record_migration",
			"file", name,
			"error", err,
		)
		return err
	}
	return nil
}

// IsMigrationApplied はマイグレーションが適用済みか確認する。
func (r *MigrationRepository) IsMigrationApplied(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&SchemaMigrationModel{}).Where("version = ?", name).Count(&count).Error; err != nil {
		slog.ErrorContext(ctx, "failed to check if migration is applied",
			"operation", "is_migration_applied",
			"file", name,
			"error", err,
		)
		return false, err
	}
	return count > 0, nil
}
