// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"
)

// GormExecutor はSQLバッチをgorm経由でそのまま実行する。
type GormExecutor struct {
	db *gorm.DB
}

// NewGormExecutor は新しいGormExecutorを生成する。
func NewGormExecutor(db *gorm.DB) *GormExecutor {
	return &GormExecutor{db: db}
}

// ExecBatch はファイル全体を1回の実行単位として送信する。
// トランザクションでは囲まない。
func (e *GormExecutor) ExecBatch(ctx context.Context, statements string) error {
	if err := e.db.WithContext(ctx).Exec(statements).Error; err != nil {
		slog.DebugContext(ctx, "statement batch returned error",
			"operation", "exec_batch",
			"error", err,
		)
		return err
	}
	return nil
}
