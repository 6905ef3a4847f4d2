package domain

import "errors"

var (
	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrMigrationsDirNotFound はマイグレーションディレクトリが存在しない場合のエラー。
	ErrMigrationsDirNotFound = errors.New("migrations directory not found")

	// ErrObjectAlreadyExists はスキーマオブジェクトが既に存在する場合のエラー。
	// 適用済みとみなしてスキップする。
	ErrObjectAlreadyExists = errors.New("object already exists")

	// ErrRunInProgress は別の実行が進行中の場合のエラー。
	ErrRunInProgress = errors.New("migration run already in progress")
)
