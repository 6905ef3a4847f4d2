// Package domain はマイグレーション実行のドメインモデルとエラーを定義する。
package domain

import (
	"fmt"
	"time"
)

// MigrationStatus はマイグレーションの適用状態を表す
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
	// MigrationStatusUntracked は履歴テーブルを使わない実行で状態が判定できないことを表す。
	MigrationStatusUntracked MigrationStatus = "untracked"
)

// MigrationFile はディレクトリから検出された1つのSQLファイルを表す。
// 読み込み後は変更しない。
type MigrationFile struct {
	Name      string          // ファイル名（一意、実行順のキー）
	Version   string          // 最初の "_" より前の部分（表示用）
	Path      string          // ファイルの絶対パス
	Contents  string          // SQL本文（実行直前に読み込む）
	Status    MigrationStatus // statusコマンド用の適用状態
	AppliedAt *time.Time      // 適用日時（履歴がない場合はnil）
}

// Outcome はファイル単位の実行結果の種別。
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// FileResult はファイル単位の実行結果。
// Applied / Skipped(Reason) / Failed(Err) のいずれか。
type FileResult struct {
	File    MigrationFile
	Outcome Outcome
	Reason  string
	Err     error
}

// RunResult は1回の実行全体の結果。
// AbortedAt が空なら全ファイル処理済み。
type RunResult struct {
	RunID     string
	Results   []FileResult
	AbortedAt string
}

// OK は致命的エラーなしで最後まで処理できたかを返す。
func (r *RunResult) OK() bool {
	return r.AbortedAt == ""
}

// Count は指定した種別の結果数を返す。
func (r *RunResult) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Err は中断時に失敗したファイル名を含むエラーを返す。成功時はnil。
func (r *RunResult) Err() error {
	if r.OK() {
		return nil
	}
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			return fmt.Errorf("%w: %s: %w", ErrMigrationFailed, res.File.Name, res.Err)
		}
	}
	return fmt.Errorf("%w: %s", ErrMigrationFailed, r.AbortedAt)
}
