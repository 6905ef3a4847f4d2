// Package middleware はHTTPミドルウェアと監査ログを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Operation string `json:"operation"`
	RunID     string `json:"run_id,omitempty"`
	Applied   int    `json:"applied"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// NewAuditLog は現在時刻で監査ログを生成する。
func NewAuditLog(operation, runID string, applied int, result string) AuditLog {
	return AuditLog{
		Operation: operation,
		RunID:     runID,
		Applied:   applied,
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// WriteAuditLog は監査ログを出力する。
func WriteAuditLog(ctx context.Context, operation, runID string, applied int, result string) {
	entry := NewAuditLog(operation, runID, applied, result)
	slog.InfoContext(ctx, "migration operation completed",
		"operation", entry.Operation,
		"run_id", entry.RunID,
		"applied", entry.Applied,
		"result", entry.Result,
		"timestamp", entry.Timestamp,
	)
}
