// Package handler はHTTPハンドラを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"schema-migrator/internal/domain"
	"schema-migrator/internal/middleware"
	"schema-migrator/internal/usecase"
	"schema-migrator/pkg/httputil"
)

// MigrationRunner はハンドラが利用するマイグレーション実行のインターフェース。
type MigrationRunner interface {
	Run(ctx context.Context, opts usecase.RunOptions) (*domain.RunResult, error)
	GetMigrationStatus(ctx context.Context, opts usecase.RunOptions) ([]*domain.MigrationFile, error)
}

// MigrationHandler はマイグレーション操作のHTTPハンドラ。
// 同時に実行できるのは1回のみ。
type MigrationHandler struct {
	runner MigrationRunner
	opts   usecase.RunOptions
	mu     sync.Mutex
}

// NewMigrationHandler は新しいMigrationHandlerを生成する。
func NewMigrationHandler(runner MigrationRunner, opts usecase.RunOptions) *MigrationHandler {
	return &MigrationHandler{runner: runner, opts: opts}
}

// MigrationStatusResponse はマイグレーション状態のレスポンス形式。
type MigrationStatusResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	AppliedAt string `json:"applied_at,omitempty"`
}

// MigrationListResponse はマイグレーション一覧のレスポンス形式。
type MigrationListResponse struct {
	Migrations []MigrationStatusResponse `json:"migrations"`
}

// FileResultResponse はファイル単位の実行結果のレスポンス形式。
type FileResultResponse struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunResponse は実行結果のレスポンス形式。
type RunResponse struct {
	RunID     string               `json:"run_id"`
	Applied   int                  `json:"applied"`
	Skipped   int                  `json:"skipped"`
	AbortedAt string               `json:"aborted_at,omitempty"`
	Results   []FileResultResponse `json:"results"`
}

func toRunResponse(result *domain.RunResult) RunResponse {
	resp := RunResponse{
		RunID:     result.RunID,
		Applied:   result.Count(domain.OutcomeApplied),
		Skipped:   result.Count(domain.OutcomeSkipped),
		AbortedAt: result.AbortedAt,
		Results:   make([]FileResultResponse, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		item := FileResultResponse{
			Name:    res.File.Name,
			Outcome: string(res.Outcome),
			Reason:  res.Reason,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}

// ListMigrations はマイグレーションを実行順に状態付きで返す。
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	migrations, err := h.runner.GetMigrationStatus(r.Context(), h.opts)
	if err != nil {
		if errors.Is(err, domain.ErrMigrationsDirNotFound) {
			httputil.Error(w, http.StatusNotFound, "MIGRATIONS_DIR_NOT_FOUND", "migrations directory not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get migration status",
			"operation", "list_migrations",
			"error", err,
		)
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	resp := MigrationListResponse{Migrations: make([]MigrationStatusResponse, 0, len(migrations))}
	for _, m := range migrations {
		item := MigrationStatusResponse{
			Name:    m.Name,
			Version: m.Version,
			Status:  string(m.Status),
		}
		if m.AppliedAt != nil {
			item.AppliedAt = m.AppliedAt.UTC().Format(time.RFC3339)
		}
		resp.Migrations = append(resp.Migrations, item)
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// ApplyMigrations は未適用のマイグレーションを実行する。
func (h *MigrationHandler) ApplyMigrations(w http.ResponseWriter, r *http.Request) {
	if !h.mu.TryLock() {
		httputil.Error(w, http.StatusConflict, "RUN_IN_PROGRESS", domain.ErrRunInProgress.Error())
		return
	}
	defer h.mu.Unlock()

	// クライアント切断で実行中のファイルを中断しない。トレースとログの値は引き継ぐ
	ctx := context.WithoutCancel(r.Context())

	result, err := h.runner.Run(ctx, h.opts)
	if result == nil {
		middleware.WriteAuditLog(ctx, "APPLY_MIGRATIONS", "", 0, "FAILED")
		if errors.Is(err, domain.ErrMigrationsDirNotFound) {
			httputil.Error(w, http.StatusNotFound, "MIGRATIONS_DIR_NOT_FOUND", "migrations directory not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	if err != nil {
		middleware.WriteAuditLog(ctx, "APPLY_MIGRATIONS", result.RunID, result.Count(domain.OutcomeApplied), "FAILED")
		httputil.JSON(w, http.StatusInternalServerError, toRunResponse(result))
		return
	}

	middleware.WriteAuditLog(ctx, "APPLY_MIGRATIONS", result.RunID, result.Count(domain.OutcomeApplied), "SUCCESS")
	httputil.JSON(w, http.StatusOK, toRunResponse(result))
}

// Healthz は死活監視用。
func (h *MigrationHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
