package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schema-migrator/internal/domain"
	"schema-migrator/internal/usecase"
)

// mockRunner はテスト用のモック。
type mockRunner struct {
	runResult    *domain.RunResult
	runErr       error
	statusResult []*domain.MigrationFile
	statusErr    error
	gotOpts      usecase.RunOptions
}

func (m *mockRunner) Run(ctx context.Context, opts usecase.RunOptions) (*domain.RunResult, error) {
	m.gotOpts = opts
	return m.runResult, m.runErr
}

func (m *mockRunner) GetMigrationStatus(ctx context.Context, opts usecase.RunOptions) ([]*domain.MigrationFile, error) {
	m.gotOpts = opts
	return m.statusResult, m.statusErr
}

func TestMigrationHandler_ListMigrations(t *testing.T) {
	appliedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runner := &mockRunner{
		statusResult: []*domain.MigrationFile{
			{Name: "0001_add_table.sql", Version: "0001", Status: domain.MigrationStatusApplied, AppliedAt: &appliedAt},
			{Name: "0002_add_index.sql", Version: "0002", Status: domain.MigrationStatusPending},
		},
	}
	router := NewRouter(NewMigrationHandler(runner, usecase.RunOptions{ExcludePrefix: "000_"}), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/migrations/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if runner.gotOpts.ExcludePrefix != "000_" {
		t.Errorf("expected exclude prefix to be passed through, got %q", runner.gotOpts.ExcludePrefix)
	}

	var resp MigrationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(resp.Migrations))
	}
	if resp.Migrations[0].AppliedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected applied_at: %s", resp.Migrations[0].AppliedAt)
	}
	if resp.Migrations[1].Status != "pending" {
		t.Errorf("expected pending, got %s", resp.Migrations[1].Status)
	}
}

func TestMigrationHandler_ListMigrations_DirNotFound(t *testing.T) {
	runner := &mockRunner{statusErr: fmt.Errorf("%w: /missing", domain.ErrMigrationsDirNotFound)}
	router := NewRouter(NewMigrationHandler(runner, usecase.RunOptions{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/migrations/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestMigrationHandler_ApplyMigrations(t *testing.T) {
	tests := []struct {
		name           string
		runner         *mockRunner
		expectedStatus int
		expectedAbort  string
	}{
		{
			name: "all applied",
			runner: &mockRunner{runResult: &domain.RunResult{
				RunID: "run-1",
				Results: []domain.FileResult{
					{File: domain.MigrationFile{Name: "0001_add_table.sql"}, Outcome: domain.OutcomeApplied},
					{File: domain.MigrationFile{Name: "0002_add_index.sql"}, Outcome: domain.OutcomeSkipped, Reason: "object already exists"},
				},
			}},
			expectedStatus: http.StatusOK,
		},
		{
			name: "aborted",
			runner: &mockRunner{
				runResult: &domain.RunResult{
					RunID:     "run-2",
					AbortedAt: "0002_add_index.sql",
					Results: []domain.FileResult{
						{File: domain.MigrationFile{Name: "0001_add_table.sql"}, Outcome: domain.OutcomeApplied},
						{File: domain.MigrationFile{Name: "0002_add_index.sql"}, Outcome: domain.OutcomeFailed, Err: errors.New("syntax error")},
					},
				},
				runErr: domain.ErrMigrationFailed,
			},
			expectedStatus: http.StatusInternalServerError,
			expectedAbort:  "0002_add_index.sql",
		},
		{
			name:           "discover failed",
			runner:         &mockRunner{runErr: errors.New("permission denied")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewMigrationHandler(tt.runner, usecase.RunOptions{}), nil)

			req := httptest.NewRequest(http.MethodPost, "/v1/migrations/apply", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.runner.runResult == nil {
				return
			}

			var resp RunResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.AbortedAt != tt.expectedAbort {
				t.Errorf("expected aborted_at %q, got %q", tt.expectedAbort, resp.AbortedAt)
			}
			if len(resp.Results) != len(tt.runner.runResult.Results) {
				t.Errorf("expected %d results, got %d", len(tt.runner.runResult.Results), len(resp.Results))
			}
		})
	}
}

func TestMigrationHandler_ApplyMigrations_InProgress(t *testing.T) {
	h := NewMigrationHandler(&mockRunner{runResult: &domain.RunResult{}}, usecase.RunOptions{})
	router := NewRouter(h, nil)

	// 実行中の状態を再現
	h.mu.Lock()
	defer h.mu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/v1/migrations/apply", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}

func TestMigrationHandler_Healthz(t *testing.T) {
	router := NewRouter(NewMigrationHandler(&mockRunner{}, usecase.RunOptions{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
