package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schema-migrator/internal/domain"
)

func newUpCmd(flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all migrations",
		Long:  "Apply every .sql file in the migrations directory in filename order, skipping files whose objects already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			result, runErr := rt.service.Run(ctx, rt.opts)
			if result != nil {
				if err := printRunResult(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("migration failed: %w", runErr)
			}
			return nil
		},
	}
}

func newStatusCmd(flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  "List migration files in execution order with their applied/pending status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			migrations, err := rt.service.GetMigrationStatus(ctx, rt.opts)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return printStatus(cmd.OutOrStdout(), migrations)
		},
	}
}

// printRunResult はファイル単位の結果をテーブル形式で出力する。
func printRunResult(out io.Writer, result *domain.RunResult) error {
	if len(result.Results) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tRESULT\tDETAIL")
	fmt.Fprintln(w, "----\t------\t------")
	for _, res := range result.Results {
		detail := res.Reason
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.File.Name, res.Outcome, detail)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if result.OK() {
		fmt.Fprintf(out, "Applied %d, skipped %d migration(s).\n",
			result.Count(domain.OutcomeApplied), result.Count(domain.OutcomeSkipped))
	} else {
		fmt.Fprintf(out, "Aborted at %s.\n", result.AbortedAt)
	}
	return nil
}

// printStatus はマイグレーション状態をテーブル形式で出力する。
func printStatus(out io.Writer, migrations []*domain.MigrationFile) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tAPPLIED AT")
	fmt.Fprintln(w, "----\t------\t----------")

	for _, migration := range migrations {
		appliedAt := "-"
		if migration.AppliedAt != nil {
			appliedAt = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", migration.Name, migration.Status, appliedAt)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
