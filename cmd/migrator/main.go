// Package main はマイグレーションCLIのエントリポイント。
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newRootCmd はルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply SQL schema migrations in filename order",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&flags.dir, "dir", "", "Migrations directory (or set MIGRATIONS_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", "", "Database DSN (or set DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&flags.includeBootstrap, "include-bootstrap", false, "Also run files with the bootstrap prefix")
	rootCmd.PersistentFlags().BoolVar(&flags.trackHistory, "track-history", false, "Record applied files in schema_migrations and skip by lookup")

	rootCmd.AddCommand(newUpCmd(flags))
	rootCmd.AddCommand(newStatusCmd(flags))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "migrator version %s\n", version)
		},
	}
}
