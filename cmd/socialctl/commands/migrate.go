// Package commands はsocialctlのサブコマンドを定義する。
// 設定は各サービスと同じく環境変数（CONFIG_FILE）から読み込む。
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/socialnet/pkg/config"
	"github.com/nao1215/socialnet/pkg/database"
	"github.com/nao1215/socialnet/pkg/migration"
)

// NewMigrateCmd はマイグレーションを適用するコマンドを生成する。
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migration.Up(cmd.Context(), db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "No hay migraciones pendientes")
				return nil
			}
			for _, m := range applied {
				fmt.Fprintf(out, "aplicada %05d %s\n", m.Version, m.Path)
			}
			return nil
		},
	}

	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Muestra el estado de cada migración",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := migration.List(cmd.Context(), db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range statuses {
				state := "pendiente"
				if s.Applied {
					state = "aplicada"
				}
				fmt.Fprintf(out, "%05d %-10s %s\n", s.Version, state, s.Path)
			}
			return nil
		},
	}
}

// openDatabase は設定に従ってデータベースへ接続する。
func openDatabase(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	return database.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL)
}
