// socialctl は運用向けのコマンドラインツール。
// マイグレーションの適用、トークンの検査、ルーティング表とサービス状態の確認を行う。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/socialnet/cmd/socialctl/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "socialctl",
		Short:         "Herramienta de operación de socialnet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewRoutesCmd())
	rootCmd.AddCommand(commands.NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
