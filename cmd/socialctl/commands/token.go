package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/socialnet/pkg/config"
	"github.com/nao1215/socialnet/pkg/token"
)

// NewTokenCmd はトークン関連のコマンドを生成する。
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Operaciones sobre tokens de acceso",
	}
	cmd.AddCommand(newTokenInspectCmd())
	return cmd
}

// newTokenInspectCmd はJWT_SECRETでトークンを検証し、クレームを表示するコマンドを生成する。
func newTokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verifica un token y muestra sus claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			tokens, err := token.NewManager(cfg.JWTSecret)
			if err != nil {
				return err
			}

			claims, err := tokens.Verify(args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
}
