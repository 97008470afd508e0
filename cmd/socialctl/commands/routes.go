package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/socialnet/internal/gateway"
	"github.com/nao1215/socialnet/pkg/config"
)

// NewRoutesCmd はゲートウェイのルーティング表を表示するコマンドを生成する。
// 表示順は照合順（宣言順）。
func NewRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Muestra la tabla de rutas del gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			rules, err := gateway.RulesFromConfig(cfg)
			if err != nil {
				return err
			}
			routes, err := gateway.NewRouter(rules)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPREFIX\tBACKEND\tSTRIP\tPROTECTED\tUPGRADE")
			for _, r := range routes.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%t\n", r.Name, r.Prefix, r.Backend, r.StripPrefix, r.Protected, r.Upgrade)
			}
			return w.Flush()
		},
	}
}
