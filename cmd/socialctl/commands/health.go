package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/socialnet/pkg/httpclient"
)

// healthReport はゲートウェイの拡張ヘルスチェックの応答。
type healthReport struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Backends []struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"backends"`
}

// NewHealthCmd はゲートウェイ経由で各サービスの状態を表示するコマンドを生成する。
// いずれかのバックエンドが down ならエラーで終了する。
func NewHealthCmd() *cobra.Command {
	var (
		gatewayURL string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Consulta el estado del gateway y de sus servicios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := httpclient.New(gatewayURL, httpclient.WithTimeout(timeout))

			var report healthReport
			if err := client.GetJSON(cmd.Context(), "/health?mode=extended", &report); err != nil {
				return fmt.Errorf("ゲートウェイへの問い合わせに失敗: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", report.Service, client.BaseURL(), report.Status)
			down := 0
			for _, b := range report.Backends {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Name, b.URL, b.Status, b.Error)
				if b.Status != "up" {
					down++
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if down > 0 {
				return fmt.Errorf("%d 件のサービスが応答していません", down)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gatewayURL, "url", "http://localhost:3000", "URL base del gateway")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "tiempo máximo de espera")
	return cmd
}
