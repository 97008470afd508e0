// API Gatewayサービスのエントリポイント。
// 外部からアクセス可能な唯一のサービスであり、ルーティング表に従って
// 各サービスへリクエストを転送する。保護されたルートではトークンを検証する。
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/internal/gateway"
	"github.com/nao1215/socialnet/pkg/config"
	"github.com/nao1215/socialnet/pkg/httpserver"
	"github.com/nao1215/socialnet/pkg/logger"
	"github.com/nao1215/socialnet/pkg/token"
)

func main() {
	cfg, err := config.Load("3000")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("Gatewayサービスが異常終了しました", zap.Error(err))
		logger.Sync(lg)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := token.NewManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	rules, err := gateway.RulesFromConfig(cfg)
	if err != nil {
		return err
	}
	routes, err := gateway.NewRouter(rules)
	if err != nil {
		return err
	}
	for _, r := range routes.Rules() {
		lg.Info("ルートを登録しました",
			zap.String("name", r.Name),
			zap.String("prefix", r.Prefix),
			zap.String("backend", r.Backend.String()),
			zap.Bool("protected", r.Protected),
		)
	}

	server := gateway.NewServer(routes, tokens, lg, gateway.Options{
		Timeout:           cfg.ProxyTimeout,
		AllowedOrigins:    strings.Split(cfg.FrontendURL, ","),
		ExposeErrorDetail: !cfg.IsProduction(),
	})
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpserver.Run(ctx, net.JoinHostPort("", cfg.Port), server.Handler(), lg)
}
