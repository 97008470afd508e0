// プロフィールサービスのエントリポイント。
// 認証済みユーザー自身のプロフィールを返す。
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/internal/profile"
	"github.com/nao1215/socialnet/pkg/config"
	"github.com/nao1215/socialnet/pkg/credential"
	"github.com/nao1215/socialnet/pkg/database"
	"github.com/nao1215/socialnet/pkg/httpserver"
	"github.com/nao1215/socialnet/pkg/logger"
	"github.com/nao1215/socialnet/pkg/migration"
	"github.com/nao1215/socialnet/pkg/token"
)

func main() {
	cfg, err := config.Load("3002")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("プロフィールサービスが異常終了しました", zap.Error(err))
		logger.Sync(lg)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := migration.Up(ctx, db); err != nil {
		return err
	}

	tokens, err := token.NewManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	server := profile.NewServer(credential.NewSQLStore(db), tokens, lg, !cfg.IsProduction())
	return httpserver.Run(ctx, net.JoinHostPort("", cfg.Port), server.Handler(), lg)
}
