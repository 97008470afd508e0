// 認証サービスのエントリポイント。
// ユーザー登録、ログイン（トークン発行）、トークン検証を担当する。
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

	"github.com/nao1215/socialnet/internal/identity"
	"github.com/nao1215/socialnet/pkg/config"
	"github.com/nao1215/socialnet/pkg/credential"
	"github.com/nao1215/socialnet/pkg/database"
	"github.com/nao1215/socialnet/pkg/httpserver"
	"github.com/nao1215/socialnet/pkg/logger"
	"github.com/nao1215/socialnet/pkg/middleware"
	"github.com/nao1215/socialnet/pkg/migration"
	"github.com/nao1215/socialnet/pkg/password"
	"github.com/nao1215/socialnet/pkg/token"
)

func main() {
	cfg, err := config.Load("3001")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer logger.Sync(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("認証サービスが異常終了しました", zap.Error(err))
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

	applied, err := migration.Up(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range applied {
		lg.Info("マイグレーションを適用しました", zap.Int64("version", m.Version), zap.String("path", m.Path))
	}

	hasher, err := password.NewHasher(cfg.HashCost, cfg.HashWorkers)
	if err != nil {
		return err
	}
	tokens, err := token.NewManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	store, err := middleware.NewRateLimitStore(cfg.RedisURL)
	if err != nil {
		return err
	}
	rateLimit, err := middleware.RateLimit(cfg.AuthRateLimit, store)
	if err != nil {
		return err
	}

	service := identity.NewService(credential.NewSQLStore(db), hasher, tokens)
	server := identity.NewServer(service, tokens, lg, identity.Options{
		ExposeErrorDetail: !cfg.IsProduction(),
		RateLimit:         rateLimit,
	})

	return httpserver.Run(ctx, net.JoinHostPort("", cfg.Port), server.Handler(), lg)
}
