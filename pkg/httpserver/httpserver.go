// Package httpserver はHTTPサーバーの起動とグレースフルシャットダウンを共通化する。
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout は停止要求後に処理中のリクエストを待つ最大時間。
const ShutdownTimeout = 10 * time.Second

// Run はaddrでhandlerを公開し、ctxがキャンセルされるまでブロックする。
// キャンセル後は新規接続の受付を止め、処理中のリクエストを最大ShutdownTimeoutまで待つ。
// WriteTimeoutを設定するとUpgrade後のトンネルが切断されるため、設定しない。
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("リッスンに失敗 (%s): %w", addr, err)
	}
	return Serve(ctx, ln, handler, logger)
}

// Serve は既存のリスナーでhandlerを公開する。挙動はRunと同じ。
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTPサーバーを起動します", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーが異常終了: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("停止要求を受信、処理中のリクエストを待機します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	logger.Info("HTTPサーバーを停止しました")
	return nil
}
