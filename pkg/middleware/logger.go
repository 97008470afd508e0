package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nao1215/socialnet/pkg/apperror"
)

// ゲートウェイがアクセスログに残す値のGinコンテキストのキー。
const (
	// GinKeyRouteState はリクエストの終端状態。
	GinKeyRouteState = "socialnet.route_state"
	// GinKeyRouteName は一致したルールの名前。
	GinKeyRouteName = "socialnet.route_name"
)

// StatusClientClosedRequest は応答前にクライアントが切断したことを表すステータス（nginxの499）。
// クライアントには届かず、アクセスログにだけ残る。
const StatusClientClosedRequest = 499

// RequestLogger はgin.Logger()の代わりにzapでアクセスログを出力するGinミドルウェアを返す。
// エラーレスポンスの場合はエラー種別も記録する。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if name := c.GetString(GinKeyRouteName); name != "" {
			fields = append(fields, zap.String("route", name))
		}
		if state := c.GetString(GinKeyRouteState); state != "" {
			fields = append(fields, zap.String("route_state", state))
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields,
				zap.String("kind", string(apperror.KindOf(err.Err))),
				zap.Error(err.Err),
			)
		}

		level := zapcore.InfoLevel
		switch {
		case status == StatusClientClosedRequest:
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		logger.Log(level, "request", fields...)
	}
}
