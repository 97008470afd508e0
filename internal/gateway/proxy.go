package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/pkg/apperror"
	"github.com/nao1215/socialnet/pkg/middleware"
)

// リクエストの状態。
const (
	stateReceived     = "RECEIVED"
	stateMatched      = "MATCHED"
	stateForwarding   = "FORWARDING"
	stateCompleted    = "COMPLETED"
	stateTimedOut     = "TIMED_OUT"
	stateBackendError = "BACKEND_ERROR"
	stateUnmatched    = "UNMATCHED"
	// stateRejected はUpgradeを許可しないルールへのUpgradeリクエスト。
	stateRejected = "REJECTED"
	// stateUnauthenticated は保護されたルールでトークン検証に失敗したリクエスト。
	stateUnauthenticated = "UNAUTHENTICATED"
	// stateClientClosed はバックエンドの応答前にクライアントが切断したリクエスト。
	stateClientClosed = "CLIENT_CLOSED"
)

// ginKeyRule は一致したRuleを後続のハンドラへ渡すGinコンテキストのキー。
const ginKeyRule = "socialnet.gateway.rule"

// クライアント向けメッセージ。
const (
	msgRouteNotFound     = "Ruta no encontrada"
	msgGatewayTimeout    = "El servicio no respondió a tiempo"
	msgBadGateway        = "Servicio no disponible"
	msgUpgradeNotAllowed = "La ruta no admite conexiones persistentes"
)

// setState はリクエストの状態を記録する。終端状態はアクセスログに出力される。
func setState(c *gin.Context, state string) {
	c.Set(middleware.GinKeyRouteState, state)
}

// handleMatch はパスに一致するルールを探すハンドラを返す。
// 一致しなければ404を返し、一致すれば後続のハンドラのためにRuleを設定する。
func (s *Server) handleMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		setState(c, stateReceived)

		// X-User-ID はゲートウェイのトークン検証でのみ設定する。
		c.Request.Header.Del(middleware.HeaderUserID)

		path := c.Request.URL.Path
		rule, ok := s.routes.Match(path)
		if !ok {
			setState(c, stateUnmatched)
			middleware.RespondErrorWith(c, apperror.New(apperror.KindNotFound, msgRouteNotFound), gin.H{"path": path})
			return
		}

		c.Set(ginKeyRule, rule)
		c.Set(middleware.GinKeyRouteName, rule.Name)
		setState(c, stateMatched)

		if isUpgradeRequest(c.Request) && !rule.Upgrade {
			setState(c, stateRejected)
			middleware.RespondError(c, apperror.New(apperror.KindValidation, msgUpgradeNotAllowed))
			return
		}
	}
}

// handleEdgeAuth は保護されたルールに対してトークンを検証するハンドラを返す。
// 検証に失敗した場合、バックエンドは呼び出されない。
func (s *Server) handleEdgeAuth() gin.HandlerFunc {
	auth := middleware.TokenAuth(s.verifier)
	return func(c *gin.Context) {
		if !ruleFrom(c).Protected {
			return
		}
		auth(c)
		if c.IsAborted() {
			setState(c, stateUnauthenticated)
		}
	}
}

// handleForward は一致したルールのバックエンドへリクエストを転送するハンドラを返す。
// 通常のリクエストには全体の期限を設け、Upgradeリクエストはバックエンドが
// ハンドシェイクに応答するまでの時間だけを制限する。
func (s *Server) handleForward() gin.HandlerFunc {
	return func(c *gin.Context) {
		rule := ruleFrom(c)

		ctx := c.Request.Context()
		if !isUpgradeRequest(c.Request) {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.Out.URL.Path = rule.Rewrite(pr.In.URL.Path)
				if pr.In.URL.RawPath != "" {
					pr.Out.URL.RawPath = rule.Rewrite(pr.In.URL.RawPath)
				}
				pr.SetURL(rule.Backend)
				pr.SetXForwarded()
			},
			Transport:     s.transport,
			FlushInterval: -1,
			ModifyResponse: func(_ *http.Response) error {
				setState(c, stateCompleted)
				return nil
			},
			ErrorHandler: func(_ http.ResponseWriter, _ *http.Request, err error) {
				s.respondProxyError(ctx, c, rule, err)
			},
		}

		setState(c, stateForwarding)
		proxy.ServeHTTP(c.Writer, c.Request.WithContext(ctx))

		// NoRouteから呼ばれるため、Ginは404を既定値として保持している。
		// バックエンドが本文なしの404を返した場合はヘッダーだけを確定させ、
		// Gin既定の "404 page not found" が書き込まれないようにする。
		if !c.Writer.Written() {
			c.Writer.WriteHeaderNow()
		}
	}
}

// respondProxyError は転送の失敗を504または502に変換する。
// 期限切れ・応答ヘッダー待ちのタイムアウトは504、それ以外の接続・プロトコルエラーは502。
// クライアントの切断はバックエンドの失敗として扱わず、499としてログにだけ残す。
func (s *Server) respondProxyError(ctx context.Context, c *gin.Context, rule Rule, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		setState(c, stateClientClosed)
		s.logger.Debug("バックエンドの応答前にクライアントが切断しました",
			zap.String("route", rule.Name),
			zap.String("backend", rule.Backend.String()),
		)
		c.AbortWithStatus(middleware.StatusClientClosedRequest)
		return
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		setState(c, stateTimedOut)
		s.logger.Warn("バックエンドが期限内に応答しませんでした",
			zap.String("route", rule.Name),
			zap.String("backend", rule.Backend.String()),
			zap.Duration("timeout", s.timeout),
		)
		middleware.RespondError(c, apperror.Wrap(apperror.KindGatewayTimeout, msgGatewayTimeout, err))
		return
	}

	setState(c, stateBackendError)
	middleware.RespondError(c, apperror.Wrap(apperror.KindBadGateway, msgBadGateway, err))
}

// ruleFrom はhandleMatchが設定したRuleを取り出す。
func ruleFrom(c *gin.Context) Rule {
	v, _ := c.Get(ginKeyRule)
	rule, _ := v.(Rule)
	return rule
}

// isTimeout はerrがタイムアウトを表すかを返す。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isUpgradeRequest はConnection: Upgrade を伴うリクエストかを返す。
func isUpgradeRequest(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range r.Header.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
				return true
			}
		}
	}
	return false
}
