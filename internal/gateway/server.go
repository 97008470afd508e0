package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/socialnet/pkg/httpclient"
	"github.com/nao1215/socialnet/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "gateway"

// DefaultTimeout は1リクエストに許容する既定の最大時間。
const DefaultTimeout = 30 * time.Second

// defaultProbeTimeout は拡張ヘルスチェックでバックエンド1件に許容する時間。
const defaultProbeTimeout = 2 * time.Second

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// routes はルーティング表。
	routes *Router
	// verifier は保護されたルートで使用するトークン検証器。
	verifier middleware.Verifier
	// logger は構造化ロガー。
	logger *zap.Logger
	// transport はバックエンドへの接続に使うトランスポート。全リクエストで共有する。
	transport *http.Transport
	// timeout は1リクエストに許容する最大時間。
	timeout time.Duration
	// probes は拡張ヘルスチェック用のバックエンドごとのクライアント。
	probes []backendProbe
	// exposeDetail は拡張ヘルスチェックにバックエンドのURLとエラー内容を含めるかどうか。
	exposeDetail bool
}

// backendProbe はバックエンド1件の死活確認先。
type backendProbe struct {
	name   string
	client *httpclient.Client
}

// Options はServerの任意設定。
type Options struct {
	// Timeout は1リクエストに許容する最大時間。0なら DefaultTimeout。
	Timeout time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// ExposeErrorDetail は内部エラーの詳細をレスポンスに含めるかどうか。本番では false にする。
	ExposeErrorDetail bool
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(routes *Router, verifier middleware.Verifier, logger *zap.Logger, opts Options) *Server {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Upgradeリクエストには全体の期限を設けないため、ハンドシェイクの応答待ちをここで制限する。
	transport.ResponseHeaderTimeout = timeout

	router := gin.New()
	// 末尾スラッシュの違いもルーティング表で判定する。
	router.RedirectTrailingSlash = false
	if opts.ExposeErrorDetail {
		router.Use(middleware.ExposeErrorDetail())
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router:       router,
		routes:       routes,
		verifier:     verifier,
		logger:       logger,
		transport:    transport,
		timeout:      timeout,
		exposeDetail: opts.ExposeErrorDetail,
	}
	for _, r := range routes.Rules() {
		s.probes = append(s.probes, backendProbe{
			name:   r.Name,
			client: httpclient.New(r.Backend.String(), httpclient.WithTimeout(defaultProbeTimeout)),
		})
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はバックエンドへのアイドル接続を閉じる。
func (s *Server) Close() {
	s.transport.CloseIdleConnections()
}

// setupRoutes はルーティングを設定する。
// /health 以外のすべてのリクエストはルーティング表で転送先を決める。
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth())
	s.router.NoRoute(s.handleMatch(), s.handleEdgeAuth(), s.handleForward())
}

// backendStatus は拡張ヘルスチェックでのバックエンド1件の状態。
type backendStatus struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth はゲートウェイの生存確認を返すハンドラを返す。
// バックエンドの状態にかかわらず200を返す。mode=extended の場合は
// 各バックエンドの /health を並行して確認し、結果を付け加える。
// 内部のアドレスを含むURLとエラー内容は ExposeErrorDetail が有効な場合だけ返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if c.Query("mode") == "extended" {
			statuses := make([]backendStatus, len(s.probes))
			var g errgroup.Group
			for i, p := range s.probes {
				g.Go(func() error {
					st := backendStatus{Name: p.name, Status: "up"}
					if s.exposeDetail {
						st.URL = p.client.BaseURL()
					}
					if err := p.client.GetJSON(c.Request.Context(), "/health", nil); err != nil {
						st.Status = "down"
						if s.exposeDetail {
							st.Error = err.Error()
						}
						s.logger.Warn("バックエンドのヘルスチェックに失敗しました",
							zap.String("route", p.name),
							zap.String("backend", p.client.BaseURL()),
							zap.Error(err),
						)
					}
					statuses[i] = st
					return nil
				})
			}
			_ = g.Wait()
			body["backends"] = statuses
		}

		c.JSON(http.StatusOK, body)
	}
}
