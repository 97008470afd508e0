package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/pkg/apperror"
	"github.com/nao1215/socialnet/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "identity"

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// service はログイン・登録のユースケース。
	service *Service
	// verifier は /validate で使用するトークン検証器。
	verifier middleware.Verifier
	// logger は構造化ロガー。
	logger *zap.Logger
}

// Options はServerの任意設定。
type Options struct {
	// ExposeErrorDetail は内部エラーの詳細をレスポンスに含めるかどうか。本番では false にする。
	ExposeErrorDetail bool
	// RateLimit はログインと登録に適用するレート制限ミドルウェア。nil なら制限しない。
	RateLimit gin.HandlerFunc
}

// NewServer は新しい認証サービスのサーバーを生成する。
func NewServer(service *Service, verifier middleware.Verifier, logger *zap.Logger, opts Options) *Server {
	router := gin.New()
	if opts.ExposeErrorDetail {
		router.Use(middleware.ExposeErrorDetail())
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))

	s := &Server{
		router:   router,
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
	s.setupRoutes(opts.RateLimit)
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(rateLimit gin.HandlerFunc) {
	limited := s.router.Group("/")
	if rateLimit != nil {
		limited.Use(rateLimit)
	}
	limited.POST("/login", s.handleLogin())
	limited.POST("/register", s.handleRegister())

	s.router.GET("/validate", middleware.TokenAuth(s.verifier), s.handleValidate())
	s.router.GET("/health", s.handleHealth())
}

// handleLogin は資格情報を検証してトークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in LoginInput
		if err := c.ShouldBind(&in); err != nil {
			middleware.RespondError(c, apperror.Wrap(apperror.KindValidation, msgLoginRequired, err))
			return
		}

		result, err := s.service.Login(c.Request.Context(), in)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		s.logger.Info("ログイン成功", zap.String("user_id", result.User.ID))
		c.JSON(http.StatusOK, result)
	}
}

// handleRegister はユーザーを登録するハンドラを返す。
// JSONとフォーム（urlencoded / multipart）のどちらのボディも受け付ける。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RegisterInput
		if err := c.ShouldBind(&in); err != nil {
			middleware.RespondError(c, apperror.Wrap(apperror.KindValidation, msgAllFieldsRequired, err))
			return
		}

		user, err := s.service.Register(c.Request.Context(), in)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		s.logger.Info("ユーザー登録", zap.String("user_id", user.ID))
		c.JSON(http.StatusCreated, gin.H{
			"message": msgRegistered,
			"user":    user,
		})
	}
}

// handleValidate はトークンが有効であることと、その内容を返すハンドラを返す。
func (s *Server) handleValidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := middleware.PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"user":  p,
		})
	}
}

// handleHealth はサービスの生存確認を返すハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
