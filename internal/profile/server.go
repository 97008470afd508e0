package profile

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/pkg/apperror"
	"github.com/nao1215/socialnet/pkg/credential"
	"github.com/nao1215/socialnet/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "profile"

// msgUserNotFound はトークンのユーザーが既に存在しない場合のメッセージ。
const msgUserNotFound = "Usuario no encontrado"

// Server はプロフィールサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// store は資格情報ストア。
	store credential.Store
}

// NewServer は新しいプロフィールサービスのサーバーを生成する。
func NewServer(store credential.Store, verifier middleware.Verifier, logger *zap.Logger, exposeErrorDetail bool) *Server {
	router := gin.New()
	if exposeErrorDetail {
		router.Use(middleware.ExposeErrorDetail())
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))

	s := &Server{router: router, store: store}

	// 旧クライアントがPOSTで取得していたため両方のメソッドを受け付ける。
	auth := middleware.TokenAuth(verifier)
	router.GET("/profile", auth, s.handleGetProfile())
	router.POST("/profile", auth, s.handleGetProfile())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleGetProfile は認証済みユーザーのプロフィールを返すハンドラを返す。
func (s *Server) handleGetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			middleware.RespondError(c, apperror.New(apperror.KindUnauthenticated, "Token inválido"))
			return
		}

		cred, err := s.store.FindByID(c.Request.Context(), p.SubjectID)
		if errors.Is(err, credential.ErrNotFound) {
			middleware.RespondError(c, apperror.New(apperror.KindNotFound, msgUserNotFound))
			return
		}
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, cred)
	}
}
