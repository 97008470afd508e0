package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nao1215/socialnet/pkg/apperror"
)

// ginKeyExposeDetail は内部エラーの詳細をレスポンスに含めるかどうかのキー。
const ginKeyExposeDetail = "socialnet.expose_error_detail"

// ExposeErrorDetail は内部エラーの詳細をレスポンスに含めるよう指示するGinミドルウェアを返す。
// 本番環境以外でのみ登録する。
func ExposeErrorDetail() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ginKeyExposeDetail, true)
		c.Next()
	}
}

// RespondError はエラーを {error, message} 形式のJSONで返し、処理を中断する。
// *apperror.Error 以外のエラーは Internal として汎用メッセージで返す。
func RespondError(c *gin.Context, err error) {
	RespondErrorWith(c, err, nil)
}

// RespondErrorWith はRespondErrorに追加のフィールドを加えたレスポンスを返す。
func RespondErrorWith(c *gin.Context, err error, extra gin.H) {
	kind := apperror.KindOf(err)
	body := gin.H{
		"error":   string(kind),
		"message": apperror.MessageOf(err),
	}
	for k, v := range extra {
		body[k] = v
	}
	if kind == apperror.KindInternal && c.GetBool(ginKeyExposeDetail) {
		body["detail"] = err.Error()
	}

	// RequestLoggerが種別を記録できるようにする。
	_ = c.Error(err)
	c.AbortWithStatusJSON(kind.Status(), body)
}
