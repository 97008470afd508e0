package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/socialnet/pkg/apperror"
	"github.com/nao1215/socialnet/pkg/token"
)

// Verifier はBearerトークンを検証してクレームを返す。
// 失敗時は *apperror.Error（TokenExpired / Unauthenticated）を返すこと。
type Verifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// TokenAuth はAuthorizationヘッダーのBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、Principalをコンテキストに設定し、転送用に X-User-ID ヘッダーを付与する。
// ストアへの問い合わせは行わないため、発行後のユーザー情報の変更は有効期限まで反映されない。
func TokenAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondError(c, apperror.New(apperror.KindUnauthenticated, "Token de autenticación no proporcionado"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			RespondError(c, apperror.New(apperror.KindUnauthenticated, "Formato de token inválido"))
			return
		}

		claims, err := v.Verify(parts[1])
		if err != nil {
			RespondError(c, err)
			return
		}

		p := Principal{
			SubjectID: claims.UserID,
			Email:     claims.Email,
			FirstName: claims.FirstName,
			LastName:  claims.LastName,
			Alias:     claims.Alias,
		}
		if claims.ExpiresAt != nil {
			p.ExpiresAt = claims.ExpiresAt.Time
		}
		setPrincipal(c, p)
		c.Request.Header.Set(HeaderUserID, p.SubjectID)
		c.Next()
	}
}
