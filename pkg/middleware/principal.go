package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderUserID はサービス間で認証済みユーザーIDを伝播するためのHTTPヘッダーキー。
const HeaderUserID = "X-User-ID"

// ginKeyPrincipal はGinコンテキスト上のPrincipalのキー。
const ginKeyPrincipal = "socialnet.principal"

// Principal はトークン検証に成功したリクエストの認証済みユーザー。
// リクエスト単位で生成され、リクエスト終了とともに破棄される。
type Principal struct {
	SubjectID string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Alias     string    `json:"alias"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type principalKey struct{}

// WithPrincipal はPrincipalを持つ新しいcontext.Contextを返す。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext はcontext.ContextからPrincipalを取り出す。
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// PrincipalFrom はGinコンテキストからPrincipalを取り出す。
// TokenAuthミドルウェアが事前に適用されている必要がある。
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	if v, ok := c.Get(ginKeyPrincipal); ok {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return PrincipalFromContext(c.Request.Context())
}

// setPrincipal はGinコンテキストとリクエストのcontext.Contextの両方にPrincipalを設定する。
func setPrincipal(c *gin.Context, p Principal) {
	c.Set(ginKeyPrincipal, p)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}
