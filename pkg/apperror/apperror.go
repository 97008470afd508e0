// Package apperror はサービス全体で共有するエラー分類を提供する。
//
// ハンドラ・サービス層はこのパッケージの Error を返し、HTTP境界で
// Kind に対応するステータスコードと {error, message} 形式のJSONに変換される。
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類を表す。JSONレスポンスの error フィールドにそのまま使われる。
type Kind string

const (
	// KindValidation は入力の欠落・形式不正を表す。
	KindValidation Kind = "ValidationError"
	// KindUnauthenticated は認証情報・トークンの欠落または不正を表す。
	KindUnauthenticated Kind = "Unauthenticated"
	// KindTokenExpired はトークンの有効期限切れを表す。
	KindTokenExpired Kind = "TokenExpired"
	// KindConflict は一意制約違反を表す。
	KindConflict Kind = "Conflict"
	// KindNotFound はルートまたはリソースが存在しないことを表す。
	KindNotFound Kind = "NotFound"
	// KindTooManyRequests はレート制限の超過を表す。
	KindTooManyRequests Kind = "TooManyRequests"
	// KindBadGateway はバックエンドとの通信失敗を表す。
	KindBadGateway Kind = "BadGateway"
	// KindGatewayTimeout はバックエンド呼び出しの期限超過を表す。
	KindGatewayTimeout Kind = "GatewayTimeout"
	// KindInternal は想定外の内部エラーを表す。
	KindInternal Kind = "Internal"
)

// Status は Kind に対応するHTTPステータスコードを返す。
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated, KindTokenExpired:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindBadGateway:
		return http.StatusBadGateway
	case KindGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error は分類付きのアプリケーションエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はクライアントに返してよいメッセージ。
	Message string
	// Err は原因となったエラー。クライアントには返さない。
	Err error
}

// Error は error インターフェースを満たす。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// New は原因エラーを持たない Error を生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因エラーを保持した Error を生成する。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf はエラーの分類を返す。*Error を含まないエラーは KindInternal として扱う。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is はエラーが指定した分類に属するかを返す。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf はクライアント向けメッセージを返す。
// *Error でない場合は汎用メッセージを返し、内部の詳細は含めない。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return InternalMessage
}

// InternalMessage は内部エラー時にクライアントへ返す汎用メッセージ。
const InternalMessage = "Error interno del servidor"
