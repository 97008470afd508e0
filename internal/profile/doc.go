// Package profile はプロフィールサービスの内部実装を提供する。
//
// Bearerトークンで認証されたユーザー自身のプロフィールを資格情報ストアから返す。
package profile
