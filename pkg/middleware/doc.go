// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンの検証とPrincipalの受け渡し、エラーレスポンスの統一、
// zapによるリクエストログ、パニックリカバリ、CORS、レート制限を含む。
// ミドルウェアは各サービスのルーター構築時に明示的な順序で登録する。
package middleware
