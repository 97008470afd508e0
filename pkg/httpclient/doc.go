// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// ゲートウェイの拡張ヘルスチェックによるバックエンドの死活確認や、
// 管理CLIからのサービス問い合わせで使用する。
package httpclient
