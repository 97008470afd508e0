// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一の入口として、宣言順に並んだルーティング表
// （Rule）の最初に一致した接頭辞のバックエンドへリクエストを転送する。
// 保護されたルートはゲートウェイでもトークンを検証し、X-User-ID を付けて転送する。
//
// 1リクエストの状態遷移:
//
//	RECEIVED → MATCHED → FORWARDING → COMPLETED | TIMED_OUT | BACKEND_ERROR
//	RECEIVED → MATCHED → FORWARDING → CLIENT_CLOSED
//	RECEIVED → MATCHED → REJECTED | UNAUTHENTICATED
//	RECEIVED → UNMATCHED
//
// 終端状態はアクセスログに記録され、それぞれバックエンドの応答・504・502・499・400・401・404に対応する。
// 499はクライアントが切断済みのためログにだけ残る。
package gateway
