// Package identity は認証サービス（Identity Service）の内部実装を提供する。
//
// 資格情報の検証とアクセストークンの発行（ログイン）、ユーザー登録、
// トークンの検証エンドポイントを担当する。パスワードはbcryptでハッシュ化し、
// 平文やハッシュをレスポンスに含めることはない。
//
// 存在しないemailとパスワード不一致は同一のエラー・同等の処理時間で応答し、
// emailの登録有無を外部から推測できないようにする。
package identity
