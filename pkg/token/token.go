// Package token はHS256署名のアクセストークンの発行と検証を行う。
//
// トークンはサーバー側に保存しない。有効期限（既定24時間）まで有効で、
// 失効リストは持たない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nao1215/socialnet/pkg/apperror"
)

const (
	// DefaultTTL はトークンの既定の有効期間。
	DefaultTTL = 24 * time.Hour
	// DefaultIssuer はissクレームの既定値。
	DefaultIssuer = "socialnet-identity"
)

// Claims はトークンのペイロード。sub と id の両方にユーザーIDを入れる。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はユーザーの一意識別子。
	UserID string `json:"id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
	// Alias は表示用の一意な別名。
	Alias string `json:"alias"`
}

// Identity はトークンに埋め込むユーザー情報。
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Alias     string
}

// Manager はトークンを発行・検証する。生成後は不変で、並行に使用できる。
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option はManagerの設定を変更する。
type Option func(*Manager)

// WithTTL はトークンの有効期間を設定する。
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithIssuer はissクレームを設定する。
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager はManagerを生成する。secret が空の場合はエラーを返す。
func NewManager(secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("トークン署名用のシークレットが空です")
	}
	m := &Manager{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue はユーザー情報からトークンを発行し、署名済み文字列と有効期限を返す。
func (m *Manager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID:    id.ID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Alias:     id.Alias,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify は署名・アルゴリズム・有効期限を検証してクレームを返す。
// 期限切れは KindTokenExpired、それ以外の失敗は KindUnauthenticated の *apperror.Error になる。
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, apperror.Wrap(apperror.KindTokenExpired, "Token expirado", err)
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnauthenticated, "Token inválido", err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, apperror.New(apperror.KindUnauthenticated, "Token inválido")
	}
	return claims, nil
}
