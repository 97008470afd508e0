// Package config は各サービス共通の設定を環境変数（および任意の設定ファイル）から読み込む。
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvProduction は本番環境を表す APP_ENV の値。
const EnvProduction = "production"

// MinHashCost はbcryptのコストの下限。
const MinHashCost = 10

// Config はプロセス起動時に確定する設定値。起動後は変更しない。
type Config struct {
	// Env は実行環境（development / production）。
	Env string
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// LogLevel はログ出力レベル。
	LogLevel string
	// JWTSecret はトークン署名用の共有秘密鍵。必須。
	JWTSecret string
	// DBDriver はデータベースドライバ名（sqlite / pgx）。
	DBDriver string
	// DatabaseURL はデータベース接続文字列。
	DatabaseURL string
	// IdentityURL は認証サービスのベースURL。
	IdentityURL string
	// ProfileURL はプロフィールサービスのベースURL。
	ProfileURL string
	// PostsURL は投稿サービスのベースURL。
	PostsURL string
	// ProxyTimeout はゲートウェイが1リクエストに許容する最大時間。
	ProxyTimeout time.Duration
	// HashCost はbcryptのコスト。
	HashCost int
	// HashWorkers はパスワードハッシュ計算の同時実行数の上限。
	HashWorkers int
	// RedisURL はレート制限用Redisの接続URL。空ならメモリストアを使う。
	RedisURL string
	// AuthRateLimit はログイン・登録に適用するレート（ulule/limiter形式、例: "20-M"）。
	AuthRateLimit string
	// FrontendURL はCORSで許可するオリジン。
	FrontendURL string
	// Routes は設定ファイルで与えられたルーティング表。空ならデフォルト表を使う。
	Routes []RouteConfig
}

// RouteConfig は設定ファイル上のルート定義。
type RouteConfig struct {
	// Name はルートの識別名。
	Name string `mapstructure:"name"`
	// Prefix は一致させるパス接頭辞。
	Prefix string `mapstructure:"prefix"`
	// Backend は転送先のベースURL。
	Backend string `mapstructure:"backend"`
	// StripPrefix は転送前に接頭辞を取り除くかどうか。
	StripPrefix bool `mapstructure:"strip_prefix"`
	// Protected はゲートウェイでトークン検証を行うかどうか。
	Protected bool `mapstructure:"protected"`
	// Upgrade はUpgradeリクエスト（WebSocket等）を許可するかどうか。
	Upgrade bool `mapstructure:"upgrade"`
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load は環境変数から設定を読み込む。defaultPort はサービスごとの既定ポート。
// CONFIG_FILE が設定されている場合はそのファイルを先に読み込み、環境変数で上書きする。
func Load(defaultPort string) (*Config, error) {
	v := viper.New()
	v.SetDefault("app_env", "development")
	v.SetDefault("port", defaultPort)
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("database_url", "file:socialnet.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	v.SetDefault("identity_url", "http://localhost:3001")
	v.SetDefault("profile_url", "http://localhost:3002")
	v.SetDefault("posts_url", "http://localhost:3003")
	v.SetDefault("proxy_timeout", 30*time.Second)
	v.SetDefault("hash_cost", MinHashCost)
	v.SetDefault("hash_workers", runtime.GOMAXPROCS(0))
	v.SetDefault("redis_url", "")
	v.SetDefault("auth_rate_limit", "20-M")
	v.SetDefault("frontend_url", "http://localhost:5173")
	v.SetDefault("config_file", "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg := &Config{
		Env:           v.GetString("app_env"),
		Port:          v.GetString("port"),
		LogLevel:      v.GetString("log_level"),
		JWTSecret:     v.GetString("jwt_secret"),
		DBDriver:      v.GetString("db_driver"),
		DatabaseURL:   v.GetString("database_url"),
		IdentityURL:   v.GetString("identity_url"),
		ProfileURL:    v.GetString("profile_url"),
		PostsURL:      v.GetString("posts_url"),
		ProxyTimeout:  v.GetDuration("proxy_timeout"),
		HashCost:      v.GetInt("hash_cost"),
		HashWorkers:   v.GetInt("hash_workers"),
		RedisURL:      v.GetString("redis_url"),
		AuthRateLimit: v.GetString("auth_rate_limit"),
		FrontendURL:   v.GetString("frontend_url"),
	}

	if err := v.UnmarshalKey("routes", &cfg.Routes); err != nil {
		return nil, fmt.Errorf("ルーティング設定の解析に失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。JWT_SECRET に既定値はない。
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET が設定されていません"))
	}
	if c.HashCost < MinHashCost {
		errs = append(errs, fmt.Errorf("HASH_COST は %d 以上である必要があります: %d", MinHashCost, c.HashCost))
	}
	if c.HashWorkers < 1 {
		errs = append(errs, fmt.Errorf("HASH_WORKERS は1以上である必要があります: %d", c.HashWorkers))
	}
	if c.ProxyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROXY_TIMEOUT は正の値である必要があります: %s", c.ProxyTimeout))
	}
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER が不正です: %q", c.DBDriver))
	}
	return errors.Join(errs...)
}
