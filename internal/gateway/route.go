package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/socialnet/pkg/config"
)

// Rule はルーティング表の1行。
type Rule struct {
	// Name はログ・ヘルスチェックで使う識別名。
	Name string
	// Prefix は一致させるパス接頭辞。セグメント単位で比較する。
	Prefix string
	// Backend は転送先のベースURL。
	Backend *url.URL
	// StripPrefix は転送前にPrefixを取り除くかどうか。
	StripPrefix bool
	// Protected はゲートウェイでトークンを検証するかどうか。
	Protected bool
	// Upgrade はUpgradeリクエスト（WebSocket等）の転送を許可するかどうか。
	Upgrade bool
}

// Matches はpathがPrefixにセグメント単位で一致するかを返す。
// "/auth" は "/auth" と "/auth/..." に一致し、"/authors" には一致しない。
func (r Rule) Matches(path string) bool {
	if r.Prefix == "/" {
		return true
	}
	return path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/")
}

// Rewrite は転送先でのパスを返す。StripPrefix の場合は接頭辞を取り除き、
// 接頭辞と完全一致したときは "/" になる。クエリ文字列はURL側で保持される。
func (r Rule) Rewrite(path string) string {
	if !r.StripPrefix || r.Prefix == "/" {
		return path
	}
	rest := strings.TrimPrefix(path, r.Prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

// Router は宣言順を保持したルーティング表。生成後は変更しない。
type Router struct {
	rules []Rule
}

// NewRouter はルールを検証してRouterを生成する。
func NewRouter(rules []Rule) (*Router, error) {
	if len(rules) == 0 {
		return nil, errors.New("ルーティング表が空です")
	}

	seen := make(map[string]struct{}, len(rules))
	validated := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.Prefix == "" || !strings.HasPrefix(r.Prefix, "/") {
			return nil, fmt.Errorf("ルール%d: 接頭辞は / で始まる必要があります: %q", i, r.Prefix)
		}
		if r.Prefix != "/" {
			r.Prefix = strings.TrimRight(r.Prefix, "/")
		}
		if _, dup := seen[r.Prefix]; dup {
			return nil, fmt.Errorf("ルール%d: 接頭辞が重複しています: %q", i, r.Prefix)
		}
		seen[r.Prefix] = struct{}{}

		if r.Backend == nil || (r.Backend.Scheme != "http" && r.Backend.Scheme != "https") || r.Backend.Host == "" {
			return nil, fmt.Errorf("ルール%d (%s): バックエンドは http(s) の絶対URLである必要があります", i, r.Prefix)
		}
		if r.Name == "" {
			r.Name = strings.TrimPrefix(r.Prefix, "/")
		}
		validated = append(validated, r)
	}
	return &Router{rules: validated}, nil
}

// Match は宣言順で最初に一致したルールを返す。
func (rt *Router) Match(path string) (Rule, bool) {
	for _, r := range rt.rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules はルーティング表の写しを宣言順で返す。
func (rt *Router) Rules() []Rule {
	out := make([]Rule, len(rt.rules))
	copy(out, rt.rules)
	return out
}

// RulesFromConfig は設定からルールを組み立てる。
// 設定ファイルにroutesがなければ既定の表（auth / profile / posts）を使う。
func RulesFromConfig(cfg *config.Config) ([]Rule, error) {
	routes := cfg.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes(cfg)
	}

	rules := make([]Rule, 0, len(routes))
	for _, rc := range routes {
		backend, err := url.Parse(rc.Backend)
		if err != nil {
			return nil, fmt.Errorf("ルート %q のバックエンドURLが不正です: %w", rc.Prefix, err)
		}
		rules = append(rules, Rule{
			Name:        rc.Name,
			Prefix:      rc.Prefix,
			Backend:     backend,
			StripPrefix: rc.StripPrefix,
			Protected:   rc.Protected,
			Upgrade:     rc.Upgrade,
		})
	}
	return rules, nil
}

// DefaultRoutes は既定のルーティング表を返す。
// 認証サービスはルート直下にマウントされるため /auth を取り除き、
// プロフィールサービスは /profile をそのまま受け取る。
func DefaultRoutes(cfg *config.Config) []config.RouteConfig {
	return []config.RouteConfig{
		{Name: "auth", Prefix: "/auth", Backend: cfg.IdentityURL, StripPrefix: true},
		{Name: "profile", Prefix: "/profile", Backend: cfg.ProfileURL, Protected: true},
		{Name: "posts", Prefix: "/posts", Backend: cfg.PostsURL, StripPrefix: true, Protected: true},
	}
}
