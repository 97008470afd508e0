// Package migration はデータベーススキーマのマイグレーションを管理する。
// 方言ごとのSQLファイルをembed.FSに埋め込み、gooseで適用状態を追跡する。
package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	socialdb "github.com/nao1215/socialnet/pkg/database"
)

//go:embed migrations
var migrations embed.FS

// Applied は適用したマイグレーション1件の結果。
type Applied struct {
	// Version はマイグレーションのバージョン番号。
	Version int64
	// Path はマイグレーションファイルのパス。
	Path string
}

// Status はマイグレーション1件の適用状態。
type Status struct {
	// Version はマイグレーションのバージョン番号。
	Version int64
	// Path はマイグレーションファイルのパス。
	Path string
	// Applied は適用済みかどうか。
	Applied bool
}

// Up は未適用のマイグレーションをバージョン順に適用する。
// 適用済みのものはスキップする。ファイル名形式: 00001_description.sql
func Up(ctx context.Context, db *socialdb.DB) ([]Applied, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	applied := make([]Applied, 0, len(results))
	for _, r := range results {
		applied = append(applied, Applied{Version: r.Source.Version, Path: r.Source.Path})
	}
	return applied, nil
}

// List は全マイグレーションの適用状態を返す。
func List(ctx context.Context, db *socialdb.DB) ([]Status, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("マイグレーション状態の取得に失敗: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// newProvider はドライバに対応する方言とマイグレーションディレクトリでgooseのProviderを生成する。
func newProvider(db *socialdb.DB) (*goose.Provider, error) {
	var (
		dialect database.Dialect
		dir     string
	)
	switch db.Driver {
	case socialdb.DriverSQLite:
		dialect, dir = database.DialectSQLite3, "migrations/sqlite"
	case socialdb.DriverPostgres:
		dialect, dir = database.DialectPostgres, "migrations/postgres"
	default:
		return nil, fmt.Errorf("マイグレーション未対応のドライバです: %q", db.Driver)
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションの初期化に失敗: %w", err)
	}
	return provider, nil
}
