// Package dbtest はテスト用のマイグレーション済みSQLiteデータベースを提供する。
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nao1215/socialnet/pkg/database"
	"github.com/nao1215/socialnet/pkg/migration"
)

// New はテストごとに独立した一時ファイルのSQLiteを開き、マイグレーションを適用して返す。
// データベースはテスト終了時に閉じられる。
func New(t testing.TB) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := database.Open(context.Background(), database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := migration.Up(context.Background(), db); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	return db
}
