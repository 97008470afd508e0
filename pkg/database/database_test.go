package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(t.TempDir(), "test.db"))
	db, err := Open(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("SQLiteに接続できること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if db.Driver != DriverSQLite {
			t.Errorf("Driver = %q, want %q", db.Driver, DriverSQLite)
		}
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %d, want 1", got)
		}
	})

	t.Run("未対応のドライバはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
			t.Error("Open() error = nil, want error")
		}
	})
}

func TestRebind(t *testing.T) {
	t.Parallel()

	query := "SELECT id FROM users WHERE email = ? AND alias = ?"

	sqliteDB := &DB{Driver: DriverSQLite}
	if got := sqliteDB.Rebind(query); got != query {
		t.Errorf("sqlite Rebind() = %q, want unchanged", got)
	}

	pgDB := &DB{Driver: DriverPostgres}
	want := "SELECT id FROM users WHERE email = $1 AND alias = $2"
	if got := pgDB.Rebind(query); got != want {
		t.Errorf("pgx Rebind() = %q, want %q", got, want)
	}
}

func TestUniqueViolation(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE)`); err != nil {
		t.Fatalf("テーブル作成に失敗: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO items (id, name) VALUES ('1', 'a')`); err != nil {
		t.Fatalf("INSERTに失敗: %v", err)
	}

	_, err := db.ExecContext(ctx, `INSERT INTO items (id, name) VALUES ('2', 'a')`)
	constraint, ok := UniqueViolation(err)
	if !ok {
		t.Fatalf("UniqueViolation() ok = false, err = %v", err)
	}
	if constraint == "" {
		t.Error("constraint is empty")
	}

	if _, ok := UniqueViolation(fmt.Errorf("other")); ok {
		t.Error("UniqueViolation(other) ok = true, want false")
	}
	if _, ok := UniqueViolation(nil); ok {
		t.Error("UniqueViolation(nil) ok = true, want false")
	}
}
