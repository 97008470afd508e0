package migration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nao1215/socialnet/pkg/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(t.TempDir(), "test.db"))
	db, err := database.Open(context.Background(), database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp(t *testing.T) {
	t.Parallel()

	t.Run("未適用のマイグレーションが適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		applied, err := Up(context.Background(), db)
		if err != nil {
			t.Fatalf("Up() error = %v", err)
		}
		if len(applied) != 1 || applied[0].Version != 1 {
			t.Fatalf("applied = %+v, want version 1 only", applied)
		}

		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
			t.Fatalf("usersテーブルが存在しない: %v", err)
		}
	})

	t.Run("2回目の実行では何も適用されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if _, err := Up(context.Background(), db); err != nil {
			t.Fatalf("Up() error = %v", err)
		}
		applied, err := Up(context.Background(), db)
		if err != nil {
			t.Fatalf("Up() error = %v", err)
		}
		if len(applied) != 0 {
			t.Errorf("applied = %+v, want empty", applied)
		}
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	statuses, err := List(context.Background(), db)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(statuses) != 1 || statuses[0].Applied {
		t.Fatalf("statuses = %+v, want 1 pending", statuses)
	}

	if _, err := Up(context.Background(), db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	statuses, err = List(context.Background(), db)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !statuses[0].Applied {
		t.Errorf("statuses[0].Applied = false, want true")
	}
}
