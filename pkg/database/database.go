// Package database はリレーショナルストアへの接続ハンドルを提供する。
//
// 接続はプロセス起動時に明示的に生成し、必要なコンポーネントへ引数で渡す。
// SQLite（開発・テスト）とPostgreSQL（本番）の両方に対応する。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// DriverSQLite はmodernc.org/sqliteドライバを表す。
	DriverSQLite = "sqlite"
	// DriverPostgres はpgxのdatabase/sqlドライバを表す。
	DriverPostgres = "pgx"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// DB はdatabase/sqlの接続プールとSQL方言を束ねたハンドル。
type DB struct {
	*sql.DB
	// Driver は接続に使ったドライバ名。
	Driver string
}

// Open はデータベースに接続し、疎通を確認する。
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("未対応のドライバです: %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if driver == DriverSQLite {
		// SQLiteは書き込みが直列化されるため、接続を1本に絞ってSQLITE_BUSYを避ける。
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(5)
		sqlDB.SetConnMaxIdleTime(10 * time.Second)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	return &DB{DB: sqlDB, Driver: driver}, nil
}

// Rebind は ? プレースホルダをドライバに合わせた形式に書き換える。
func (db *DB) Rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UniqueViolation はerrが一意制約違反であれば、違反した制約を識別できる文字列を返す。
// PostgreSQLでは制約名、SQLiteでは "UNIQUE constraint failed: users.email" 形式のメッセージ。
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return sqliteErr.Error(), true
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE") {
			return sqliteErr.Error(), true
		}
	}
	return "", false
}
