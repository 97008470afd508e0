// Package credential はユーザーの認証情報（users テーブル）を永続化する。
//
// 一意性（email / alias）はデータベースの一意インデックスで保証し、
// 同時登録による重複は ErrDuplicateEmail / ErrDuplicateAlias として返す。
package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/socialnet/pkg/database"
)

var (
	// ErrNotFound は該当するユーザーが存在しないことを表す。
	ErrNotFound = errors.New("credential: not found")
	// ErrDuplicateEmail はemailが既に登録済みであることを表す。
	ErrDuplicateEmail = errors.New("credential: duplicate email")
	// ErrDuplicateAlias はaliasが既に使用されていることを表す。
	ErrDuplicateAlias = errors.New("credential: duplicate alias")
)

// Credential は登録済みユーザー1件。PasswordHash はJSONに出力しない。
type Credential struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Alias        string    `json:"alias"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	BirthDate    string    `json:"birthDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store はCredentialの永続化を抽象化する。
type Store interface {
	Create(ctx context.Context, c *Credential) error
	FindByID(ctx context.Context, id string) (*Credential, error)
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByAlias(ctx context.Context, alias string) (*Credential, error)
}

// SQLStore はdatabase/sql上のStore実装。
type SQLStore struct {
	db *database.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore はSQLStoreを生成する。
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectColumns = `SELECT id, first_name, last_name, alias, email, password_hash, birth_date, created_at, updated_at FROM users`

// Create はCredentialを挿入する。CreatedAt / UpdatedAt が未設定なら現在時刻を使う。
func (s *SQLStore) Create(ctx context.Context, c *Credential) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (id, first_name, last_name, alias, email, password_hash, birth_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.FirstName, c.LastName, c.Alias, c.Email, c.PasswordHash, c.BirthDate, c.CreatedAt, c.UpdatedAt,
	)
	if constraint, ok := database.UniqueViolation(err); ok {
		return classifyDuplicate(constraint, err)
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return nil
}

// FindByID はIDでユーザーを取得する。
func (s *SQLStore) FindByID(ctx context.Context, id string) (*Credential, error) {
	return s.findOne(ctx, "id", id)
}

// FindByEmail はemailでユーザーを取得する。
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	return s.findOne(ctx, "email", email)
}

// FindByAlias はaliasでユーザーを取得する。
func (s *SQLStore) FindByAlias(ctx context.Context, alias string) (*Credential, error) {
	return s.findOne(ctx, "alias", alias)
}

// findOne は column = value の1件を取得する。column は呼び出し側の定数のみを渡すこと。
func (s *SQLStore) findOne(ctx context.Context, column, value string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRowContext(ctx, s.db.Rebind(selectColumns+` WHERE `+column+` = ?`), value).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Alias, &c.Email, &c.PasswordHash, &c.BirthDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗 (%s): %w", column, err)
	}
	return &c, nil
}

// classifyDuplicate は違反した制約からどの一意性が破られたかを判定する。
// PostgreSQLは制約名（users_email_key）、SQLiteはメッセージ（users.email）で識別する。
func classifyDuplicate(constraint string, err error) error {
	switch {
	case strings.Contains(constraint, "email"):
		return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
	case strings.Contains(constraint, "alias"):
		return fmt.Errorf("%w: %w", ErrDuplicateAlias, err)
	default:
		return fmt.Errorf("ユーザーの作成に失敗（一意制約違反）: %w", err)
	}
}
