// Package password はbcryptによるパスワードのハッシュ化と照合を提供する。
//
// bcryptはCPUを占有するため、同時に実行できる計算数をセマフォで制限する。
// 待機中にリクエストがキャンセルされた場合は計算を行わずに戻る。
package password

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxLength はbcryptが扱えるパスワードの最大バイト数。
const MaxLength = 72

// ErrTooLong はパスワードがMaxLengthバイトを超えていることを表す。
var ErrTooLong = errors.New("password: longer than 72 bytes")

// dummyPassword はタイミング均等化用のハッシュの元になる値。
const dummyPassword = "socialnet-timing-equalizer"

// Hasher は同時実行数を制限したbcryptハッシャー。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash []byte
	dummyErr  error
}

// NewHasher はHasherを生成する。workers は同時に実行するbcrypt計算の上限。
func NewHasher(cost, workers int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcryptのコストが範囲外です: %d", cost)
	}
	if workers < 1 {
		return nil, fmt.Errorf("ワーカー数は1以上である必要があります: %d", workers)
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Hash はパスワードのbcryptハッシュを返す。
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > MaxLength {
		return "", ErrTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(hash), nil
}

// Compare はハッシュとパスワードが一致するかを返す。
// 不一致は (false, nil)、ハッシュの破損やキャンセルはエラーとして返す。
func (h *Hasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("パスワードの照合に失敗: %w", err)
	}
	return true, nil
}

// CompareDummy は存在しないユーザーに対しても同じコストの照合を行う。
// 結果は常に不一致で、応答時間からemailの存在を推測させないために使う。
func (h *Hasher) CompareDummy(ctx context.Context, password string) error {
	h.dummyOnce.Do(func() {
		h.dummyHash, h.dummyErr = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	if h.dummyErr != nil {
		return fmt.Errorf("ダミーハッシュの生成に失敗: %w", h.dummyErr)
	}
	_, err := h.Compare(ctx, string(h.dummyHash), password)
	return err
}
