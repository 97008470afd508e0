package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/socialnet/pkg/credential"
	"github.com/nao1215/socialnet/pkg/database/dbtest"
	"github.com/nao1215/socialnet/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-for-unit-tests"

// newTestServer はテスト用ユーザーを1件登録済みのプロフィールサーバーを生成する。
func newTestServer(t *testing.T) (*Server, *token.Manager, *credential.Credential) {
	t.Helper()

	store := credential.NewSQLStore(dbtest.New(t))
	cred := &credential.Credential{
		ID:           uuid.NewString(),
		FirstName:    "Ana",
		LastName:     "García",
		Alias:        "ana",
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		BirthDate:    "1990-05-17",
	}
	if err := store.Create(context.Background(), cred); err != nil {
		t.Fatalf("ユーザーの作成に失敗: %v", err)
	}

	tokens, err := token.NewManager(testSecret)
	if err != nil {
		t.Fatalf("NewManager()でエラーが発生: %v", err)
	}
	return NewServer(store, tokens, zap.NewNop(), false), tokens, cred
}

func bearer(t *testing.T, tokens *token.Manager, id string) string {
	t.Helper()

	signed, _, err := tokens.Issue(token.Identity{ID: id, Email: "ana@example.com", Alias: "ana"})
	if err != nil {
		t.Fatalf("Issue()でエラーが発生: %v", err)
	}
	return "Bearer " + signed
}

// TestHandleGetProfile はプロフィール取得エンドポイントを検証する。
func TestHandleGetProfile(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method+"で自分のプロフィールが返ること", func(t *testing.T) {
			t.Parallel()

			s, tokens, cred := newTestServer(t)
			req := httptest.NewRequest(method, "/profile", nil)
			req.Header.Set("Authorization", bearer(t, tokens, cred.ID))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["id"] != cred.ID || body["alias"] != "ana" || body["birthDate"] != "1990-05-17" {
				t.Errorf("body = %v", body)
			}
			if body["createdAt"] == nil || body["updatedAt"] == nil {
				t.Errorf("タイムスタンプが含まれていない: %v", body)
			}
			if strings.Contains(w.Body.String(), "$2a$") {
				t.Errorf("パスワードハッシュがレスポンスに含まれている: %s", w.Body.String())
			}
		})
	}

	t.Run("トークンがない場合は401が返ること", func(t *testing.T) {
		t.Parallel()

		s, _, _ := newTestServer(t)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("ユーザーが存在しない場合は404が返ること", func(t *testing.T) {
		t.Parallel()

		s, tokens, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", bearer(t, tokens, uuid.NewString()))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["error"] != "NotFound" || body["message"] != "Usuario no encontrado" {
			t.Errorf("body = %v", body)
		}
	})
}

// TestHandleHealth はヘルスチェックが認証なしで応答することを検証する。
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "profile" || body["timestamp"] == "" {
		t.Errorf("body = %v", body)
	}
}
