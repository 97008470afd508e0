package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testPayload はテスト用のレスポンスペイロード。
type testPayload struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("末尾のスラッシュが取り除かれること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:3001/")
		if client.BaseURL() != "http://localhost:3001" {
			t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), "http://localhost:3001")
		}
	})

	t.Run("タイムアウトの既定値とオプションが反映されること", func(t *testing.T) {
		t.Parallel()

		if got := New("http://x").httpClient.Timeout; got != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", got, DefaultTimeout)
		}
		if got := New("http://x", WithTimeout(time.Second)).httpClient.Timeout; got != time.Second {
			t.Errorf("Timeout = %v, want 1s", got)
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にGETリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotAccept string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAccept = r.Header.Get("Accept")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(testPayload{Status: "ok", Service: "identity"})
		}))
		defer ts.Close()

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/health", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if gotPath != "/health" {
			t.Errorf("Path = %q, want %q", gotPath, "/health")
		}
		if gotAccept != "application/json" {
			t.Errorf("Accept = %q, want %q", gotAccept, "application/json")
		}
		if result.Status != "ok" || result.Service != "identity" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("2xx以外はStatusErrorになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"down"}`))
		}))
		defer ts.Close()

		err := New(ts.URL).GetJSON(context.Background(), "/health", nil)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, want *StatusError", err)
		}
		if se.Code != http.StatusServiceUnavailable {
			t.Errorf("Code = %d, want %d", se.Code, http.StatusServiceUnavailable)
		}
		if se.Body != `{"status":"down"}` {
			t.Errorf("Body = %q", se.Body)
		}
	})

	t.Run("接続できない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		if err := New(url).GetJSON(context.Background(), "/health", nil); err == nil {
			t.Error("GetJSON() error = nil, want error")
		}
	})

	t.Run("不正なJSONはエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer ts.Close()

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/", &result); err == nil {
			t.Error("GetJSON() error = nil, want error")
		}
	})

	t.Run("キャンセルされたコンテキストではエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := New(ts.URL).GetJSON(ctx, "/", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}
