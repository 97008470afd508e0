package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("キャンセルまでリクエストを処理し正常に停止すること", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("リッスンに失敗: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- Serve(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "ok")
			}), zap.NewNop())
		}()

		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			t.Fatalf("リクエストに失敗: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "ok" {
			t.Errorf("body = %q, want %q", body, "ok")
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Serve() が停止しない")
		}
	})

	t.Run("使用中のアドレスではエラーになること", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("リッスンに失敗: %v", err)
		}
		defer ln.Close()

		if err := Run(context.Background(), ln.Addr().String(), http.NotFoundHandler(), zap.NewNop()); err == nil {
			t.Error("Run() error = nil, want error")
		}
	})
}
