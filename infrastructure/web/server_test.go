package web_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/infrastructure/web"
)

func TestServeAndShutdown(t *testing.T) {
	r := web.NewRouter(false)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := web.NewServerDefault(web.WithHandler(r), web.WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewServerFromEnv(t *testing.T) {
	t.Setenv("WEBTEST_PORT", ":9099")
	t.Setenv("WEBTEST_SHUTDOWN_TIMEOUT", "3s")

	srv, err := web.NewServerFromEnv("WEBTEST")
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if srv.Addr != ":9099" || srv.Config.ShutdownTimeout != 3*time.Second {
		t.Errorf("config = %+v", srv.Config)
	}
	if srv.Config.APIRoute != "/v1" {
		t.Errorf("api route = %q", srv.Config.APIRoute)
	}
}
