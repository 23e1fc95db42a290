package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	appmetrics "github.com/taoyao-code/loadbank/internal/metrics"
)

func newTestServer(readyFn func() bool) *Server {
	gin.SetMode(gin.TestMode)
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second, Swagger: true}
	reg := appmetrics.NewRegistry()
	m := appmetrics.NewAppMetrics(reg)
	return New(cfg, "/metrics", appmetrics.Handler(reg), readyFn, m, nil)
}

func serve(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthzReadyzMetrics(t *testing.T) {
	srv := newTestServer(func() bool { return true })

	if rr := serve(srv, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}
	if rr := serve(srv, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("/readyz code=%d", rr.Code)
	}
	if rr := serve(srv, "/metrics"); rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
	if rr := serve(srv, "/swagger/doc.json"); rr.Code != http.StatusOK {
		t.Fatalf("/swagger/doc.json code=%d", rr.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	srv := newTestServer(func() bool { return false })

	if rr := serve(srv, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz not-ready code=%d", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(nil)
	srv.Register(func(r *gin.Engine) {
		r.GET("/api/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})

	if rr := serve(srv, "/api/v1/ping"); rr.Code != http.StatusOK {
		t.Fatalf("/api/v1/ping code=%d", rr.Code)
	}
	rr := serve(srv, "/api/v2/unknown")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route code=%d", rr.Code)
	}
	if rr.Body.String() != `{"status":"Not Found"}` {
		t.Fatalf("unknown route body=%s", rr.Body.String())
	}
}
