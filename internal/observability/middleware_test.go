package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zerolog.New(buf).Level(zerolog.TraceLevel).With().Str("component", "status").Logger()
	r := gin.New()
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware())
	r.GET("/status", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func serve(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	buf.Reset()
	return rec
}

func TestRequestLoggerLevelsAndRoute(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	r := newRouter(&buf)

	serve(r, "/status")
	rec := decodeLine(t, &buf)
	if rec["level"] != "trace" || rec["route"] != "/status" || rec["component"] != "status" {
		t.Fatalf("unexpected poll record: %v", rec)
	}

	serve(r, "/games/secret.nsp")
	rec = decodeLine(t, &buf)
	if rec["level"] != "warn" || rec["route"] != "unmatched" || rec["status"] != float64(404) {
		t.Fatalf("unexpected 404 record: %v", rec)
	}
}

func TestRequestMetricsCollapseUnmatchedPaths(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(&buf)
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))

	serve(r, "/a")
	serve(r, "/b/c")

	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")) - before; got != 2 {
		t.Fatalf("expected 2 unmatched requests, got %v", got)
	}
}
