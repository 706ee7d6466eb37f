package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/api/internal/platform/requestctx"
)

func TestSanitizers(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("expected root route, got %q", got)
	}
	if got := SanitizeRoute("/api/v1/orders/{orderID}\r\nforged"); got != "/api/v1/orders/{orderID}forged" {
		t.Fatalf("control characters must be stripped, got %q", got)
	}
	if got := SanitizeMethod("get\n"); got != "GET" {
		t.Fatalf("unexpected method %q", got)
	}
	if got := SanitizeUserID(strings.Repeat("u", 100)); len(got) != maxIDLen {
		t.Fatalf("expected clip to %d runes, got %d", maxIDLen, len(got))
	}
}

func TestParseCloudTraceHeader(t *testing.T) {
	sc, ok := parseCloudTraceHeader("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if sc.TraceID().String() != "105445aa7843bc8bf206b12000100000" || !sc.IsSampled() || !sc.IsRemote() {
		t.Fatalf("unexpected span context %+v", sc)
	}
	if sc.SpanID().String() != "0000000000000001" {
		t.Fatalf("unexpected span id %s", sc.SpanID())
	}

	for _, header := range []string{"", "short/1", "105445aa7843bc8bf206b12000100000/", "105445aa7843bc8bf206b12000100000/0;o=1"} {
		if _, ok := parseCloudTraceHeader(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestTraceMiddlewareContinuesIncomingTrace(t *testing.T) {
	var traceID string
	handler := TraceMiddleware("storefront-prod")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = requestctx.TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/42;o=1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if traceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected incoming trace id, got %q", traceID)
	}
	if !strings.HasPrefix(rr.Header().Get(cloudTraceHeader), traceID+"/") {
		t.Fatalf("expected trace header echoed, got %q", rr.Header().Get(cloudTraceHeader))
	}
}

func TestHTTPMetricsRecordsRoutePattern(t *testing.T) {
	metrics := NewHTTPMetrics("storefront")
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/api/v1/orders/{orderID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	want := `storefront_http_requests_total{method="GET",route="/api/v1/orders/{orderID}",status="404"} 1`
	if !strings.Contains(string(body), want) {
		t.Fatalf("expected %s in metrics output:\n%s", want, body)
	}
}
