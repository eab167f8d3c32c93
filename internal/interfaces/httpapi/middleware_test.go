package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCORS(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{
			name:        "configured origin",
			allowed:     []string{"https://predictor.example.com"},
			method:      http.MethodGet,
			origin:      "https://predictor.example.com",
			wantStatus:  http.StatusOK,
			wantAllowed: "https://predictor.example.com",
		},
		{
			name:        "wildcard preflight",
			allowed:     []string{"*"},
			method:      http.MethodOptions,
			origin:      "https://predictor.example.com",
			wantStatus:  http.StatusNoContent,
			wantAllowed: "*",
		},
		{
			name:        "unconfigured origin",
			allowed:     []string{"https://allowed.example.com"},
			method:      http.MethodGet,
			origin:      "https://not-allowed.example.com",
			wantStatus:  http.StatusOK,
			wantAllowed: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/v1/internal/fixtures", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()

			CORS(tc.allowed)(okHandler).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllowed {
				t.Fatalf("unexpected Access-Control-Allow-Origin: %q", got)
			}
		})
	}
}

func TestCORS_PreflightAllowsOverrideAndToken(t *testing.T) {
	handler := CORS([]string{"*"})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/internal/fixtures/fx-1/result", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if methods := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, http.MethodPut) {
		t.Fatalf("PUT must be allowed for result overrides: %q", methods)
	}
	if headers := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(headers, internalJobTokenHeader) {
		t.Fatalf("job token header must be allowed: %q", headers)
	}
}

func TestJobTokenGuard(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{name: "valid token", configured: "secret", provided: "secret", wantStatus: http.StatusNoContent},
		{name: "padded token", configured: " secret ", provided: "secret ", wantStatus: http.StatusNoContent},
		{name: "wrong token", configured: "secret", provided: "nope", wantStatus: http.StatusUnauthorized},
		{name: "missing token", configured: "secret", wantStatus: http.StatusUnauthorized},
		{name: "not configured", provided: "secret", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/reconcile", nil)
			if tt.provided != "" {
				req.Header.Set(internalJobTokenHeader, tt.provided)
			}
			rec := httptest.NewRecorder()

			JobTokenGuard(tt.configured)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestTraced(t *testing.T) {
	for _, path := range []string{"/healthz", "/health", "/livez", "/READYZ", " /healthz "} {
		if traced(path) {
			t.Fatalf("probe path %q must not be traced", path)
		}
	}
	for _, path := range []string{"/v1/internal/jobs/reconcile", "/v1/internal/fixtures", "/"} {
		if !traced(path) {
			t.Fatalf("path %q must be traced", path)
		}
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner,handler" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRecover_WritesInternalError(t *testing.T) {
	h := Recover(logging.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/internal/fixtures", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("panic value must not leak: %s", rec.Body.String())
	}
}

func TestAccessLog_RecordsStatusAndBytes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := logging.FromZap(zap.New(core))

	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/reconcile", nil)
	req.RemoteAddr = "10.0.0.9:41234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusAccepted) || fields["bytes"] != int64(6) || fields["client_ip"] != "10.0.0.9" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		realIP    string
		want      string
	}{
		{name: "socket", remote: "10.0.0.9:41234", want: "10.0.0.9"},
		{name: "forwarded first hop", remote: "10.0.0.9:41234", forwarded: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{name: "bad forwarded falls back", remote: "10.0.0.9:41234", forwarded: "unknown", realIP: "198.51.100.4", want: "198.51.100.4"},
		{name: "ipv6 socket", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "mapped ipv4", remote: "[::ffff:192.0.2.1]:80", want: "192.0.2.1"},
		{name: "nothing usable", remote: "pipe", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientAddr(req); got != tt.want {
				t.Fatalf("clientAddr=%q want=%q", got, tt.want)
			}
		})
	}
}
