package routers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/api"
	"github.com/maxischmaxi/code-preview-server/internal/events"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/memory"
	"github.com/maxischmaxi/code-preview-server/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	router := events.NewRouter(events.Deps{Sessions: store.Sessions, Templates: store.Templates, Logger: zap.NewNop()}, 8)
	h := api.NewHandlers(api.Deps{
		Logger:    zap.NewNop(),
		Router:    router,
		Sessions:  services.NewSessionService(store.Sessions, "javascript", zap.NewNop()),
		Templates: store.Templates,
	})
	server := httptest.NewServer(New(h, []string{"http://allowed.example"}))
	t.Cleanup(server.Close)
	return server
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNewRouterServesMetrics(t *testing.T) {
	server := newTestServer(t)

	if _, err := http.Get(server.URL + "/"); err != nil {
		t.Fatalf("root request failed: %v", err)
	}
	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNewRouterCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/template", nil)
	req.Header.Set("Origin", "http://allowed.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://allowed.example" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPatch) {
		t.Fatalf("expected PATCH to be allowed, got %q", got)
	}

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for foreign origin: %q", got)
	}
}

func TestNewRouterUnknownRoute(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/languages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
