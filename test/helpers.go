package test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/handler"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/infrastructure/logger"
)

// TestServerHelper creates a test HTTP server without needing a running backend
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Mux    *http.ServeMux
}

func NewTestServer(t *testing.T) *TestServerHelper {
	log := logger.NewLogger("debug")
	mux := http.NewServeMux()

	// Health endpoints over the real handler; with no database or
	// Redis wired, readyz reports not ready.
	healthHandler := handler.NewHealthHandler(nil, nil, log)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptest.NewServer(mux)

	return &TestServerHelper{
		Server: server,
		Logger: log,
		Mux:    mux,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
