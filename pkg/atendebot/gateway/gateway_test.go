package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jberleze/atendebot/pkg/atendebot/channels/whatsapp"
	"github.com/jberleze/atendebot/pkg/atendebot/frontdesk"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := frontdesk.NewStore(filepath.Join(t.TempDir(), "sessions.json"), logger)
	store.Load()
	wa := whatsapp.New(whatsapp.DefaultConfig(), logger)
	return New(frontdesk.ServerConfig{Address: ":0"}, store, wa, logger)
}

func TestHandleRoot(t *testing.T) {
	g := newTestGateway(t)

	t.Run("liveness string", func(t *testing.T) {
		rec := httptest.NewRecorder()
		g.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "rodando") {
			t.Errorf("unexpected body: %q", rec.Body.String())
		}
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		g.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	g := newTestGateway(t)

	rec := httptest.NewRecorder()
	g.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if _, ok := body["sessions"]; !ok {
		t.Error("missing sessions count")
	}
	wa, ok := body["whatsapp"].(map[string]any)
	if !ok {
		t.Fatal("missing whatsapp section")
	}
	if wa["connected"] != false {
		t.Error("expected disconnected channel in test")
	}
}

func TestHandleQRPagePlaceholder(t *testing.T) {
	g := newTestGateway(t)

	// No QR generated yet: plain placeholder, no HTML page.
	rec := httptest.NewRecorder()
	g.handleQRPage(rec, httptest.NewRequest(http.MethodGet, "/qrcode", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ainda não gerado") {
		t.Errorf("expected placeholder, got %q", rec.Body.String())
	}
}

func TestHandleQRImageNotAvailable(t *testing.T) {
	g := newTestGateway(t)

	rec := httptest.NewRecorder()
	g.handleQRImage(rec, httptest.NewRequest(http.MethodGet, "/qrcode.png", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	g := newTestGateway(t)

	handler := g.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
