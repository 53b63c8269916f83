package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// handleRoot is the liveness route.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Bot WhatsApp - Jonathan Berleze Advocacia rodando!")
}

// handleHealth reports channel health and the number of active sessions.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := g.wa.Health()
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(g.startedAt).Seconds()),
		"sessions":       g.store.Len(),
		"whatsapp": map[string]any{
			"connected":   health.Connected,
			"error_count": health.ErrorCount,
			"details":     health.Details,
		},
	})
}

const qrPageHTML = `<html>
<head>
<title>QR Code WhatsApp</title>
<style>
body { display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background-color: #f0f2f5; font-family: Arial, sans-serif; }
.container { text-align: center; padding: 40px; background-color: white; border-radius: 12px; box-shadow: 0 4px 12px rgba(0,0,0,0.1); }
h2 { color: #333; }
img { margin-top: 20px; border: 1px solid #ddd; padding: 5px; border-radius: 8px; }
</style>
<meta http-equiv="refresh" content="20">
</head>
<body>
<div class="container">
<h2>Escaneie o QR Code para autenticar</h2>
<img src="/qrcode.png" alt="QR Code do WhatsApp" width="300" height="300" />
</div>
</body>
</html>`

// handleQRPage serves the pairing page. Before a QR code exists (or
// after the device is linked) it shows a plain text placeholder.
func (g *Gateway) handleQRPage(w http.ResponseWriter, _ *http.Request) {
	if g.wa.IsConnected() {
		fmt.Fprint(w, "WhatsApp já conectado. Nenhum QR Code necessário.")
		return
	}
	if _, ok := g.wa.CurrentQR(); !ok {
		fmt.Fprint(w, "QR Code ainda não gerado. Aguarde a inicialização do bot e atualize a página.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, qrPageHTML)
}

// handleQRImage renders the current QR code as a PNG.
func (g *Gateway) handleQRImage(w http.ResponseWriter, _ *http.Request) {
	evt, ok := g.wa.CurrentQR()
	if !ok {
		http.Error(w, "QR Code não disponível", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(evt.Code, qrcode.Medium, 300)
	if err != nil {
		g.logger.Error("failed to render QR code", "error", err)
		http.Error(w, "Erro ao gerar imagem do QR Code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(png); err != nil {
		g.logger.Debug("failed to write QR image", "error", err)
	}
}
